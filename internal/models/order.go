package models

import (
	"fmt"
	"time"
)

// OrderRecord is the persisted unit of reconciliation state, keyed by OrderID.
// An empty TransactionID means the order is still pending on the platform.
type OrderRecord struct {
	ProductID     string `json:"productId"`
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transId"`
}

// IsComplete reports whether the platform has confirmed the purchase.
func (r *OrderRecord) IsComplete() bool {
	return r.TransactionID != ""
}

// Receipt returns the triple handed to the caller for server-side verification.
func (r *OrderRecord) Receipt() Receipt {
	return Receipt{
		TransactionID: r.TransactionID,
		OrderID:       r.OrderID,
		ProductID:     r.ProductID,
	}
}

func (r *OrderRecord) String() string {
	return fmt.Sprintf("order=%s product=%s trans=%s", r.OrderID, r.ProductID, r.TransactionID)
}

// Receipt is a verified local purchase ready to be uploaded by the caller.
type Receipt struct {
	TransactionID string `json:"transId"`
	OrderID       string `json:"orderId"`
	ProductID     string `json:"productId"`
}

// Product is the purchasable descriptor returned by the product query service.
type Product struct {
	ID       string `json:"productId"`
	Title    string `json:"title,omitempty"`
	Price    string `json:"price,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// TransactionState is the state the payment queue reports for a transaction.
type TransactionState string

const (
	TransactionPurchasing TransactionState = "purchasing"
	TransactionPurchased  TransactionState = "purchased"
	TransactionFailed     TransactionState = "failed"
	TransactionRestored   TransactionState = "restored"
	TransactionDeferred   TransactionState = "deferred"
)

// PlatformError is the raw error the payment queue attaches to a failed transaction.
type PlatformError struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform error %d: %s", e.Code, e.Message)
}

// TransactionEvent is one entry of a batch delivered by the payment queue.
type TransactionEvent struct {
	ProductID       string           `json:"product_id"`
	TransactionID   string           `json:"transaction_id,omitempty"`
	TransactionDate *time.Time       `json:"transaction_date,omitempty"`
	State           TransactionState `json:"state"`
	Error           *PlatformError   `json:"error,omitempty"`
}
