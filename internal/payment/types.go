package payment

import (
	"context"
	"time"

	"paystore/internal/models"
)

// Queue is the platform payment queue.
type Queue interface {
	// CanMakePayments reports whether purchasing is allowed on this device.
	CanMakePayments(ctx context.Context) bool
	// Submit hands a purchase to the platform. The outcome arrives later as events.
	Submit(ctx context.Context, product models.Product) error
	// Finalize tells the platform an event has been handled so it is not redelivered.
	Finalize(ctx context.Context, event models.TransactionEvent) error
	// Subscribe registers handler for event batches until the returned func is called.
	Subscribe(handler func([]models.TransactionEvent)) (unsubscribe func(), err error)
}

// ProductResolver resolves a product identifier to a purchasable product.
type ProductResolver interface {
	Resolve(ctx context.Context, productID string) (models.Product, error)
}

// Delegate receives outcomes that have no waiting InitiatePurchase caller in
// this process: restored orders and reconciliations of orders started before
// a restart.
type Delegate interface {
	OnRestore(receipt models.Receipt)
	OnFailure(receipt models.Receipt, err error)
}

// DelegateFuncs adapts plain funcs to Delegate. Nil funcs are skipped.
type DelegateFuncs struct {
	Restore func(receipt models.Receipt)
	Failure func(receipt models.Receipt, err error)
}

func (d DelegateFuncs) OnRestore(receipt models.Receipt) {
	if d.Restore != nil {
		d.Restore(receipt)
	}
}

func (d DelegateFuncs) OnFailure(receipt models.Receipt, err error) {
	if d.Failure != nil {
		d.Failure(receipt, err)
	}
}

// Result is the single outcome delivered for an InitiatePurchase call.
type Result struct {
	Receipt models.Receipt
	Err     error
}

// EntryType names a journaled transition.
type EntryType string

const (
	EntryPending   EntryType = "ORDER_PENDING"
	EntryShortcut  EntryType = "ORDER_SHORTCUT"
	EntryCompleted EntryType = "ORDER_COMPLETED"
	EntryFailed    EntryType = "ORDER_FAILED"
	EntryRemoved   EntryType = "ORDER_REMOVED"
	EntryRestored  EntryType = "ORDER_RESTORED"
	EntryFinalized EntryType = "EVENT_FINALIZED"
	EntryIgnored   EntryType = "EVENT_IGNORED"
)

// Entry is one journaled transition.
type Entry struct {
	Type          EntryType
	OrderID       string
	ProductID     string
	TransactionID string
	Message       string
	Time          time.Time
}

// Journal records transitions for later inspection. Failures are logged only.
type Journal interface {
	Append(ctx context.Context, entry Entry) error
}
