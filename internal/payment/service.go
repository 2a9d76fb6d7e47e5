package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"paystore/internal/models"
	"paystore/internal/product"
	"paystore/internal/store"

	"github.com/golang/glog"
)

// Service drives the purchase lifecycle and reconciles the events of the
// payment queue against locally persisted orders.
//
// One mutex serializes every read-modify-write on the order store, including
// the persist-then-submit step of a purchase; results and delegate calls are
// always dispatched after it is released.
type Service struct {
	queue    Queue
	products ProductResolver
	orders   *store.Orders
	delegate Delegate
	journal  Journal

	mu      sync.Mutex
	waiters map[string]chan Result

	unsubscribe func()
}

type Option func(*Service)

func WithDelegate(d Delegate) Option {
	return func(s *Service) {
		s.delegate = d
	}
}

func WithJournal(j Journal) Option {
	return func(s *Service) {
		s.journal = j
	}
}

func NewService(queue Queue, products ProductResolver, orders *store.Orders, opts ...Option) *Service {
	s := &Service{
		queue:    queue,
		products: products,
		orders:   orders,
		delegate: DelegateFuncs{},
		waiters:  make(map[string]chan Result),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to the payment queue. Events are reconciled with ctx until Close.
func (s *Service) Start(ctx context.Context) error {
	unsubscribe, err := s.queue.Subscribe(func(events []models.TransactionEvent) {
		s.HandleTransactions(ctx, events)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	glog.Infof("payment service subscribed to transaction events")
	return nil
}

func (s *Service) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// InitiatePurchase starts buying productID for orderID. It never blocks: the
// returned channel receives exactly one Result and is then closed. Purchases
// submitted to the platform resolve when the matching event is reconciled,
// which may happen much later.
func (s *Service) InitiatePurchase(ctx context.Context, productID, orderID string) <-chan Result {
	ch := make(chan Result, 1)

	if productID == "" || orderID == "" {
		send(ch, Result{Err: newError(KindInvalidOrder, CodeInvalidOrder, "order id or product id is empty, please contact support", nil)})
		return ch
	}

	s.mu.Lock()
	if _, busy := s.waiters[orderID]; busy {
		s.mu.Unlock()
		send(ch, Result{Err: newError(KindInvalidOrder, CodeInvalidOrder, "order "+orderID+" is already being purchased", nil)})
		return ch
	}
	s.waiters[orderID] = ch
	s.mu.Unlock()

	go s.purchase(ctx, productID, orderID, ch)
	return ch
}

// purchase runs the steps of one InitiatePurchase call. ch is the waiter it
// registered; once ch is no longer the waiter of orderID the order was
// removed and nothing is persisted or submitted for it.
func (s *Service) purchase(ctx context.Context, productID, orderID string, ch chan Result) {
	if !s.queue.CanMakePayments(ctx) {
		s.resolve(orderID, Result{Err: newError(KindPaymentsDisabled, CodePaymentsDisabled, "purchasing is disabled, enable it in the system settings", nil)})
		return
	}

	// A completed but unacknowledged purchase of this product goes straight
	// back to the caller instead of charging the user again.
	s.mu.Lock()
	prior, err := s.orders.FindComplete(ctx, productID)
	s.mu.Unlock()
	if err != nil {
		s.resolve(orderID, Result{Err: newError(KindStoreUnavailable, 0, "failed to read local orders", err)})
		return
	}
	if prior != nil {
		glog.Infof("product %s already purchased by order %s, delivering it for %s", productID, prior.OrderID, orderID)
		s.record(ctx, EntryShortcut, prior, "delivered for order "+orderID)
		s.resolve(orderID, Result{Receipt: prior.Receipt()})
		return
	}

	p, err := s.products.Resolve(ctx, productID)
	if err != nil {
		s.resolve(orderID, Result{Err: productError(productID, err)})
		return
	}

	s.mu.Lock()
	if s.waiters[orderID] != ch {
		s.mu.Unlock()
		glog.Infof("order %s was removed before submission, not submitting", orderID)
		return
	}
	existing, ok := s.orders.GetRecord(ctx, orderID)
	if ok && existing.IsComplete() {
		s.mu.Unlock()
		glog.Infof("order %s already completed, not submitting again", orderID)
		s.resolve(orderID, Result{Receipt: existing.Receipt()})
		return
	}
	pending := &models.OrderRecord{ProductID: productID, OrderID: orderID}
	if err := s.orders.PutRecord(ctx, pending); err != nil {
		s.mu.Unlock()
		glog.Errorf("persist pending order %s, err:%v", orderID, err)
		s.resolve(orderID, Result{Err: newError(KindStoreUnavailable, 0, "failed to save order before payment", err)})
		return
	}
	// persist and submit form one step under s.mu, RemoveOrder runs before or after both
	err = s.queue.Submit(ctx, p)
	if err != nil {
		if rerr := s.orders.RemoveRecord(ctx, orderID); rerr != nil {
			glog.Warningf("remove unsubmitted order %s, err:%v", orderID, rerr)
		}
	}
	s.mu.Unlock()

	s.record(ctx, EntryPending, pending, "")
	if err != nil {
		glog.Errorf("submit order %s product %s, err:%v", orderID, productID, err)
		s.resolve(orderID, Result{Err: newError(KindPlatformQueryFailed, 0, "failed to submit payment", err)})
		return
	}
	glog.Infof("order %s submitted for product %s", orderID, productID)
}

func productError(productID string, err error) *Error {
	if errors.Is(err, product.ErrNotFound) {
		return newError(KindProductNotFound, CodeProductNotFound, "product "+productID+" not found", err)
	}
	return newError(KindPlatformQueryFailed, 0, "failed to query product "+productID, err)
}

// RestorePendingOrders delivers every completed order still held locally.
// Orders awaited in this process go to their waiter, the rest to the delegate.
func (s *Service) RestorePendingOrders(ctx context.Context) error {
	type delivery struct {
		ch      chan Result
		receipt models.Receipt
	}

	s.mu.Lock()
	records, err := s.orders.Records(ctx)
	if err != nil {
		s.mu.Unlock()
		return newError(KindStoreUnavailable, 0, "failed to list local orders", err)
	}
	var deliveries []delivery
	for _, rec := range records {
		if !rec.IsComplete() {
			continue
		}
		deliveries = append(deliveries, delivery{ch: s.takeWaiterLocked(rec.OrderID), receipt: rec.Receipt()})
	}
	s.mu.Unlock()

	glog.Infof("restore sweep found %d completed of %d orders", len(deliveries), len(records))
	for _, d := range deliveries {
		s.record(ctx, EntryRestored, &models.OrderRecord{OrderID: d.receipt.OrderID, ProductID: d.receipt.ProductID, TransactionID: d.receipt.TransactionID}, "")
		s.deliverSuccess(d.ch, d.receipt)
	}
	return nil
}

// RemoveOrder deletes the local record of orderID, typically once the caller
// has uploaded its receipt. A purchase still waiting on the order receives
// an OrderRemoved error.
func (s *Service) RemoveOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return newError(KindInvalidOrder, CodeInvalidOrder, "order id is empty", nil)
	}

	s.mu.Lock()
	rec, _ := s.orders.GetRecord(ctx, orderID)
	err := s.orders.RemoveRecord(ctx, orderID)
	var ch chan Result
	if err == nil {
		ch = s.takeWaiterLocked(orderID)
	}
	s.mu.Unlock()

	if err != nil {
		return newError(KindStoreUnavailable, 0, "failed to remove order "+orderID, err)
	}
	if rec == nil {
		rec = &models.OrderRecord{OrderID: orderID}
	}
	s.record(ctx, EntryRemoved, rec, "removed by caller")
	if ch != nil {
		send(ch, Result{Receipt: rec.Receipt(), Err: newError(KindOrderRemoved, 0, "order "+orderID+" was removed", nil)})
	}
	return nil
}

// Orders lists every readable local order record.
func (s *Service) Orders(ctx context.Context) ([]models.OrderRecord, error) {
	s.mu.Lock()
	records, err := s.orders.Records(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, newError(KindStoreUnavailable, 0, "failed to list local orders", err)
	}

	out := make([]models.OrderRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, *rec)
	}
	return out, nil
}

// takeWaiterLocked detaches the waiter of orderID. s.mu must be held.
func (s *Service) takeWaiterLocked(orderID string) chan Result {
	ch, ok := s.waiters[orderID]
	if !ok {
		return nil
	}
	delete(s.waiters, orderID)
	return ch
}

// resolve completes the InitiatePurchase call waiting on orderID.
func (s *Service) resolve(orderID string, res Result) {
	s.mu.Lock()
	ch := s.takeWaiterLocked(orderID)
	s.mu.Unlock()

	if ch == nil {
		glog.Warningf("no waiter for order %s, dropping result", orderID)
		return
	}
	send(ch, res)
}

func (s *Service) deliverSuccess(ch chan Result, receipt models.Receipt) {
	if ch != nil {
		send(ch, Result{Receipt: receipt})
		return
	}
	s.delegate.OnRestore(receipt)
}

func (s *Service) deliverFailure(ch chan Result, receipt models.Receipt, err error) {
	if ch != nil {
		send(ch, Result{Receipt: receipt, Err: err})
		return
	}
	s.delegate.OnFailure(receipt, err)
}

func (s *Service) record(ctx context.Context, typ EntryType, rec *models.OrderRecord, message string) {
	if s.journal == nil {
		return
	}
	entry := Entry{
		Type:          typ,
		OrderID:       rec.OrderID,
		ProductID:     rec.ProductID,
		TransactionID: rec.TransactionID,
		Message:       message,
		Time:          time.Now(),
	}
	if err := s.journal.Append(ctx, entry); err != nil {
		glog.Warningf("journal %s for order %s, err:%v", typ, rec.OrderID, err)
	}
}

// send delivers the one result of a waiter channel. ch is buffered, so it never blocks.
func send(ch chan Result, res Result) {
	ch <- res
	close(ch)
}
