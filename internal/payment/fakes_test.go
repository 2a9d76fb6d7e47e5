package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"paystore/internal/models"
	"paystore/internal/product"
	"paystore/internal/store"

	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu         sync.Mutex
	canPay     bool
	submitErr  error
	onSubmit   func(models.Product)
	submitted  chan models.Product
	finalized  []models.TransactionEvent
	handler    func([]models.TransactionEvent)
	unsubCalls int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{canPay: true, submitted: make(chan models.Product, 16)}
}

func (q *fakeQueue) CanMakePayments(ctx context.Context) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.canPay
}

func (q *fakeQueue) Submit(ctx context.Context, p models.Product) error {
	q.mu.Lock()
	err, hook := q.submitErr, q.onSubmit
	q.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	if err != nil {
		return err
	}
	q.submitted <- p
	return nil
}

func (q *fakeQueue) Finalize(ctx context.Context, ev models.TransactionEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finalized = append(q.finalized, ev)
	return nil
}

func (q *fakeQueue) Subscribe(handler func([]models.TransactionEvent)) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
	return func() {
		q.mu.Lock()
		q.unsubCalls++
		q.handler = nil
		q.mu.Unlock()
	}, nil
}

func (q *fakeQueue) deliver(events ...models.TransactionEvent) {
	q.mu.Lock()
	h := q.handler
	q.mu.Unlock()
	h(events)
}

func (q *fakeQueue) finalizedEvents() []models.TransactionEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.TransactionEvent, len(q.finalized))
	copy(out, q.finalized)
	return out
}

type fakeResolver struct {
	mu    sync.Mutex
	calls int
	err   error

	// when release is set, Resolve signals entered and blocks until release is closed
	entered chan struct{}
	release chan struct{}
}

func (r *fakeResolver) Resolve(ctx context.Context, productID string) (models.Product, error) {
	if r.release != nil {
		r.entered <- struct{}{}
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return models.Product{}, r.err
	}
	return models.Product{ID: productID, Title: "product " + productID}, nil
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingDelegate struct {
	mu       sync.Mutex
	restored []models.Receipt
	failed   []error
}

func (d *recordingDelegate) OnRestore(r models.Receipt) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.restored = append(d.restored, r)
}

func (d *recordingDelegate) OnFailure(r models.Receipt, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failed = append(d.failed, err)
}

func (d *recordingDelegate) counts() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.restored), len(d.failed)
}

type memoryJournal struct {
	mu      sync.Mutex
	entries []Entry
}

func (j *memoryJournal) Append(ctx context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *memoryJournal) types() []EntryType {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]EntryType, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Type)
	}
	return out
}

// failingStore fails every write.
type failingStore struct {
	*store.Memory
}

func (f failingStore) Put(ctx context.Context, key string, value []byte) error {
	return errors.New("keychain unavailable")
}

type harness struct {
	svc      *Service
	queue    *fakeQueue
	resolver *fakeResolver
	orders   *store.Orders
	delegate *recordingDelegate
	journal  *memoryJournal
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, store.NewMemory())
}

func newHarnessWithStore(t *testing.T, s store.Store) *harness {
	t.Helper()
	h := &harness{
		queue:    newFakeQueue(),
		resolver: &fakeResolver{},
		orders:   store.NewOrders(s),
		delegate: &recordingDelegate{},
		journal:  &memoryJournal{},
	}
	h.svc = NewService(h.queue, h.resolver, h.orders, WithDelegate(h.delegate), WithJournal(h.journal))
	require.NoError(t, h.svc.Start(context.Background()))
	t.Cleanup(h.svc.Close)
	return h
}

func (h *harness) put(t *testing.T, productID, orderID, transID string) {
	t.Helper()
	require.NoError(t, h.orders.PutRecord(context.Background(), &models.OrderRecord{
		ProductID: productID, OrderID: orderID, TransactionID: transID,
	}))
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res, ok := <-ch:
		require.True(t, ok, "result channel closed without a result")
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for purchase result")
		return Result{}
	}
}

func waitSubmitted(t *testing.T, q *fakeQueue) models.Product {
	t.Helper()
	select {
	case p := <-q.submitted:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payment submission")
		return models.Product{}
	}
}

func assertNoResult(t *testing.T, ch <-chan Result) {
	t.Helper()
	select {
	case res := <-ch:
		t.Fatalf("unexpected result %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func purchased(productID, transID string, at time.Time) models.TransactionEvent {
	return models.TransactionEvent{ProductID: productID, TransactionID: transID, TransactionDate: &at, State: models.TransactionPurchased}
}

func failed(productID string, code int) models.TransactionEvent {
	return models.TransactionEvent{ProductID: productID, State: models.TransactionFailed, Error: &models.PlatformError{Code: code, Message: "platform says no"}}
}

var _ ProductResolver = (*product.Cache)(nil)
