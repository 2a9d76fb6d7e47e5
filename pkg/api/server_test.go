package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"paystore/internal/history"
	"paystore/internal/models"
	"paystore/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayments struct {
	mu       sync.Mutex
	results  chan payment.Result
	orders   []models.OrderRecord
	removed  []string
	removeFn func(string) error
	restores int
}

func (f *fakePayments) InitiatePurchase(ctx context.Context, productID, orderID string) <-chan payment.Result {
	if productID == "" || orderID == "" {
		ch := make(chan payment.Result, 1)
		ch <- payment.Result{Err: &payment.Error{Kind: payment.KindInvalidOrder, Code: payment.CodeInvalidOrder, Message: "empty"}}
		close(ch)
		return ch
	}
	return f.results
}

func (f *fakePayments) RestorePendingOrders(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restores++
	return nil
}

func (f *fakePayments) RemoveOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeFn != nil {
		if err := f.removeFn(orderID); err != nil {
			return err
		}
	}
	f.removed = append(f.removed, orderID)
	return nil
}

func (f *fakePayments) Orders(ctx context.Context) ([]models.OrderRecord, error) {
	return f.orders, nil
}

type fakeHistory struct {
	condition *history.QueryCondition
	healthErr error
}

func (h *fakeHistory) HealthCheck() error {
	return h.healthErr
}

func (h *fakeHistory) QueryRecords(ctx context.Context, c *history.QueryCondition) ([]*history.Record, error) {
	h.condition = c
	return []*history.Record{{ID: 1, Type: string(payment.EntryCompleted), OrderID: c.OrderID}}, nil
}

func (h *fakeHistory) Count(ctx context.Context, c *history.QueryCondition) (int64, error) {
	return 7, nil
}

type capturedResults struct {
	restored chan models.Receipt
	failed   chan error
}

func (c *capturedResults) OnRestore(r models.Receipt) { c.restored <- r }
func (c *capturedResults) OnFailure(r models.Receipt, err error) { c.failed <- err }

func do(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestCreateOrderAccepted(t *testing.T) {
	payments := &fakePayments{results: make(chan payment.Result, 1)}
	results := &capturedResults{restored: make(chan models.Receipt, 1), failed: make(chan error, 1)}
	s := NewServer(":0", payments, WithResults(results))

	rec, resp := do(t, s, "POST", "/api/v1/orders", `{"productId":"gold","orderId":"o1"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, resp.Success)

	receipt := models.Receipt{TransactionID: "t1", OrderID: "o1", ProductID: "gold"}
	payments.results <- payment.Result{Receipt: receipt}
	select {
	case got := <-results.restored:
		assert.Equal(t, receipt, got)
	case <-time.After(2 * time.Second):
		t.Fatal("result was not forwarded")
	}
}

func TestCreateOrderWaitFailure(t *testing.T) {
	payments := &fakePayments{results: make(chan payment.Result, 1)}
	payments.results <- payment.Result{Err: payment.TranslatePlatformError(payment.PlatformCodePaymentCancelled, "")}
	s := NewServer(":0", payments)

	rec, resp := do(t, s, "POST", "/api/v1/orders?wait=true", `{"productId":"gold","orderId":"o1"}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.False(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, string(payment.KindUserCancelled), data["kind"])
}

func TestCreateOrderWaitTimesOut(t *testing.T) {
	payments := &fakePayments{results: make(chan payment.Result, 1)}
	s := NewServer(":0", payments, WithWaitLimit(20*time.Millisecond))

	rec, resp := do(t, s, "POST", "/api/v1/orders?wait=true", `{"productId":"gold","orderId":"o1"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, resp.Success)
}

func TestCreateOrderInvalid(t *testing.T) {
	s := NewServer(":0", &fakePayments{})

	rec, resp := do(t, s, "POST", "/api/v1/orders", `{"productId":"gold"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = do(t, s, "POST", "/api/v1/orders", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRemoveRestore(t *testing.T) {
	payments := &fakePayments{orders: []models.OrderRecord{{ProductID: "gold", OrderID: "o1"}}}
	s := NewServer(":0", payments)

	rec, resp := do(t, s, "GET", "/api/v1/orders", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data, 1)

	rec, _ = do(t, s, "DELETE", "/api/v1/orders/o1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"o1"}, payments.removed)

	rec, _ = do(t, s, "POST", "/api/v1/orders/restore", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, payments.restores)
}

func TestRemoveOrderStoreFailure(t *testing.T) {
	payments := &fakePayments{removeFn: func(string) error {
		return &payment.Error{Kind: payment.KindStoreUnavailable, Err: errors.New("disk gone")}
	}}
	s := NewServer(":0", payments)

	rec, resp := do(t, s, "DELETE", "/api/v1/orders/o1", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, resp.Message, "disk gone")
}

func TestQueryHistory(t *testing.T) {
	rec, _ := do(t, NewServer(":0", &fakePayments{}), "GET", "/api/v1/history", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	journal := &fakeHistory{}
	s := NewServer(":0", &fakePayments{}, WithJournal(journal))
	rec, resp := do(t, s, "GET", "/api/v1/history?orderId=o1&page=2&size=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	require.NotNil(t, journal.condition)
	assert.Equal(t, "o1", journal.condition.OrderID)
	assert.Equal(t, 5, journal.condition.Limit)
	assert.Equal(t, 5, journal.condition.Offset)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(7), data["total"])
}

func TestHealth(t *testing.T) {
	rec, resp := do(t, NewServer(":0", &fakePayments{}), "GET", "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	journal := &fakeHistory{}
	s := NewServer(":0", &fakePayments{}, WithJournal(journal))
	rec, resp = do(t, s, "GET", "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp.Data.(map[string]interface{})["journal"])

	journal.healthErr = errors.New("database ping failed")
	rec, resp = do(t, s, "GET", "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Success)
}

func TestShutdownBeforeStart(t *testing.T) {
	s := NewServer("127.0.0.1:0", &fakePayments{})
	require.NoError(t, s.Shutdown(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.Start() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
}

func TestStartThenShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", &fakePayments{})
	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
