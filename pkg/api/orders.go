package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"paystore/internal/history"
	"paystore/internal/payment"
	"paystore/pkg/utils"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
)

type createOrderRequest struct {
	ProductID string `json:"productId"`
	OrderID   string `json:"orderId"`
}

type historyPage struct {
	Total   int64             `json:"total"`
	Records []*history.Record `json:"records"`
}

// POST /api/v1/orders
func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendResponse(w, http.StatusBadRequest, false, "invalid request body: "+err.Error(), nil)
		return
	}
	glog.Infof("POST /orders product:%s order:%s", req.ProductID, req.OrderID)

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))

	// the purchase outlives the request
	results := s.payments.InitiatePurchase(context.Background(), req.ProductID, req.OrderID)

	if !wait {
		// validation failures are already resolved on return
		select {
		case res := <-results:
			if res.Err != nil {
				s.sendError(w, res.Err)
				return
			}
			s.sendResponse(w, http.StatusOK, true, "purchase completed", res.Receipt)
			return
		default:
		}
		go s.forward(req.OrderID, results)
		s.sendResponse(w, http.StatusAccepted, true, "purchase initiated", req)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.waitLimit)
	defer cancel()
	select {
	case res := <-results:
		if res.Err != nil {
			s.sendError(w, res.Err)
			return
		}
		s.sendResponse(w, http.StatusOK, true, "purchase completed", res.Receipt)
	case <-ctx.Done():
		go s.forward(req.OrderID, results)
		s.sendResponse(w, http.StatusAccepted, true, "purchase still in progress", req)
	}
}

// forward hands an asynchronous purchase outcome to the results delegate.
func (s *Server) forward(orderID string, results <-chan payment.Result) {
	res, ok := <-results
	if !ok {
		return
	}
	if res.Err != nil {
		glog.Warningf("purchase of order %s failed: %v", orderID, res.Err)
		if s.results != nil {
			s.results.OnFailure(res.Receipt, res.Err)
		}
		return
	}
	glog.Infof("purchase of order %s completed with transaction %s", orderID, res.Receipt.TransactionID)
	if s.results != nil {
		s.results.OnRestore(res.Receipt)
	}
}

// GET /api/v1/orders
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.payments.Orders(r.Context())
	if err != nil {
		s.sendError(w, err)
		return
	}
	s.sendResponse(w, http.StatusOK, true, "orders retrieved successfully", orders)
}

// DELETE /api/v1/orders/{orderId}
func (s *Server) removeOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]
	glog.Infof("DELETE /orders/%s", orderID)

	if err := s.payments.RemoveOrder(r.Context(), orderID); err != nil {
		s.sendError(w, err)
		return
	}
	s.sendResponse(w, http.StatusOK, true, "order removed", nil)
}

// POST /api/v1/orders/restore
func (s *Server) restoreOrders(w http.ResponseWriter, r *http.Request) {
	if err := s.payments.RestorePendingOrders(r.Context()); err != nil {
		s.sendError(w, err)
		return
	}
	s.sendResponse(w, http.StatusOK, true, "restore sweep finished", nil)
}

// GET /api/v1/history?orderId=&productId=&type=&page=&size=
func (s *Server) queryHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.sendResponse(w, http.StatusNotImplemented, false, "journal is not enabled", nil)
		return
	}

	q := r.URL.Query()
	from, size := utils.VerifyFromAndSize(q.Get("page"), q.Get("size"))
	condition := &history.QueryCondition{
		Type:      payment.EntryType(q.Get("type")),
		OrderID:   q.Get("orderId"),
		ProductID: q.Get("productId"),
		Limit:     size,
		Offset:    from,
	}

	records, err := s.journal.QueryRecords(r.Context(), condition)
	if err != nil {
		s.sendResponse(w, http.StatusInternalServerError, false, "failed to query history: "+err.Error(), nil)
		return
	}
	total, err := s.journal.Count(r.Context(), condition)
	if err != nil {
		s.sendResponse(w, http.StatusInternalServerError, false, "failed to count history: "+err.Error(), nil)
		return
	}
	s.sendResponse(w, http.StatusOK, true, "history retrieved successfully", historyPage{Total: total, Records: records})
}
