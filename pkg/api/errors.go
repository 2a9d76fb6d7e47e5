package api

import (
	"errors"
	"net/http"

	"paystore/internal/payment"
)

// ErrorData carries the payment error classification to clients.
type ErrorData struct {
	Kind payment.Kind `json:"kind"`
	Code int          `json:"code,omitempty"`
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	var pe *payment.Error
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError
	}
	switch pe.Kind {
	case payment.KindInvalidOrder:
		return http.StatusBadRequest
	case payment.KindProductNotFound:
		return http.StatusNotFound
	case payment.KindPaymentsDisabled:
		return http.StatusForbidden
	case payment.KindOrderRemoved:
		return http.StatusGone
	case payment.KindPlatformQueryFailed, payment.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	if payment.IsPurchaseFailed(err) {
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

func errorData(err error) interface{} {
	var pe *payment.Error
	if !errors.As(err, &pe) {
		return nil
	}
	return ErrorData{Kind: pe.Kind, Code: pe.Code}
}

func (s *Server) sendError(w http.ResponseWriter, err error) {
	s.sendResponse(w, statusFor(err), false, err.Error(), errorData(err))
}
