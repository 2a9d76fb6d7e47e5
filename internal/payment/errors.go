package payment

import (
	"errors"
	"fmt"
)

// Kind classifies the errors delivered by the payment service.
type Kind string

const (
	KindInvalidOrder        Kind = "invalid_order"
	KindPaymentsDisabled    Kind = "payments_disabled"
	KindProductNotFound     Kind = "product_not_found"
	KindPlatformQueryFailed Kind = "platform_query_failed"
	KindStoreUnavailable    Kind = "store_unavailable"
	KindOrderRemoved        Kind = "order_removed"

	// purchase failed family, translated from platform codes
	KindUserCancelled            Kind = "user_cancelled"
	KindPermissionRevoked        Kind = "permission_revoked"
	KindInvalidPaymentParameters Kind = "invalid_payment_parameters"
	KindPaymentNotAuthorized     Kind = "payment_not_authorized"
	KindProductUnavailable       Kind = "product_unavailable"
	KindNetworkUnavailable       Kind = "network_unavailable"
	KindUnknown                  Kind = "unknown"
)

// Error codes shared with the client SDK.
const (
	CodeInvalidOrder     = 1002
	CodePaymentsDisabled = 1003
	CodeProductNotFound  = 100020
)

// Platform error codes as numbered by the platform payment queue.
const (
	PlatformCodeUnknown               = 0
	PlatformCodeClientInvalid         = 1
	PlatformCodePaymentCancelled      = 2
	PlatformCodePaymentInvalid        = 3
	PlatformCodePaymentNotAllowed     = 4
	PlatformCodeProductNotAvailable   = 5
	PlatformCodeCloudPermissionDenied = 6
	PlatformCodeCloudNetworkFailed    = 7
	PlatformCodeCloudServiceRevoked   = 8
)

// Error is the error type delivered through results and the delegate.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (%d): %s", e.Kind, e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidOrder        = &Error{Kind: KindInvalidOrder}
	ErrPaymentsDisabled    = &Error{Kind: KindPaymentsDisabled}
	ErrProductNotFound     = &Error{Kind: KindProductNotFound}
	ErrPlatformQueryFailed = &Error{Kind: KindPlatformQueryFailed}
	ErrStoreUnavailable    = &Error{Kind: KindStoreUnavailable}
	ErrOrderRemoved        = &Error{Kind: KindOrderRemoved}

	ErrUserCancelled            = &Error{Kind: KindUserCancelled}
	ErrPermissionRevoked        = &Error{Kind: KindPermissionRevoked}
	ErrInvalidPaymentParameters = &Error{Kind: KindInvalidPaymentParameters}
	ErrPaymentNotAuthorized     = &Error{Kind: KindPaymentNotAuthorized}
	ErrProductUnavailable       = &Error{Kind: KindProductUnavailable}
	ErrNetworkUnavailable       = &Error{Kind: KindNetworkUnavailable}
	ErrUnknown                  = &Error{Kind: KindUnknown}
)

func newError(kind Kind, code int, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: cause}
}

// IsPurchaseFailed reports whether err was translated from a platform failure.
func IsPurchaseFailed(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Kind {
	case KindUserCancelled, KindPermissionRevoked, KindInvalidPaymentParameters,
		KindPaymentNotAuthorized, KindProductUnavailable, KindNetworkUnavailable, KindUnknown:
		return true
	}
	return false
}

// TranslatePlatformError maps a platform error code onto the purchase failed family.
func TranslatePlatformError(code int, message string) *Error {
	var kind Kind
	var text string
	switch code {
	case PlatformCodePaymentCancelled:
		kind, text = KindUserCancelled, "purchase failed, the payment was cancelled"
	case PlatformCodeCloudServiceRevoked:
		kind, text = KindPermissionRevoked, "permission to use this cloud service was revoked"
	case PlatformCodePaymentInvalid:
		kind, text = KindInvalidPaymentParameters, "the store could not recognize the payment parameters"
	case PlatformCodePaymentNotAllowed:
		kind, text = KindPaymentNotAuthorized, "the device is not allowed to authorize payments"
	case PlatformCodeProductNotAvailable:
		kind, text = KindProductUnavailable, "the requested product is not available in the store"
	case PlatformCodeCloudNetworkFailed:
		kind, text = KindNetworkUnavailable, "the device could not connect to the network"
	default:
		kind, text = KindUnknown, "unknown error"
	}

	var cause error
	if message != "" {
		cause = errors.New(message)
	}
	return newError(kind, code, text, cause)
}
