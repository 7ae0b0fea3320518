package payment

import "errors"

var (
	ErrAlreadyPaid          = errors.New("order is already paid")
	ErrMissingAuthorization = errors.New("order has no LINE Pay authorization")
	ErrNotRefundable        = errors.New("order is not in a refundable state")
	ErrRePostTooSoon        = errors.New("payment was requested moments ago")
)

// RequestError is what the checkout sees when LINE Pay refuses to open a
// payment. Message is the gateway's own text.
type RequestError struct {
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return "Payment.LinePay Request Error: " + e.Message + "."
}

func (e *RequestError) Unwrap() error { return e.Err }
