package linepay

import (
	"errors"
	"fmt"
)

var (
	ErrMisconfiguredCredentials = errors.New("linepay: channel credentials are not configured")
	ErrInvalidOrderState        = errors.New("linepay: invalid order state")
)

// GatewayError is a parsed gateway reply whose return code is not "0000".
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("linepay: gateway rejected request (%s): %s", e.Code, e.Message)
}

// TransportError covers everything that prevented a parseable reply:
// connection failures, timeouts and non-2xx statuses without a return code.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("linepay: transport failure: %v", e.Err)
	}
	return fmt.Sprintf("linepay: unexpected http status %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeGatewayError
	OutcomeTransportError
	OutcomeMisconfigured
	OutcomeInvalidOrder
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeGatewayError:
		return "gateway_error"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeMisconfigured:
		return "misconfigured"
	case OutcomeInvalidOrder:
		return "invalid_order"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by this package onto the result variant
// callers branch on. Unknown errors are reported as transport errors.
func Classify(err error) Outcome {
	var gwErr *GatewayError

	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &gwErr):
		return OutcomeGatewayError
	case errors.Is(err, ErrMisconfiguredCredentials):
		return OutcomeMisconfigured
	case errors.Is(err, ErrInvalidOrderState):
		return OutcomeInvalidOrder
	default:
		return OutcomeTransportError
	}
}

// GatewayMessage returns the gateway's own message when err carries one.
func GatewayMessage(err error) (string, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Message, true
	}
	return "", false
}
