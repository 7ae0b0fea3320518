package payment

import (
	"context"

	"linepay-be/internal/linepay"
	"linepay-be/internal/order"

	"github.com/google/uuid"
)

// Gateway is the subset of the LINE Pay client the processor drives.
type Gateway interface {
	RequestPayment(ctx context.Context, creds linepay.Credentials, req *linepay.PaymentRequest) (*linepay.PaymentResponse, error)
	ConfirmPayment(ctx context.Context, creds linepay.Credentials, nonce, transactionID string, req linepay.ConfirmRequest) (*linepay.ConfirmResponse, error)
	RefundPayment(ctx context.Context, creds linepay.Credentials, nonce, authorizationTransactionID string, req linepay.RefundRequest) (*linepay.RefundResponse, error)
}

// OrderStore is the host's order persistence. Update must tolerate being
// called twice with the same values; a replayed confirm relies on it.
type OrderStore interface {
	GetByGUID(ctx context.Context, guid uuid.UUID) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error
	AppendNote(ctx context.Context, orderID int64, note string) error
}

// SettingsProvider resolves channel settings for the order's store. Both
// values come from one settings snapshot.
type SettingsProvider interface {
	Resolve(ctx context.Context, storeID int64) (linepay.Credentials, linepay.MerchantDisplay, error)
}

type MethodType string

const MethodRedirection MethodType = "REDIRECTION"

// Capabilities describes what the LINE Pay method supports to the host's
// checkout and back office.
type Capabilities struct {
	SupportCapture       bool
	SupportRefund        bool
	SupportPartialRefund bool
	SupportVoid          bool
	SupportRecurring     bool
	SkipPaymentInfo      bool
	Method               MethodType
}
