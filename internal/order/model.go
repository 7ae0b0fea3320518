package order

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentAuthorized        PaymentStatus = "AUTHORIZED"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentVoided            PaymentStatus = "VOIDED"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusComplete   OrderStatus = "COMPLETE"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// Order is the host's order as far as payment processing is concerned.
// Only AuthorizationTransactionID, PaymentStatus, Status, PaidAt and
// RefundedAmount are written by the payment flow.
type Order struct {
	ID                         int64
	GUID                       uuid.UUID
	StoreID                    int64
	StoreName                  string
	Total                      float64
	RefundedAmount             float64
	AuthorizationTransactionID string
	PaymentStatus              PaymentStatus
	Status                     OrderStatus
	PaidAt                     *time.Time
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

func (o *Order) IsPaid() bool {
	switch o.PaymentStatus {
	case PaymentPaid, PaymentPartiallyRefunded, PaymentRefunded:
		return true
	}
	return false
}

type Note struct {
	ID                int64
	OrderID           int64
	Note              string
	DisplayToCustomer bool
	CreatedAt         time.Time
}
