package payment

import (
	"linepay-be/internal/linepay"
	"linepay-be/internal/order"

	"github.com/google/uuid"
)

type Config struct {
	Currency               string
	ConfirmURL             string
	CancelURL              string
	AllowInsecureLocalhost bool
}

type ConfirmResult struct {
	Order    *order.Order
	Response *linepay.ConfirmResponse
}

type RefundInput struct {
	OrderGUID uuid.UUID
	// Amount in whole currency units; equal to the refundable balance
	// means the rest of the order is refunded.
	Amount float64
}

type RefundResult struct {
	NewPaymentStatus      order.PaymentStatus
	RefundedAmount        float64
	RefundTransactionID   int64
	RefundTransactionDate string
}
