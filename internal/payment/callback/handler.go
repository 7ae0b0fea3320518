package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"linepay-be/internal/linepay"
	"linepay-be/internal/logger"
	"linepay-be/internal/order"
	"linepay-be/internal/payment"
	"linepay-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Processor is what the handlers need from payment.Processor.
type Processor interface {
	RequestPayment(ctx context.Context, orderGUID uuid.UUID) (string, error)
	Confirm(ctx context.Context, orderGUID uuid.UUID, transactionID string) (*payment.ConfirmResult, error)
	Refund(ctx context.Context, in payment.RefundInput) (*payment.RefundResult, error)
}

type Handler struct {
	processor    Processor
	completedURL string
}

func NewHandler(processor Processor, completedURL string) *Handler {
	return &Handler{
		processor:    processor,
		completedURL: strings.TrimRight(completedURL, "/"),
	}
}

// Register mounts the LINE Pay routes. admin wraps the back-office routes.
func (h *Handler) Register(mux *http.ServeMux, admin func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /payments/linepay/{orderGuid}", h.RequestPayment)
	mux.HandleFunc("GET /payments/linepay/confirm", h.Confirm)
	mux.Handle("POST /admin/payments/linepay/{orderGuid}/refund", admin(http.HandlerFunc(h.Refund)))
}

// RequestPayment sends the customer's browser to LINE Pay.
func (h *Handler) RequestPayment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	guid, err := uuid.Parse(r.PathValue("orderGuid"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	paymentURL, err := h.processor.RequestPayment(r.Context(), guid)
	if err != nil {
		var reqErr *payment.RequestError
		switch {
		case errors.As(err, &reqErr):
			http.Error(w, reqErr.Error(), http.StatusBadGateway)
		case errors.Is(err, order.ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		case errors.Is(err, payment.ErrAlreadyPaid):
			http.Error(w, "order is already paid", http.StatusConflict)
		case errors.Is(err, payment.ErrRePostTooSoon):
			w.Header().Set("Retry-After", "5")
			http.Error(w, "payment was requested moments ago, try again shortly", http.StatusTooManyRequests)
		default:
			status := statusFor(err)
			log.Error("LINE Pay request failed", zap.String("order_guid", guid.String()), zap.Int("status", status), zap.Error(err))
			http.Error(w, http.StatusText(status), status)
		}
		return
	}

	http.Redirect(w, r, paymentURL, http.StatusSeeOther)
}

// Confirm is where LINE Pay sends the customer back after approval.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	q := r.URL.Query()
	transactionID := q.Get("transactionId")
	guid, err := uuid.Parse(q.Get("orderId"))
	if err != nil || transactionID == "" {
		http.Error(w, "orderId and transactionId are required", http.StatusBadRequest)
		return
	}

	res, err := h.processor.Confirm(r.Context(), guid, transactionID)
	if err != nil {
		if msg, ok := linepay.GatewayMessage(err); ok {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, msg)
			return
		}
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusBadRequest)
			return
		}

		status := statusFor(err)
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		log.Error("LINE Pay confirm failed", zap.String("order_guid", guid.String()), zap.Int("status", status), zap.Error(err))
		http.Error(w, http.StatusText(status), status)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("%s/%d", h.completedURL, res.Order.ID), http.StatusFound)
}

type refundRequest struct {
	Amount float64 `json:"amount"`
}

type refundResponse struct {
	PaymentStatus         order.PaymentStatus `json:"paymentStatus"`
	RefundedAmount        float64             `json:"refundedAmount"`
	RefundTransactionID   int64               `json:"refundTransactionId,omitempty"`
	RefundTransactionDate string              `json:"refundTransactionDate,omitempty"`
}

// Refund lets the back office return all or part of a paid order.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	guid, err := uuid.Parse(r.PathValue("orderGuid"))
	if err != nil {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	var in refundRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&in); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if in.Amount <= 0 {
		utils.WriteJSONError(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	res, err := h.processor.Refund(r.Context(), payment.RefundInput{OrderGUID: guid, Amount: in.Amount})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			utils.WriteJSONError(w, "order not found", http.StatusNotFound)
		case errors.Is(err, payment.ErrNotRefundable), errors.Is(err, payment.ErrMissingAuthorization):
			utils.WriteJSONError(w, err.Error(), http.StatusConflict)
		default:
			status := statusFor(err)
			msg, ok := linepay.GatewayMessage(err)
			if !ok {
				msg = http.StatusText(status)
			}
			if status == http.StatusUnprocessableEntity {
				msg = err.Error()
			}
			log.Error("LINE Pay refund failed", zap.String("order_guid", guid.String()), zap.Int("status", status), zap.Error(err))
			utils.WriteJSONError(w, msg, status)
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, refundResponse{
		PaymentStatus:         res.NewPaymentStatus,
		RefundedAmount:        res.RefundedAmount,
		RefundTransactionID:   res.RefundTransactionID,
		RefundTransactionDate: res.RefundTransactionDate,
	})
}

func statusFor(err error) int {
	switch linepay.Classify(err) {
	case linepay.OutcomeGatewayError, linepay.OutcomeTransportError:
		if isGatewayFailure(err) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	case linepay.OutcomeInvalidOrder:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// isGatewayFailure tells gateway trouble apart from the host's own
// failures, which Classify also reports as transport errors.
func isGatewayFailure(err error) bool {
	var gwErr *linepay.GatewayError
	var tErr *linepay.TransportError
	return errors.As(err, &gwErr) || errors.As(err, &tErr)
}
