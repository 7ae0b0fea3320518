package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"linepay-be/internal/linepay"
	"linepay-be/internal/logger"
	"linepay-be/internal/metrics"
	"linepay-be/internal/order"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// rePostDelay is how long after placement a customer may retry the
// redirect to LINE Pay for an unpaid order.
const rePostDelay = 5 * time.Second

// Processor drives an order through request, confirm and refund. It keeps
// no state between calls: everything is re-derived from the stored order.
type Processor struct {
	orders   OrderStore
	settings SettingsProvider
	gateway  Gateway
	cfg      Config
	stats    *metrics.GatewayStats
	now      func() time.Time
}

type ProcessorOption func(*Processor)

// WithStats records every gateway call's outcome and latency.
func WithStats(stats *metrics.GatewayStats) ProcessorOption {
	return func(p *Processor) { p.stats = stats }
}

func NewProcessor(orders OrderStore, settings SettingsProvider, gateway Gateway, cfg Config, opts ...ProcessorOption) *Processor {
	p := &Processor{
		orders:   orders,
		settings: settings,
		gateway:  gateway,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) observe(op string, timer *metrics.Timer, err error) {
	if p.stats != nil {
		p.stats.Observe(op, linepay.Classify(err).String(), timer.Duration())
	}
}

// RequestPayment registers the order with LINE Pay and returns the URL the
// customer's browser must be sent to. On rejection the order is untouched.
func (p *Processor) RequestPayment(ctx context.Context, orderGUID uuid.UUID) (string, error) {
	ctx = logger.With(ctx, zap.String("order_guid", orderGUID.String()))
	log := logger.FromCtx(ctx)

	o, err := p.orders.GetByGUID(ctx, orderGUID)
	if err != nil {
		return "", err
	}
	if o.IsPaid() {
		return "", ErrAlreadyPaid
	}
	// a second post for an order LINE Pay already knows about is a re-post
	if o.AuthorizationTransactionID != "" && !p.CanRePostProcess(o) {
		return "", ErrRePostTooSoon
	}

	creds, display, err := p.settings.Resolve(ctx, o.StoreID)
	if err != nil {
		return "", err
	}

	req, err := linepay.BuildPaymentRequest(
		linepay.OrderSnapshot{ID: o.ID, GUID: o.GUID, Total: o.Total, StoreName: o.StoreName},
		display,
		linepay.RequestOptions{
			Currency:               p.cfg.Currency,
			ConfirmURL:             p.cfg.ConfirmURL,
			CancelURL:              p.cfg.CancelURL,
			AllowInsecureLocalhost: p.cfg.AllowInsecureLocalhost,
		},
	)
	if err != nil {
		log.Warn("LINE Pay request not built", zap.Error(err))
		return "", err
	}

	timer := metrics.StartTimer()
	res, err := p.gateway.RequestPayment(ctx, creds, req)
	p.observe("request", timer, err)
	if err != nil {
		log.Error("LINE Pay request failed", zap.String("outcome", linepay.Classify(err).String()), zap.Error(err))
		if msg, ok := linepay.GatewayMessage(err); ok {
			return "", &RequestError{Message: msg, Err: err}
		}
		return "", fmt.Errorf("request payment for order %d: %w", o.ID, err)
	}

	txID := strconv.FormatInt(res.Info.TransactionID, 10)
	note := fmt.Sprintf("Payment.LinePay Request Response: %s; Transaction ID: %s.", res.ReturnMessage, txID)
	if err := p.orders.AppendNote(ctx, o.ID, note); err != nil {
		return "", err
	}

	o.AuthorizationTransactionID = txID
	if err := p.orders.Update(ctx, o); err != nil {
		return "", err
	}

	log.Info("LINE Pay payment requested", zap.String("transaction_id", txID))
	return res.Info.PaymentURL.Web, nil
}

// Confirm completes the payment after LINE Pay redirects the customer
// back. The gateway reply is noted on the order before any status change;
// a failed confirm never moves the order backwards.
func (p *Processor) Confirm(ctx context.Context, orderGUID uuid.UUID, transactionID string) (*ConfirmResult, error) {
	ctx = logger.With(ctx,
		zap.String("order_guid", orderGUID.String()),
		zap.String("transaction_id", transactionID),
	)
	log := logger.FromCtx(ctx)

	o, err := p.orders.GetByGUID(ctx, orderGUID)
	if err != nil {
		return nil, err
	}

	creds, _, err := p.settings.Resolve(ctx, o.StoreID)
	if err != nil {
		return nil, err
	}
	amount, err := linepay.WholeAmount(o.Total)
	if err != nil {
		return nil, err
	}

	timer := metrics.StartTimer()
	res, err := p.gateway.ConfirmPayment(ctx, creds, o.GUID.String(), transactionID, linepay.ConfirmRequest{
		Amount:   amount,
		Currency: p.cfg.Currency,
	})
	p.observe("confirm", timer, err)
	if noteErr := p.noteReply(ctx, o.ID, err, func() string {
		if res == nil {
			return "Payment.LinePay Response: no reply"
		}
		return fmt.Sprintf("Payment.LinePay Response: %s", res.ReturnMessage)
	}, "Confirm"); noteErr != nil {
		return nil, noteErr
	}
	if err != nil {
		log.Warn("LINE Pay confirm failed", zap.String("outcome", linepay.Classify(err).String()), zap.Error(err))
		return &ConfirmResult{Order: o, Response: res}, fmt.Errorf("confirm payment for order %d: %w", o.ID, err)
	}

	switch o.PaymentStatus {
	case order.PaymentPartiallyRefunded, order.PaymentRefunded, order.PaymentVoided:
		log.Warn("confirm for an order past payment, status left as is", zap.String("payment_status", string(o.PaymentStatus)))
		return &ConfirmResult{Order: o, Response: res}, nil
	}

	o.AuthorizationTransactionID = transactionID
	o.PaymentStatus = order.PaymentPaid
	if o.Status == order.StatusPending {
		o.Status = order.StatusProcessing
	}
	if o.PaidAt == nil {
		paidAt := p.now().UTC()
		o.PaidAt = &paidAt
	}

	if err := p.orders.Update(ctx, o); err != nil {
		return nil, err
	}

	log.Info("LINE Pay payment confirmed")
	return &ConfirmResult{Order: o, Response: res}, nil
}

// Refund returns money for a paid order. Amount equal to what is still
// refundable refunds the rest of the authorization; anything smaller is a
// partial refund. Refunds accumulate on the order until they reach the total.
func (p *Processor) Refund(ctx context.Context, in RefundInput) (*RefundResult, error) {
	ctx = logger.With(ctx,
		zap.String("order_guid", in.OrderGUID.String()),
		zap.Float64("amount", in.Amount),
	)
	log := logger.FromCtx(ctx)

	o, err := p.orders.GetByGUID(ctx, in.OrderGUID)
	if err != nil {
		return nil, err
	}
	if o.AuthorizationTransactionID == "" {
		return nil, ErrMissingAuthorization
	}
	if o.PaymentStatus != order.PaymentPaid && o.PaymentStatus != order.PaymentPartiallyRefunded {
		return nil, ErrNotRefundable
	}

	total, err := linepay.WholeAmount(o.Total)
	if err != nil {
		return nil, err
	}
	var refunded int64
	if o.RefundedAmount != 0 {
		if refunded, err = linepay.WholeAmount(o.RefundedAmount); err != nil {
			return nil, err
		}
	}
	amount, err := linepay.WholeAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	remaining := total - refunded
	if amount > remaining {
		return nil, fmt.Errorf("%w: refund %d exceeds refundable balance %d", linepay.ErrInvalidOrderState, amount, remaining)
	}

	// LINE Pay refunds the remaining balance when refundAmount is omitted
	req := linepay.RefundRequest{}
	if amount < remaining {
		req.RefundAmount = &amount
	}

	creds, _, err := p.settings.Resolve(ctx, o.StoreID)
	if err != nil {
		return nil, err
	}

	timer := metrics.StartTimer()
	res, err := p.gateway.RefundPayment(ctx, creds, o.GUID.String(), o.AuthorizationTransactionID, req)
	p.observe("refund", timer, err)
	if noteErr := p.noteReply(ctx, o.ID, err, func() string {
		if res == nil {
			return "Payment.LinePay Refund Response: no reply."
		}
		if err == nil && res.Info != nil {
			return fmt.Sprintf("Payment.LinePay Refund Response: %s; Refund Transaction ID: %d.", res.ReturnMessage, res.Info.RefundTransactionID)
		}
		return fmt.Sprintf("Payment.LinePay Refund Response: %s.", res.ReturnMessage)
	}, "Refund"); noteErr != nil {
		return nil, noteErr
	}
	if err != nil {
		log.Warn("LINE Pay refund failed", zap.String("outcome", linepay.Classify(err).String()), zap.Error(err))
		return nil, fmt.Errorf("refund order %d: %w", o.ID, err)
	}

	refunded += amount
	status := order.PaymentPartiallyRefunded
	if refunded == total {
		status = order.PaymentRefunded
	}
	o.PaymentStatus = status
	o.RefundedAmount = float64(refunded)
	if err := p.orders.Update(ctx, o); err != nil {
		return nil, err
	}

	result := &RefundResult{NewPaymentStatus: status, RefundedAmount: o.RefundedAmount}
	if res != nil && res.Info != nil {
		result.RefundTransactionID = res.Info.RefundTransactionID
		result.RefundTransactionDate = res.Info.RefundTransactionDate
	}

	log.Info("LINE Pay refund succeeded", zap.String("payment_status", string(status)), zap.Int64("refunded_total", refunded))
	return result, nil
}

// noteReply records a gateway interaction on the order. A parsed reply is
// noted via replyNote; a transport failure is noted with the error. Errors
// raised before any call was made leave no note.
func (p *Processor) noteReply(ctx context.Context, orderID int64, callErr error, replyNote func() string, op string) error {
	switch linepay.Classify(callErr) {
	case linepay.OutcomeOK, linepay.OutcomeGatewayError:
		return p.orders.AppendNote(ctx, orderID, replyNote())
	case linepay.OutcomeTransportError:
		return p.orders.AppendNote(ctx, orderID, fmt.Sprintf("Payment.LinePay %s Error: %v", op, callErr))
	default:
		return nil
	}
}

// CanRePostProcess reports whether the customer may be sent to LINE Pay
// again for an order that was placed but never paid.
// Capture, void and recurring payments are not offered: confirm always
// captures, so the capabilities below are what the back office may show.
func (p *Processor) CanRePostProcess(o *order.Order) bool {
	if o == nil || o.IsPaid() {
		return false
	}
	return p.now().Sub(o.CreatedAt) >= rePostDelay
}

func (p *Processor) Capabilities() Capabilities {
	return Capabilities{
		SupportCapture:       false,
		SupportRefund:        true,
		SupportPartialRefund: true,
		SupportVoid:          false,
		SupportRecurring:     false,
		SkipPaymentInfo:      false,
		Method:               MethodRedirection,
	}
}
