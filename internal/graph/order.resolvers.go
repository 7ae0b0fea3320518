package graph

import (
	"context"
	"errors"

	"linepay-be/internal/linepay"
	"linepay-be/internal/logger"
	"linepay-be/internal/payment"

	"go.uber.org/zap"
)

var errGatewayUnavailable = errors.New("LINE Pay is unavailable, try again later")

func (r *Resolver) orderNotes(ctx context.Context, args map[string]any) (any, error) {
	guid, err := uuidArg(args, "orderGuid")
	if err != nil {
		return nil, err
	}

	o, err := r.Orders.GetByGUID(ctx, guid)
	if err != nil {
		return nil, err
	}
	notes, err := r.Orders.ListNotes(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	out := make([]record, len(notes))
	for i, n := range notes {
		out[i] = noteRecord(n)
	}
	return out, nil
}

func (r *Resolver) refundOrder(ctx context.Context, args map[string]any) (any, error) {
	guid, err := uuidArg(args, "orderGuid")
	if err != nil {
		return nil, err
	}
	amount, err := floatArg(args, "amount")
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}

	res, err := r.Payments.Refund(ctx, payment.RefundInput{OrderGUID: guid, Amount: amount})
	if err != nil {
		if msg, ok := linepay.GatewayMessage(err); ok {
			return nil, errors.New(msg)
		}
		if linepay.Classify(err) == linepay.OutcomeTransportError && isGatewayFailure(err) {
			logger.FromCtx(ctx).Error("LINE Pay refund failed", zap.String("order_guid", guid.String()), zap.Error(err))
			return nil, errGatewayUnavailable
		}
		return nil, err
	}
	return refundRecord(res), nil
}

func isGatewayFailure(err error) bool {
	var tErr *linepay.TransportError
	return errors.As(err, &tErr)
}
