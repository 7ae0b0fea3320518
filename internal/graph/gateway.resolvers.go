package graph

import (
	"context"
	"strings"
)

func (r *Resolver) gatewayStats(ctx context.Context, args map[string]any) (any, error) {
	snap := r.Stats.Snapshot()

	calls := make([]record, 0, len(snap.Calls))
	for _, key := range r.Stats.Keys() {
		calls = append(calls, record{
			"__typename": "GatewayCallCount",
			"key":        key,
			"count":      snap.Calls[key],
		})
	}

	slowest := make([]record, 0, len(snap.SlowestMS))
	for _, key := range r.Stats.Keys() {
		op, _, _ := strings.Cut(key, ".")
		ms, ok := snap.SlowestMS[op]
		if !ok || containsOperation(slowest, op) {
			continue
		}
		slowest = append(slowest, record{
			"__typename": "GatewayLatency",
			"operation":  op,
			"slowestMs":  ms,
		})
	}

	return record{
		"__typename": "GatewayStats",
		"calls":      calls,
		"slowest":    slowest,
	}, nil
}

func (r *Resolver) paymentCapabilities(ctx context.Context, args map[string]any) (any, error) {
	return capabilitiesRecord(r.Payments.Capabilities()), nil
}

func containsOperation(latencies []record, op string) bool {
	for _, l := range latencies {
		if l["operation"] == op {
			return true
		}
	}
	return false
}
