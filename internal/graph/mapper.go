package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"linepay-be/internal/order"
	"linepay-be/internal/payment"

	"github.com/google/uuid"
)

// record is a resolved GraphQL object keyed by field name. __typename
// selects the schema type its sub-selection is collected against.
type record map[string]any

func noteRecord(n order.Note) record {
	return record{
		"__typename":        "OrderNote",
		"id":                strconv.FormatInt(n.ID, 10),
		"note":              n.Note,
		"displayToCustomer": n.DisplayToCustomer,
		"createdAt":         n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func refundRecord(res *payment.RefundResult) record {
	rec := record{
		"__typename":            "RefundResult",
		"paymentStatus":         string(res.NewPaymentStatus),
		"refundedAmount":        res.RefundedAmount,
		"refundTransactionId":   nil,
		"refundTransactionDate": nil,
	}
	// transaction ids exceed the 53 bits a JSON number keeps exact
	if res.RefundTransactionID != 0 {
		rec["refundTransactionId"] = strconv.FormatInt(res.RefundTransactionID, 10)
	}
	if res.RefundTransactionDate != "" {
		rec["refundTransactionDate"] = res.RefundTransactionDate
	}
	return rec
}

func capabilitiesRecord(c payment.Capabilities) record {
	return record{
		"__typename":           "PaymentCapabilities",
		"supportCapture":       c.SupportCapture,
		"supportRefund":        c.SupportRefund,
		"supportPartialRefund": c.SupportPartialRefund,
		"supportVoid":          c.SupportVoid,
		"supportRecurring":     c.SupportRecurring,
		"skipPaymentInfo":      c.SkipPaymentInfo,
		"method":               string(c.Method),
	}
}

func uuidArg(args map[string]any, name string) (uuid.UUID, error) {
	raw, ok := args[name].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// floatArg accepts a literal from the query or a variable decoded from the
// request body.
func floatArg(args map[string]any, name string) (float64, error) {
	switch v := args[name].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("%s is required", name)
	}
}
