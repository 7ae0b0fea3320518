package linepay

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const (
	defaultPackageID = "package-1"
	productIDPrefix  = "order-"
)

// OrderSnapshot is the read-only view of an order the builder needs.
type OrderSnapshot struct {
	ID        int64
	GUID      uuid.UUID
	Total     float64
	StoreName string
}

// MerchantDisplay carries what the payment page shows about the merchant.
type MerchantDisplay struct {
	PictureURL string
	Locale     string
}

type RequestOptions struct {
	Currency   string
	ConfirmURL string
	CancelURL  string
	// AllowInsecureLocalhost lets http://localhost redirect targets through
	// for sandbox testing.
	AllowInsecureLocalhost bool
}

// BuildPaymentRequest turns an order into a Request API payload: one
// package holding one product that stands for the whole order.
func BuildPaymentRequest(order OrderSnapshot, display MerchantDisplay, opts RequestOptions) (*PaymentRequest, error) {
	amount, err := WholeAmount(order.Total)
	if err != nil {
		return nil, err
	}
	if order.GUID == uuid.Nil {
		return nil, fmt.Errorf("%w: order %d has no guid", ErrInvalidOrderState, order.ID)
	}
	if opts.Currency == "" {
		return nil, fmt.Errorf("%w: currency is not configured", ErrInvalidOrderState)
	}
	if err := checkRedirectURL(opts.ConfirmURL, opts.AllowInsecureLocalhost); err != nil {
		return nil, fmt.Errorf("%w: confirm url: %v", ErrInvalidOrderState, err)
	}
	if err := checkRedirectURL(opts.CancelURL, opts.AllowInsecureLocalhost); err != nil {
		return nil, fmt.Errorf("%w: cancel url: %v", ErrInvalidOrderState, err)
	}

	options := &Options{Payment: PaymentOptions{Capture: true}}
	if display.Locale != "" {
		options.Display = &DisplayOptions{Locale: display.Locale}
	}

	req := &PaymentRequest{
		Amount:   amount,
		Currency: opts.Currency,
		OrderID:  order.GUID.String(),
		Packages: []Package{
			{
				ID:     defaultPackageID,
				Amount: amount,
				Name:   order.StoreName,
				Products: []Product{
					{
						ID:       fmt.Sprintf("%s%d", productIDPrefix, order.ID),
						Name:     order.StoreName,
						ImageURL: display.PictureURL,
						Quantity: 1,
						Price:    amount,
					},
				},
			},
		},
		Options: options,
		RedirectURLs: RedirectURLs{
			ConfirmURL: opts.ConfirmURL,
			CancelURL:  opts.CancelURL,
		},
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks the amount invariants the gateway enforces: every
// package amount equals the sum of its products, and the request amount
// equals the sum of its packages.
func (r *PaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidOrderState)
	}
	if len(r.Packages) == 0 {
		return fmt.Errorf("%w: request has no packages", ErrInvalidOrderState)
	}

	var total int64
	for _, p := range r.Packages {
		if len(p.Products) == 0 {
			return fmt.Errorf("%w: package %q has no products", ErrInvalidOrderState, p.ID)
		}

		var sum int64
		for _, item := range p.Products {
			if item.Quantity <= 0 || item.Price < 0 {
				return fmt.Errorf("%w: product %q has invalid quantity or price", ErrInvalidOrderState, item.ID)
			}
			sum += item.Price * item.Quantity
		}
		if sum != p.Amount {
			return fmt.Errorf("%w: package %q amount %d != products total %d", ErrInvalidOrderState, p.ID, p.Amount, sum)
		}
		total += p.Amount
	}

	if total != r.Amount {
		return fmt.Errorf("%w: request amount %d != packages total %d", ErrInvalidOrderState, r.Amount, total)
	}
	return nil
}

// WholeAmount converts an order total to the whole currency units the
// gateway expects. Non-positive or fractional totals are rejected.
func WholeAmount(total float64) (int64, error) {
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		return 0, fmt.Errorf("%w: order total %v must be positive", ErrInvalidOrderState, total)
	}
	if total != math.Trunc(total) {
		return 0, fmt.Errorf("%w: order total %v is not a whole currency amount", ErrInvalidOrderState, total)
	}
	if total > math.MaxInt64/2 {
		return 0, fmt.Errorf("%w: order total %v is out of range", ErrInvalidOrderState, total)
	}
	return int64(total), nil
}

func checkRedirectURL(raw string, allowLocalhost bool) error {
	if raw == "" {
		return fmt.Errorf("not configured")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%q is not absolute", raw)
	}

	switch {
	case u.Scheme == "https":
		return nil
	case u.Scheme == "http" && allowLocalhost && isLocalhost(u.Hostname()):
		return nil
	default:
		return fmt.Errorf("%q must use https", raw)
	}
}

func isLocalhost(host string) bool {
	return strings.EqualFold(host, "localhost") || host == "127.0.0.1" || host == "::1"
}
