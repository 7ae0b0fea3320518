package linepay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"linepay-be/internal/logger"

	"go.uber.org/zap"
)

const (
	SandboxBaseURL    = "https://sandbox-api-pay.line.me"
	ProductionBaseURL = "https://api-pay.line.me"

	DefaultTimeout = 25 * time.Second
	Version        = "1.0.0"

	RequestPath = "/v3/payments/request"

	headerChannelID = "X-LINE-ChannelId"
	headerNonce     = "X-LINE-Authorization-Nonce"
	headerSignature = "X-LINE-Authorization"

	maxResponseBytes = 1 << 20
)

// ConfirmPath is the Confirm API path for a gateway transaction id.
func ConfirmPath(transactionID string) string {
	return "/v3/" + transactionID + "/confirm"
}

// RefundPath is the Refund API path for an authorization transaction id.
func RefundPath(authorizationTransactionID string) string {
	return "/v3/payments/" + authorizationTransactionID + "/refund"
}

// Client talks to the LINE Pay v3 API. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = SandboxBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "linepay-be/" + Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send serializes body once, signs exactly those bytes and posts them.
// It returns the raw reply for the caller to decode. Non-2xx replies
// that still carry a return code are returned as-is so the caller can
// surface the gateway's message.
func (c *Client) Send(ctx context.Context, creds Credentials, apiPath string, body any, nonce string) ([]byte, error) {
	if creds.ChannelID == "" || creds.ChannelSecret == "" {
		return nil, ErrMisconfiguredCredentials
	}

	log := logger.FromCtx(ctx).With(
		zap.String("api_path", apiPath),
		zap.String("nonce", nonce),
		zap.String("channel_id", creds.ChannelID),
	)

	payload, err := json.Marshal(body)
	if err != nil {
		log.Error("Failed to marshal LINE Pay request", zap.Error(err))
		return nil, fmt.Errorf("linepay: marshal request: %w", err)
	}

	sig, err := Sign(creds.ChannelSecret, apiPath, payload, nonce)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPath, bytes.NewReader(payload))
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return nil, &TransportError{Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(headerChannelID, creds.ChannelID)
	req.Header.Set(headerNonce, nonce)
	req.Header.Set(headerSignature, sig.String())

	log.Info("Sending request to LINE Pay")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("LINE Pay request failed", zap.Error(err))
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.ReturnCode != "" {
			log.Warn("LINE Pay returned non-success status with a return code",
				zap.Int("status", resp.StatusCode),
				zap.String("return_code", env.ReturnCode),
			)
			return raw, nil
		}

		log.Error("LINE Pay returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", raw),
		)
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return raw, nil
}

// RequestPayment calls the Request API. The request's orderId doubles as
// the nonce. On success the reply always carries a web payment URL and
// the transaction id later calls are made against.
func (c *Client) RequestPayment(ctx context.Context, creds Credentials, req *PaymentRequest) (*PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	raw, err := c.Send(ctx, creds, RequestPath, req, req.OrderID)
	if err != nil {
		return nil, err
	}

	var res PaymentResponse
	if err := decode(raw, &res); err != nil {
		return nil, err
	}
	if err := interpret(res.ReturnCode, res.ReturnMessage); err != nil {
		return &res, err
	}
	if res.Info == nil || res.Info.PaymentURL.Web == "" {
		return &res, &TransportError{Err: errors.New("success reply without payment url")}
	}
	if res.Info.TransactionID <= 0 {
		return &res, &TransportError{Err: errors.New("success reply without transaction id")}
	}

	return &res, nil
}

// ConfirmPayment calls the Confirm API for the transaction the gateway
// handed back on the confirm redirect.
func (c *Client) ConfirmPayment(ctx context.Context, creds Credentials, nonce, transactionID string, req ConfirmRequest) (*ConfirmResponse, error) {
	if err := checkTransactionID(transactionID); err != nil {
		return nil, err
	}
	if req.Amount <= 0 || req.Currency == "" {
		return nil, fmt.Errorf("%w: confirm needs a positive amount and a currency", ErrInvalidOrderState)
	}

	raw, err := c.Send(ctx, creds, ConfirmPath(transactionID), req, nonce)
	if err != nil {
		return nil, err
	}

	var res ConfirmResponse
	if err := decode(raw, &res); err != nil {
		return nil, err
	}
	return &res, interpret(res.ReturnCode, res.ReturnMessage)
}

// RefundPayment calls the Refund API against an authorization.
func (c *Client) RefundPayment(ctx context.Context, creds Credentials, nonce, authorizationTransactionID string, req RefundRequest) (*RefundResponse, error) {
	if err := checkTransactionID(authorizationTransactionID); err != nil {
		return nil, err
	}
	if req.RefundAmount != nil && *req.RefundAmount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", ErrInvalidOrderState)
	}

	raw, err := c.Send(ctx, creds, RefundPath(authorizationTransactionID), req, nonce)
	if err != nil {
		return nil, err
	}

	var res RefundResponse
	if err := decode(raw, &res); err != nil {
		return nil, err
	}
	return &res, interpret(res.ReturnCode, res.ReturnMessage)
}

func decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &TransportError{Body: string(raw), Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func interpret(code, message string) error {
	if code == ReturnCodeSuccess {
		return nil
	}
	return &GatewayError{Code: code, Message: message}
}

// checkTransactionID rejects anything that is not the gateway's 64-bit id,
// since it is spliced into the signed path.
func checkTransactionID(id string) error {
	if _, err := strconv.ParseUint(id, 10, 63); err != nil {
		return fmt.Errorf("%w: transaction id %q is not numeric", ErrInvalidOrderState, id)
	}
	return nil
}
