package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"linepay-be/internal/linepay"
	"linepay-be/internal/metrics"
	"linepay-be/internal/order"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ---- mocks ----

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) GetByGUID(ctx context.Context, guid uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, guid)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderStore) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderStore) AppendNote(ctx context.Context, orderID int64, note string) error {
	args := m.Called(ctx, orderID, note)
	return args.Error(0)
}

type MockSettings struct {
	mock.Mock
}

func (m *MockSettings) Resolve(ctx context.Context, storeID int64) (linepay.Credentials, linepay.MerchantDisplay, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).(linepay.Credentials), args.Get(1).(linepay.MerchantDisplay), args.Error(2)
}

type MockRoundTripper func(req *http.Request) (*http.Response, error)

func (f MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

// ---- helpers ----

var (
	testGUID  = uuid.MustParse("3f1b6f52-8a8e-4c51-9d1f-2f5c7d0b9e11")
	testCreds = linepay.Credentials{ChannelID: "1657146343", ChannelSecret: "a8f55c90dfd0e5394ea0f63a4f601fe3"}
	testNow   = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

func testConfig() Config {
	return Config{
		Currency:   "TWD",
		ConfirmURL: "https://shop.example/payments/linepay/confirm",
		CancelURL:  "https://shop.example/checkout",
	}
}

func pendingOrder() *order.Order {
	return &order.Order{
		ID:            7,
		GUID:          testGUID,
		StoreID:       1,
		StoreName:     "Shop",
		Total:         500,
		PaymentStatus: order.PaymentPending,
		Status:        order.StatusPending,
		CreatedAt:     testNow.Add(-time.Minute),
	}
}

func paidOrder() *order.Order {
	o := pendingOrder()
	paidAt := testNow.Add(-time.Hour)
	o.AuthorizationTransactionID = "2019060112345678910"
	o.PaymentStatus = order.PaymentPaid
	o.Status = order.StatusProcessing
	o.PaidAt = &paidAt
	return o
}

func newTestProcessor(orders OrderStore, settings SettingsProvider, rt http.RoundTripper) *Processor {
	client := linepay.NewClient(linepay.SandboxBaseURL, linepay.WithHTTPClient(&http.Client{Transport: rt}))
	p := NewProcessor(orders, settings, client, testConfig())
	p.now = func() time.Time { return testNow }
	return p
}

func respondWith(t *testing.T, wantPath string, status int, body string) MockRoundTripper {
	return func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, wantPath, req.URL.Path)
		return jsonResponse(status, body), nil
	}
}

// ---- tests ----

func TestProcessor_RequestPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)

		var sent linepay.PaymentRequest
		rt := MockRoundTripper(func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, linepay.RequestPath, req.URL.Path)
			assert.Equal(t, testGUID.String(), req.Header.Get("X-LINE-Authorization-Nonce"))
			require.NoError(t, json.NewDecoder(req.Body).Decode(&sent))
			return jsonResponse(http.StatusOK, `{"returnCode":"0000","returnMessage":"OK","info":{"paymentUrl":{"web":"https://pay.example/x"},"transactionId":2019060112345678910}}`), nil
		})
		p := newTestProcessor(orders, settings, rt)

		orders.On("GetByGUID", mock.Anything, testGUID).Return(pendingOrder(), nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{PictureURL: "https://cdn.shop.example/logo.png"}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), "Payment.LinePay Request Response: OK; Transaction ID: 2019060112345678910.").Return(nil)
		orders.On("Update", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
			return o.AuthorizationTransactionID == "2019060112345678910" && o.PaymentStatus == order.PaymentPending
		})).Return(nil)

		url, err := p.RequestPayment(ctx, testGUID)

		require.NoError(t, err)
		assert.Equal(t, "https://pay.example/x", url)
		assert.Equal(t, int64(500), sent.Amount)
		assert.Equal(t, "TWD", sent.Currency)
		orders.AssertExpectations(t)
		settings.AssertExpectations(t)
	})

	t.Run("GatewayRejected_NoMutation", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)
		p := newTestProcessor(orders, settings, respondWith(t, linepay.RequestPath, http.StatusOK, `{"returnCode":"1104","returnMessage":"Invalid channel"}`))

		orders.On("GetByGUID", mock.Anything, testGUID).Return(pendingOrder(), nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)

		stats := metrics.NewGatewayStats()
		WithStats(stats)(p)

		url, err := p.RequestPayment(ctx, testGUID)

		assert.Equal(t, uint64(1), stats.Snapshot().Calls["request.gateway_error"])
		assert.Empty(t, url)
		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, "Invalid channel", reqErr.Message)
		assert.Equal(t, "Payment.LinePay Request Error: Invalid channel.", err.Error())
		assert.Equal(t, linepay.OutcomeGatewayError, linepay.Classify(err))
		orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		orders.AssertNotCalled(t, "AppendNote", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SuccessWithoutTransactionID_NoMutation", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)
		p := newTestProcessor(orders, settings, respondWith(t, linepay.RequestPath, http.StatusOK, `{"returnCode":"0000","returnMessage":"OK","info":{"paymentUrl":{"web":"https://pay.example/x"}}}`))

		orders.On("GetByGUID", mock.Anything, testGUID).Return(pendingOrder(), nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)

		url, err := p.RequestPayment(ctx, testGUID)

		assert.Empty(t, url)
		assert.Equal(t, linepay.OutcomeTransportError, linepay.Classify(err))
		orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		orders.AssertNotCalled(t, "AppendNote", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RePostTooSoon", func(t *testing.T) {
		orders := new(MockOrderStore)
		p := newTestProcessor(orders, new(MockSettings), nil)

		o := pendingOrder()
		o.CreatedAt = testNow.Add(-2 * time.Second)
		o.AuthorizationTransactionID = "2019060112345678910"
		orders.On("GetByGUID", mock.Anything, testGUID).Return(o, nil)

		_, err := p.RequestPayment(ctx, testGUID)
		assert.ErrorIs(t, err, ErrRePostTooSoon)
	})

	t.Run("RePostAllowed", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)
		p := newTestProcessor(orders, settings, respondWith(t, linepay.RequestPath, http.StatusOK, `{"returnCode":"0000","returnMessage":"OK","info":{"paymentUrl":{"web":"https://pay.example/y"},"transactionId":2019060112345678999}}`))

		o := pendingOrder()
		o.AuthorizationTransactionID = "2019060112345678910"
		orders.On("GetByGUID", mock.Anything, testGUID).Return(o, nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), mock.Anything).Return(nil)
		orders.On("Update", mock.Anything, mock.Anything).Return(nil)

		url, err := p.RequestPayment(ctx, testGUID)

		require.NoError(t, err)
		assert.Equal(t, "https://pay.example/y", url)
		assert.Equal(t, "2019060112345678999", o.AuthorizationTransactionID)
	})

	t.Run("AlreadyPaid", func(t *testing.T) {
		orders := new(MockOrderStore)
		p := newTestProcessor(orders, new(MockSettings), nil)

		orders.On("GetByGUID", mock.Anything, testGUID).Return(paidOrder(), nil)

		_, err := p.RequestPayment(ctx, testGUID)
		assert.ErrorIs(t, err, ErrAlreadyPaid)
	})

	t.Run("Misconfigured", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)
		p := newTestProcessor(orders, settings, nil)

		orders.On("GetByGUID", mock.Anything, testGUID).Return(pendingOrder(), nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(linepay.Credentials{}, linepay.MerchantDisplay{}, linepay.ErrMisconfiguredCredentials)

		_, err := p.RequestPayment(ctx, testGUID)
		assert.Equal(t, linepay.OutcomeMisconfigured, linepay.Classify(err))
	})

	t.Run("FractionalTotal", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)
		p := newTestProcessor(orders, settings, nil)

		o := pendingOrder()
		o.Total = 499.5
		orders.On("GetByGUID", mock.Anything, testGUID).Return(o, nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)

		_, err := p.RequestPayment(ctx, testGUID)
		assert.Equal(t, linepay.OutcomeInvalidOrder, linepay.Classify(err))
	})

	t.Run("OrderNotFound", func(t *testing.T) {
		orders := new(MockOrderStore)
		p := newTestProcessor(orders, new(MockSettings), nil)

		orders.On("GetByGUID", mock.Anything, testGUID).Return(nil, order.ErrOrderNotFound)

		_, err := p.RequestPayment(ctx, testGUID)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestProcessor_Confirm(t *testing.T) {
	ctx := context.Background()
	const txID = "2019060112345678910"
	confirmPath := linepay.ConfirmPath(txID)

	t.Run("Success_MarksPaid", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)

		var sent linepay.ConfirmRequest
		rt := MockRoundTripper(func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, confirmPath, req.URL.Path)
			require.NoError(t, json.NewDecoder(req.Body).Decode(&sent))
			return jsonResponse(http.StatusOK, `{"returnCode":"0000","returnMessage":"Success."}`), nil
		})
		p := newTestProcessor(orders, settings, rt)

		var calls []string
		orders.On("GetByGUID", mock.Anything, testGUID).Return(pendingOrder(), nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), "Payment.LinePay Response: Success.").
			Run(func(mock.Arguments) { calls = append(calls, "note") }).Return(nil)
		orders.On("Update", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { calls = append(calls, "update") }).Return(nil)

		res, err := p.Confirm(ctx, testGUID, txID)

		require.NoError(t, err)
		assert.Equal(t, []string{"note", "update"}, calls)
		assert.Equal(t, int64(500), sent.Amount)
		assert.Equal(t, "TWD", sent.Currency)
		assert.Equal(t, order.PaymentPaid, res.Order.PaymentStatus)
		assert.Equal(t, order.StatusProcessing, res.Order.Status)
		assert.Equal(t, txID, res.Order.AuthorizationTransactionID)
		require.NotNil(t, res.Order.PaidAt)
		assert.Equal(t, testNow, *res.Order.PaidAt)
		orders.AssertExpectations(t)
	})

	t.Run("Replay_KeepsPaidAt", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)
		p := newTestProcessor(orders, settings, respondWith(t, confirmPath, http.StatusOK, `{"returnCode":"0000","returnMessage":"Success."}`))

		existing := paidOrder()
		firstPaidAt := *existing.PaidAt
		orders.On("GetByGUID", mock.Anything, testGUID).Return(existing, nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), mock.Anything).Return(nil)
		orders.On("Update", mock.Anything, mock.Anything).Return(nil)

		res, err := p.Confirm(ctx, testGUID, txID)

		require.NoError(t, err)
		assert.Equal(t, order.PaymentPaid, res.Order.PaymentStatus)
		assert.Equal(t, firstPaidAt, *res.Order.PaidAt)
	})

	t.Run("RefundedOrder_NotReverted", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)
		p := newTestProcessor(orders, settings, respondWith(t, confirmPath, http.StatusOK, `{"returnCode":"0000","returnMessage":"Success."}`))

		refunded := paidOrder()
		refunded.PaymentStatus = order.PaymentRefunded
		orders.On("GetByGUID", mock.Anything, testGUID).Return(refunded, nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), mock.Anything).Return(nil)

		res, err := p.Confirm(ctx, testGUID, txID)

		require.NoError(t, err)
		assert.Equal(t, order.PaymentRefunded, res.Order.PaymentStatus)
		orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("GatewayRejected_NoteOnly", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)
		p := newTestProcessor(orders, settings, respondWith(t, confirmPath, http.StatusOK, `{"returnCode":"1150","returnMessage":"Transaction record not found."}`))

		orders.On("GetByGUID", mock.Anything, testGUID).Return(pendingOrder(), nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), "Payment.LinePay Response: Transaction record not found.").Return(nil)

		res, err := p.Confirm(ctx, testGUID, txID)

		assert.Equal(t, linepay.OutcomeGatewayError, linepay.Classify(err))
		msg, ok := linepay.GatewayMessage(err)
		assert.True(t, ok)
		assert.Equal(t, "Transaction record not found.", msg)
		require.NotNil(t, res)
		assert.Equal(t, order.PaymentPending, res.Order.PaymentStatus)
		orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		orders.AssertExpectations(t)
	})

	t.Run("TransportFailure_ErrorNote", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)
		rt := MockRoundTripper(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection reset")
		})
		p := newTestProcessor(orders, settings, rt)

		orders.On("GetByGUID", mock.Anything, testGUID).Return(pendingOrder(), nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), mock.MatchedBy(func(note string) bool {
			return bytes.HasPrefix([]byte(note), []byte("Payment.LinePay Confirm Error: "))
		})).Return(nil)

		_, err := p.Confirm(ctx, testGUID, txID)

		assert.Equal(t, linepay.OutcomeTransportError, linepay.Classify(err))
		orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		orders.AssertExpectations(t)
	})

	t.Run("NonNumericTransaction_NoCall", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)
		rt := MockRoundTripper(func(req *http.Request) (*http.Response, error) {
			t.Fatal("gateway must not be called")
			return nil, nil
		})
		p := newTestProcessor(orders, settings, rt)

		orders.On("GetByGUID", mock.Anything, testGUID).Return(pendingOrder(), nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)

		_, err := p.Confirm(ctx, testGUID, "../payments/request")

		assert.Equal(t, linepay.OutcomeInvalidOrder, linepay.Classify(err))
		orders.AssertNotCalled(t, "AppendNote", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProcessor_Refund(t *testing.T) {
	ctx := context.Background()
	refundPath := linepay.RefundPath("2019060112345678910")
	okReply := `{"returnCode":"0000","returnMessage":"Success.","info":{"refundTransactionId":2019060112345678911,"refundTransactionDate":"2019-06-01T09:00:00Z"}}`

	t.Run("Partial", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)

		var sent map[string]any
		rt := MockRoundTripper(func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, refundPath, req.URL.Path)
			require.NoError(t, json.NewDecoder(req.Body).Decode(&sent))
			return jsonResponse(http.StatusOK, okReply), nil
		})
		p := newTestProcessor(orders, settings, rt)

		orders.On("GetByGUID", mock.Anything, testGUID).Return(paidOrder(), nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), "Payment.LinePay Refund Response: Success.; Refund Transaction ID: 2019060112345678911.").Return(nil)
		orders.On("Update", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
			return o.PaymentStatus == order.PaymentPartiallyRefunded && o.RefundedAmount == 200
		})).Return(nil)

		res, err := p.Refund(ctx, RefundInput{OrderGUID: testGUID, Amount: 200})

		require.NoError(t, err)
		assert.Equal(t, float64(200), sent["refundAmount"])
		assert.Equal(t, order.PaymentPartiallyRefunded, res.NewPaymentStatus)
		assert.Equal(t, float64(200), res.RefundedAmount)
		assert.Equal(t, int64(2019060112345678911), res.RefundTransactionID)
		assert.Equal(t, "2019-06-01T09:00:00Z", res.RefundTransactionDate)
		orders.AssertExpectations(t)
	})

	t.Run("Full_OmitsAmount", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)

		var sent map[string]any
		rt := MockRoundTripper(func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&sent))
			return jsonResponse(http.StatusOK, okReply), nil
		})
		p := newTestProcessor(orders, settings, rt)

		orders.On("GetByGUID", mock.Anything, testGUID).Return(paidOrder(), nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), mock.Anything).Return(nil)
		orders.On("Update", mock.Anything, mock.Anything).Return(nil)

		res, err := p.Refund(ctx, RefundInput{OrderGUID: testGUID, Amount: 500})

		require.NoError(t, err)
		assert.NotContains(t, sent, "refundAmount")
		assert.Equal(t, order.PaymentRefunded, res.NewPaymentStatus)
	})

	t.Run("PartialThenFull", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)

		var bodies []map[string]any
		rt := MockRoundTripper(func(req *http.Request) (*http.Response, error) {
			var sent map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&sent))
			bodies = append(bodies, sent)
			return jsonResponse(http.StatusOK, okReply), nil
		})
		p := newTestProcessor(orders, settings, rt)

		stored := paidOrder()
		orders.On("GetByGUID", mock.Anything, testGUID).Return(stored, nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), mock.Anything).Return(nil)
		orders.On("Update", mock.Anything, mock.Anything).Return(nil)

		first, err := p.Refund(ctx, RefundInput{OrderGUID: testGUID, Amount: 200})
		require.NoError(t, err)
		assert.Equal(t, order.PaymentPartiallyRefunded, first.NewPaymentStatus)

		second, err := p.Refund(ctx, RefundInput{OrderGUID: testGUID, Amount: 300})
		require.NoError(t, err)

		require.Len(t, bodies, 2)
		assert.Equal(t, float64(200), bodies[0]["refundAmount"])
		assert.NotContains(t, bodies[1], "refundAmount")
		assert.Equal(t, order.PaymentRefunded, second.NewPaymentStatus)
		assert.Equal(t, float64(500), stored.RefundedAmount)
	})

	t.Run("PartialThenPartialToTotal", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)

		var bodies []map[string]any
		rt := MockRoundTripper(func(req *http.Request) (*http.Response, error) {
			var sent map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&sent))
			bodies = append(bodies, sent)
			return jsonResponse(http.StatusOK, okReply), nil
		})
		p := newTestProcessor(orders, settings, rt)

		stored := paidOrder()
		orders.On("GetByGUID", mock.Anything, testGUID).Return(stored, nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), mock.Anything).Return(nil)
		orders.On("Update", mock.Anything, mock.Anything).Return(nil)

		var statuses []order.PaymentStatus
		for _, amount := range []float64{100, 150, 250} {
			res, err := p.Refund(ctx, RefundInput{OrderGUID: testGUID, Amount: amount})
			require.NoError(t, err)
			statuses = append(statuses, res.NewPaymentStatus)
		}

		assert.Equal(t, []order.PaymentStatus{
			order.PaymentPartiallyRefunded,
			order.PaymentPartiallyRefunded,
			order.PaymentRefunded,
		}, statuses)
		assert.Equal(t, float64(100), bodies[0]["refundAmount"])
		assert.Equal(t, float64(150), bodies[1]["refundAmount"])
		assert.NotContains(t, bodies[2], "refundAmount")
		assert.Equal(t, float64(500), stored.RefundedAmount)
	})

	t.Run("ExceedsTotal", func(t *testing.T) {
		orders := new(MockOrderStore)
		p := newTestProcessor(orders, new(MockSettings), nil)

		orders.On("GetByGUID", mock.Anything, testGUID).Return(paidOrder(), nil)

		_, err := p.Refund(ctx, RefundInput{OrderGUID: testGUID, Amount: 501})
		assert.ErrorIs(t, err, linepay.ErrInvalidOrderState)
	})

	t.Run("ExceedsRemaining_NoCall", func(t *testing.T) {
		orders := new(MockOrderStore)
		rt := MockRoundTripper(func(req *http.Request) (*http.Response, error) {
			t.Fatal("gateway must not be called")
			return nil, nil
		})
		p := newTestProcessor(orders, new(MockSettings), rt)

		o := paidOrder()
		o.PaymentStatus = order.PaymentPartiallyRefunded
		o.RefundedAmount = 200
		orders.On("GetByGUID", mock.Anything, testGUID).Return(o, nil)

		_, err := p.Refund(ctx, RefundInput{OrderGUID: testGUID, Amount: 500})

		assert.ErrorIs(t, err, linepay.ErrInvalidOrderState)
		assert.Equal(t, order.PaymentPartiallyRefunded, o.PaymentStatus)
		orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		orders.AssertNotCalled(t, "AppendNote", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NotPaid", func(t *testing.T) {
		orders := new(MockOrderStore)
		p := newTestProcessor(orders, new(MockSettings), nil)

		o := pendingOrder()
		o.AuthorizationTransactionID = "2019060112345678910"
		orders.On("GetByGUID", mock.Anything, testGUID).Return(o, nil)

		_, err := p.Refund(ctx, RefundInput{OrderGUID: testGUID, Amount: 100})
		assert.ErrorIs(t, err, ErrNotRefundable)
	})

	t.Run("NoAuthorization", func(t *testing.T) {
		orders := new(MockOrderStore)
		p := newTestProcessor(orders, new(MockSettings), nil)

		o := paidOrder()
		o.AuthorizationTransactionID = ""
		orders.On("GetByGUID", mock.Anything, testGUID).Return(o, nil)

		_, err := p.Refund(ctx, RefundInput{OrderGUID: testGUID, Amount: 100})
		assert.ErrorIs(t, err, ErrMissingAuthorization)
	})

	t.Run("GatewayRejected", func(t *testing.T) {
		orders := new(MockOrderStore)
		settings := new(MockSettings)
		p := newTestProcessor(orders, settings, respondWith(t, refundPath, http.StatusOK, `{"returnCode":"1165","returnMessage":"Already refunded."}`))

		orders.On("GetByGUID", mock.Anything, testGUID).Return(paidOrder(), nil)
		settings.On("Resolve", mock.Anything, int64(1)).Return(testCreds, linepay.MerchantDisplay{}, nil)
		orders.On("AppendNote", mock.Anything, int64(7), "Payment.LinePay Refund Response: Already refunded.").Return(nil)

		_, err := p.Refund(ctx, RefundInput{OrderGUID: testGUID, Amount: 100})

		assert.Equal(t, linepay.OutcomeGatewayError, linepay.Classify(err))
		orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		orders.AssertExpectations(t)
	})
}

func TestProcessor_Capabilities(t *testing.T) {
	caps := NewProcessor(nil, nil, nil, testConfig()).Capabilities()

	assert.True(t, caps.SupportRefund)
	assert.True(t, caps.SupportPartialRefund)
	assert.False(t, caps.SupportCapture)
	assert.False(t, caps.SupportVoid)
	assert.False(t, caps.SupportRecurring)
	assert.Equal(t, MethodRedirection, caps.Method)
}

func TestProcessor_CanRePostProcess(t *testing.T) {
	p := NewProcessor(nil, nil, nil, testConfig())
	p.now = func() time.Time { return testNow }

	fresh := pendingOrder()
	fresh.CreatedAt = testNow.Add(-2 * time.Second)
	assert.False(t, p.CanRePostProcess(fresh))

	stale := pendingOrder()
	assert.True(t, p.CanRePostProcess(stale))

	assert.False(t, p.CanRePostProcess(paidOrder()))
	assert.False(t, p.CanRePostProcess(nil))
}
