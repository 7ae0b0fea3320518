package linepay

// ReturnCodeSuccess is the only return code the gateway uses for success.
const ReturnCodeSuccess = "0000"

type Credentials struct {
	ChannelID     string
	ChannelSecret string
}

// ---------- Request API ----------

type PaymentRequest struct {
	Amount       int64        `json:"amount"`
	Currency     string       `json:"currency"`
	OrderID      string       `json:"orderId"`
	Packages     []Package    `json:"packages"`
	Options      *Options     `json:"options,omitempty"`
	RedirectURLs RedirectURLs `json:"redirectUrls"`
}

type Package struct {
	ID       string    `json:"id"`
	Amount   int64     `json:"amount"`
	Name     string    `json:"name"`
	Products []Product `json:"products"`
}

// Product is a single line item inside a package.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
}

type Options struct {
	Payment PaymentOptions  `json:"payment"`
	Display *DisplayOptions `json:"display,omitempty"`
}

// PaymentOptions.Capture true means confirm authorizes and captures in one
// step; false would require a separate capture call, which we never issue.
type PaymentOptions struct {
	Capture bool `json:"capture"`
}

// DisplayOptions.Locale is one of en, ja, ko, th, zh_TW, zh_CN.
type DisplayOptions struct {
	Locale string `json:"locale"`
}

type RedirectURLs struct {
	ConfirmURL string `json:"confirmUrl"`
	CancelURL  string `json:"cancelUrl"`
}

type PaymentResponse struct {
	ReturnCode    string       `json:"returnCode"`
	ReturnMessage string       `json:"returnMessage"`
	Info          *PaymentInfo `json:"info,omitempty"`
}

type PaymentInfo struct {
	PaymentURL         PaymentURL `json:"paymentUrl"`
	TransactionID      int64      `json:"transactionId"`
	PaymentAccessToken string     `json:"paymentAccessToken"`
}

type PaymentURL struct {
	Web string `json:"web"`
	App string `json:"app"`
}

// ---------- Confirm API ----------

type ConfirmRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type ConfirmResponse struct {
	ReturnCode    string       `json:"returnCode"`
	ReturnMessage string       `json:"returnMessage"`
	Info          *ConfirmInfo `json:"info,omitempty"`
}

type ConfirmInfo struct {
	OrderID                 string           `json:"orderId"`
	TransactionID           int64            `json:"transactionId"`
	AuthorizationExpireDate string           `json:"authorizationExpireDate,omitempty"`
	RegKey                  string           `json:"regKey,omitempty"`
	PayInfo                 []PayInfo        `json:"payInfo"`
	Packages                []ConfirmPackage `json:"packages"`
}

type PayInfo struct {
	Method                 string `json:"method"`
	Amount                 int64  `json:"amount"`
	CreditCardNickname     string `json:"creditCardNickname,omitempty"`
	CreditCardBrand        string `json:"creditCardBrand,omitempty"`
	MaskedCreditCardNumber string `json:"maskedCreditCardNumber,omitempty"`
}

type ConfirmPackage struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	UserFeeAmount int64  `json:"userFeeAmount"`
}

// ---------- Refund API ----------

// RefundRequest with a nil RefundAmount refunds the whole authorization.
type RefundRequest struct {
	RefundAmount *int64 `json:"refundAmount,omitempty"`
}

type RefundResponse struct {
	ReturnCode    string      `json:"returnCode"`
	ReturnMessage string      `json:"returnMessage"`
	Info          *RefundInfo `json:"info,omitempty"`
}

type RefundInfo struct {
	RefundTransactionID   int64  `json:"refundTransactionId"`
	RefundTransactionDate string `json:"refundTransactionDate"`
}

// envelope is the part every gateway reply shares.
type envelope struct {
	ReturnCode    string `json:"returnCode"`
	ReturnMessage string `json:"returnMessage"`
}
