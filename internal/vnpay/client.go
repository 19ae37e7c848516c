package vnpay

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Gateway parameter names are a versioned external contract; only the fields
// touched by signing logic are named here.
const (
	ParamSecureHash     = "vnp_SecureHash"
	ParamSecureHashType = "vnp_SecureHashType"
	ParamTxnRef         = "vnp_TxnRef"
	ParamResponseCode   = "vnp_ResponseCode"
	ParamTransactionNo  = "vnp_TransactionNo"
	ParamAmount         = "vnp_Amount"

	// ResponseCodeSuccess is the gateway's code for a captured payment.
	ResponseCodeSuccess = "00"

	apiVersion       = "2.1.0"
	commandPay       = "pay"
	currencyVND      = "VND"
	localeVN         = "vn"
	orderTypeOther   = "other"
	merchantTimezone = "Asia/Ho_Chi_Minh"
	timestampLayout  = "20060102150405" // gateway's yyyyMMddHHmmss
	maxOrderCodeLen  = 20
)

// Config carries the merchant credentials and endpoints for the gateway.
type Config struct {
	PayURL     string
	ReturnURL  string
	TmnCode    string
	HashSecret string
	IntentTTL  time.Duration
}

// Client builds signed payment URLs and authenticates inbound callbacks.
// It performs no network I/O; redirects and callbacks are carried by the
// browser and the gateway respectively.
type Client struct {
	cfg    Config
	signer Signer
	loc    *time.Location

	// Now is the clock used for create/expire timestamps. Tests may pin it.
	Now func() time.Time
}

// New validates the merchant configuration and constructs a Client. Missing
// credentials or an unknown merchant timezone abort startup.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.TmnCode) == "" {
		return nil, errors.New("vnpay: terminal code is required")
	}
	if strings.TrimSpace(cfg.PayURL) == "" {
		return nil, errors.New("vnpay: pay url is required")
	}
	if strings.TrimSpace(cfg.ReturnURL) == "" {
		return nil, errors.New("vnpay: return url is required")
	}
	signer, err := NewSigner(cfg.HashSecret)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(merchantTimezone)
	if err != nil {
		return nil, fmt.Errorf("vnpay: load merchant timezone: %w", err)
	}
	if cfg.IntentTTL <= 0 {
		cfg.IntentTTL = 15 * time.Minute
	}
	return &Client{cfg: cfg, signer: signer, loc: loc, Now: time.Now}, nil
}

// PaymentRequest describes one outbound payment redirect. Amount is in whole
// VND; the ×100 minor-unit conversion the gateway requires happens here.
type PaymentRequest struct {
	Amount    int64
	OrderCode string
	OrderInfo string
	ClientIP  string
	ReturnURL string // optional override of the configured return URL
}

// PaymentURL assembles the full signed redirect URL for the request.
func (c *Client) PaymentURL(req PaymentRequest) (string, error) {
	if req.Amount <= 0 {
		return "", fmt.Errorf("vnpay: amount must be a positive whole VND value, got %d", req.Amount)
	}
	code := strings.TrimSpace(req.OrderCode)
	if code == "" {
		return "", errors.New("vnpay: order code is required")
	}
	if len(code) > maxOrderCodeLen || !isASCII(code) {
		return "", fmt.Errorf("vnpay: order code %q must be ASCII and at most %d characters", code, maxOrderCodeLen)
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = c.cfg.ReturnURL
	}
	clientIP := strings.TrimSpace(req.ClientIP)
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}

	created := c.Now().In(c.loc)
	expires := created.Add(c.cfg.IntentTTL)

	params := map[string]string{
		"vnp_Version":    apiVersion,
		"vnp_Command":    commandPay,
		"vnp_TmnCode":    c.cfg.TmnCode,
		ParamAmount:      strconv.FormatInt(req.Amount*100, 10),
		"vnp_CurrCode":   currencyVND,
		ParamTxnRef:      code,
		"vnp_OrderInfo":  req.OrderInfo,
		"vnp_OrderType":  orderTypeOther,
		"vnp_Locale":     localeVN,
		"vnp_ReturnUrl":  returnURL,
		"vnp_IpAddr":     clientIP,
		"vnp_CreateDate": created.Format(timestampLayout),
		"vnp_ExpireDate": expires.Format(timestampLayout),
	}

	signature := c.signer.Sign(Canonicalize(params, EncodingValue))
	query := Canonicalize(params, EncodingFull)
	return c.cfg.PayURL + "?" + query + "&" + ParamSecureHash + "=" + signature, nil
}

// CallbackResult is the authenticated view of an inbound return or IPN
// notification. Code, TxnRef and the rest are untrusted until SignatureValid
// is true.
type CallbackResult struct {
	SignatureValid bool
	Code           string
	TxnRef         string
	TransactionNo  string
	// Amount is the callback's amount converted back to whole VND.
	Amount int64
}

// VerifyCallback authenticates the parameters of an inbound callback. The
// signature fields are removed, the remaining raw pairs are re-signed and
// compared against the provided digest. A missing signature is invalid
// without any recomputation.
func (c *Client) VerifyCallback(values url.Values) CallbackResult {
	params := FirstValues(values)
	provided := params[ParamSecureHash]
	delete(params, ParamSecureHash)
	delete(params, ParamSecureHashType)

	result := CallbackResult{
		Code:          params[ParamResponseCode],
		TxnRef:        params[ParamTxnRef],
		TransactionNo: params[ParamTransactionNo],
	}
	if raw := params[ParamAmount]; raw != "" {
		if minor, err := strconv.ParseInt(raw, 10, 64); err == nil {
			result.Amount = minor / 100
		}
	}
	if strings.TrimSpace(provided) == "" {
		return result
	}
	result.SignatureValid = c.signer.Verify(Canonicalize(params, EncodingNone), provided)
	return result
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
