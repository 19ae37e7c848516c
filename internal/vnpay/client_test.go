package vnpay

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Config{
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://shop.example.com/payments/vnpay/return",
		TmnCode:    "2QXUI4B4",
		HashSecret: "SANDBOXSECRET",
		IntentTTL:  15 * time.Minute,
	})
	require.NoError(t, err)
	c.Now = func() time.Time {
		return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	}
	return c
}

func TestNewValidatesConfig(t *testing.T) {
	base := Config{
		PayURL: "https://pay.example.com", ReturnURL: "https://shop.example.com/r",
		TmnCode: "T", HashSecret: "S",
	}
	_, err := New(base)
	require.NoError(t, err)

	for name, mutate := range map[string]func(*Config){
		"missing tmn code":    func(c *Config) { c.TmnCode = "" },
		"missing pay url":     func(c *Config) { c.PayURL = " " },
		"missing return url":  func(c *Config) { c.ReturnURL = "" },
		"missing hash secret": func(c *Config) { c.HashSecret = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
		})
	}
}

func TestPaymentURLShape(t *testing.T) {
	c := testClient(t)

	raw, err := c.PaymentURL(PaymentRequest{
		Amount:    150000,
		OrderCode: "AB12CD34EF",
		OrderInfo: "Thanh toan don hang AB12CD34EF",
		ClientIP:  "203.0.113.7",
	})
	require.NoError(t, err)

	require.Equal(t, 1, strings.Count(raw, ParamSecureHash+"="), "exactly one signature parameter")
	require.True(t, strings.Contains(raw, "&"+ParamSecureHash+"="), "signature is appended after the query")
	require.True(t, strings.HasPrefix(raw, "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?"))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	require.Equal(t, "2.1.0", q.Get("vnp_Version"))
	require.Equal(t, "pay", q.Get("vnp_Command"))
	require.Equal(t, "2QXUI4B4", q.Get("vnp_TmnCode"))
	require.Equal(t, "15000000", q.Get(ParamAmount), "whole VND scaled to minor units")
	require.Equal(t, "VND", q.Get("vnp_CurrCode"))
	require.Equal(t, "AB12CD34EF", q.Get(ParamTxnRef))
	require.Equal(t, "other", q.Get("vnp_OrderType"))
	require.Equal(t, "vn", q.Get("vnp_Locale"))
	require.Equal(t, "203.0.113.7", q.Get("vnp_IpAddr"))
	require.Equal(t, "https://shop.example.com/payments/vnpay/return", q.Get("vnp_ReturnUrl"))

	// 09:30 UTC is 16:30 in the merchant timezone; expiry is +15 minutes.
	require.Equal(t, "20250310163000", q.Get("vnp_CreateDate"))
	require.Equal(t, "20250310164500", q.Get("vnp_ExpireDate"))

	// The signature must cover the percent-encoded values.
	params := FirstValues(q)
	delete(params, ParamSecureHash)
	signer, _ := NewSigner("SANDBOXSECRET")
	require.Equal(t, signer.Sign(Canonicalize(params, EncodingValue)), q.Get(ParamSecureHash))
}

func TestPaymentURLRejectsBadInput(t *testing.T) {
	c := testClient(t)

	_, err := c.PaymentURL(PaymentRequest{Amount: 0, OrderCode: "A"})
	require.Error(t, err)

	_, err = c.PaymentURL(PaymentRequest{Amount: 100, OrderCode: ""})
	require.Error(t, err)

	_, err = c.PaymentURL(PaymentRequest{Amount: 100, OrderCode: strings.Repeat("A", 21)})
	require.Error(t, err)

	_, err = c.PaymentURL(PaymentRequest{Amount: 100, OrderCode: "đơn-hàng"})
	require.Error(t, err)
}

func TestPaymentURLClientIPFallback(t *testing.T) {
	c := testClient(t)
	raw, err := c.PaymentURL(PaymentRequest{Amount: 100, OrderCode: "A1"})
	require.NoError(t, err)
	u, _ := url.Parse(raw)
	require.Equal(t, "127.0.0.1", u.Query().Get("vnp_IpAddr"))
}

// gatewayCallback simulates the gateway: raw parameters signed over the
// unencoded pairs, hash appended.
func gatewayCallback(secret string, params map[string]string) url.Values {
	signer, _ := NewSigner(secret)
	sig := signer.Sign(Canonicalize(params, EncodingNone))
	v := url.Values{}
	for k, val := range params {
		v.Set(k, val)
	}
	v.Set(ParamSecureHash, sig)
	return v
}

func TestVerifyCallbackAccepts(t *testing.T) {
	c := testClient(t)
	v := gatewayCallback("SANDBOXSECRET", map[string]string{
		ParamTxnRef:        "AB12CD34EF",
		ParamResponseCode:  "00",
		ParamTransactionNo: "14422574",
		ParamAmount:        "15000000",
		"vnp_BankCode":     "NCB",
	})

	res := c.VerifyCallback(v)
	require.True(t, res.SignatureValid)
	require.Equal(t, "00", res.Code)
	require.Equal(t, "AB12CD34EF", res.TxnRef)
	require.Equal(t, "14422574", res.TransactionNo)
	require.Equal(t, int64(150000), res.Amount, "minor units converted back to whole VND")
}

func TestVerifyCallbackIgnoresSecureHashType(t *testing.T) {
	c := testClient(t)
	v := gatewayCallback("SANDBOXSECRET", map[string]string{
		ParamTxnRef:       "X1",
		ParamResponseCode: "00",
	})
	v.Set(ParamSecureHashType, "HmacSHA512")

	res := c.VerifyCallback(v)
	require.True(t, res.SignatureValid)
}

func TestVerifyCallbackRejectsTampering(t *testing.T) {
	c := testClient(t)
	v := gatewayCallback("SANDBOXSECRET", map[string]string{
		ParamTxnRef:       "X1",
		ParamResponseCode: "24",
		ParamAmount:       "10000",
	})
	v.Set(ParamResponseCode, "00") // flip failure to success

	res := c.VerifyCallback(v)
	require.False(t, res.SignatureValid)
}

func TestVerifyCallbackMissingSignature(t *testing.T) {
	c := testClient(t)
	v := url.Values{}
	v.Set(ParamTxnRef, "X1")
	v.Set(ParamResponseCode, "00")

	res := c.VerifyCallback(v)
	require.False(t, res.SignatureValid)
	require.Equal(t, "X1", res.TxnRef)
}

func TestVerifyCallbackWrongSecret(t *testing.T) {
	c := testClient(t)
	v := gatewayCallback("OTHERSECRET", map[string]string{
		ParamTxnRef:       "X1",
		ParamResponseCode: "00",
	})
	require.False(t, c.VerifyCallback(v).SignatureValid)
}
