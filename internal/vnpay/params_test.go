package vnpay

import (
	"math/rand"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	params := map[string]string{
		"vnp_TxnRef":  "AB12",
		"vnp_Amount":  "15000000",
		"vnp_Command": "pay",
	}
	got := Canonicalize(params, EncodingNone)
	require.Equal(t, "vnp_Amount=15000000&vnp_Command=pay&vnp_TxnRef=AB12", got)
}

func TestCanonicalizeDeterministicAcrossInsertionOrder(t *testing.T) {
	keys := []string{"vnp_Version", "vnp_Command", "vnp_TmnCode", "vnp_Amount", "vnp_TxnRef", "vnp_OrderInfo", "vnp_IpAddr"}
	base := map[string]string{}
	for i, k := range keys {
		base[k] = strings.Repeat("v", i+1)
	}
	want := Canonicalize(base, EncodingValue)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := map[string]string{}
		perm := rng.Perm(len(keys))
		for _, j := range perm {
			shuffled[keys[j]] = base[keys[j]]
		}
		require.Equal(t, want, Canonicalize(shuffled, EncodingValue))
	}
}

func TestCanonicalizeDropsEmptyValues(t *testing.T) {
	params := map[string]string{
		"vnp_TxnRef":   "AB12",
		"vnp_BankCode": "",
		"vnp_Amount":   "100",
	}
	got := Canonicalize(params, EncodingNone)
	require.Equal(t, "vnp_Amount=100&vnp_TxnRef=AB12", got)
	require.NotContains(t, got, "vnp_BankCode")
}

func TestCanonicalizeEncodings(t *testing.T) {
	params := map[string]string{"vnp_OrderInfo": "Thanh toan don hang #5"}

	require.Equal(t, "vnp_OrderInfo=Thanh toan don hang #5", Canonicalize(params, EncodingNone))
	require.Equal(t, "vnp_OrderInfo=Thanh+toan+don+hang+%235", Canonicalize(params, EncodingValue))
	require.Equal(t, "vnp_OrderInfo=Thanh+toan+don+hang+%235", Canonicalize(params, EncodingFull))
}

func TestFirstValues(t *testing.T) {
	v := url.Values{}
	v.Add("vnp_TxnRef", "A")
	v.Add("vnp_TxnRef", "B")
	v.Set("vnp_Amount", "100")

	m := FirstValues(v)
	require.Equal(t, "A", m["vnp_TxnRef"])
	require.Equal(t, "100", m["vnp_Amount"])
}
