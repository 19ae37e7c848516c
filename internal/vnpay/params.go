package vnpay

import (
	"net/url"
	"sort"
	"strings"
)

// Encoding selects how canonicalized pairs are escaped. The gateway signs
// percent-encoded values on outbound requests but raw key=value pairs when
// re-signing inbound callbacks, so both forms share one encoder.
type Encoding int

const (
	// EncodingNone joins raw key=value pairs (inbound callback re-signing).
	EncodingNone Encoding = iota
	// EncodingValue percent-encodes values only (outbound signing string).
	EncodingValue
	// EncodingFull percent-encodes keys and values (URL query string).
	EncodingFull
)

// Canonicalize turns a parameter map into the gateway's deterministic joined
// form: entries with empty values are dropped, remaining keys are sorted by
// byte order, and pairs are joined with '&' with no leading or trailing
// separator. The result is byte-identical for any insertion order.
func Canonicalize(params map[string]string, enc Encoding) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		switch enc {
		case EncodingFull:
			b.WriteString(url.QueryEscape(k))
		default:
			b.WriteString(k)
		}
		b.WriteByte('=')
		switch enc {
		case EncodingNone:
			b.WriteString(params[k])
		default:
			b.WriteString(url.QueryEscape(params[k]))
		}
	}
	return b.String()
}

// FirstValues flattens url.Values into a plain map, keeping the first value
// of each parameter.
func FirstValues(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		params[k] = vs[0]
	}
	return params
}
