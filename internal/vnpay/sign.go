package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strings"
)

// Signer computes and checks HMAC-SHA512 signatures over canonicalized data.
type Signer struct {
	secret []byte
}

// NewSigner builds a Signer from the shared gateway secret. An empty secret
// is a configuration error and must abort startup.
func NewSigner(secret string) (Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return Signer{}, errors.New("vnpay: hash secret is required")
	}
	return Signer{secret: []byte(secret)}, nil
}

// Sign returns the lowercase hex HMAC-SHA512 digest of data.
func (s Signer) Sign(data string) string {
	mac := hmac.New(sha512.New, s.secret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature for data and compares it to the provided
// hex digest. The gateway may send mixed-case hex; comparison happens on the
// decoded bytes in constant time.
func (s Signer) Verify(data, providedHex string) bool {
	provided, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(providedHex)))
	if err != nil || len(provided) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, s.secret)
	mac.Write([]byte(data))
	return hmac.Equal(mac.Sum(nil), provided)
}
