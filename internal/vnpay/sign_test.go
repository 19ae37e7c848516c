package vnpay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	s, err := NewSigner("YFCCPSNуниверсит") // secrets are opaque bytes
	require.NoError(t, err)

	data := "vnp_Amount=15000000&vnp_TxnRef=AB12CD34EF"
	sig := s.Sign(data)
	require.Len(t, sig, 128) // hex-encoded SHA-512 digest
	require.Equal(t, strings.ToLower(sig), sig)
	require.True(t, s.Verify(data, sig))
}

func TestSignerRejectsEmptySecret(t *testing.T) {
	_, err := NewSigner("")
	require.Error(t, err)
	_, err = NewSigner("   ")
	require.Error(t, err)
}

func TestVerifyRejectsSingleCharFlip(t *testing.T) {
	s, err := NewSigner("SANDBOXSECRET")
	require.NoError(t, err)

	data := "vnp_Amount=100&vnp_TxnRef=X"
	sig := s.Sign(data)

	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	require.False(t, s.Verify(data, string(flipped)))
	require.False(t, s.Verify(data+"&extra=1", sig))
}

func TestVerifyToleratesCaseAndWhitespace(t *testing.T) {
	s, err := NewSigner("SANDBOXSECRET")
	require.NoError(t, err)

	data := "vnp_TxnRef=X"
	sig := s.Sign(data)
	require.True(t, s.Verify(data, strings.ToUpper(sig)))
	require.True(t, s.Verify(data, "  "+sig+"\n"))
}

func TestVerifyRejectsNonHexDigest(t *testing.T) {
	s, err := NewSigner("SANDBOXSECRET")
	require.NoError(t, err)
	require.False(t, s.Verify("data", "not-a-digest"))
	require.False(t, s.Verify("data", ""))
}
