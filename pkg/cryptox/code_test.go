package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateVerificationCode(t *testing.T) {
	code := GenerateVerificationCode()
	require.Len(t, code, VerificationCodeLength)

	// Hyphen-stripped UUID means lowercase hex only
	for _, r := range code {
		require.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'),
			"unexpected character %q in code %q", r, code)
	}
}

func TestGenerateVerificationCodeUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		code := GenerateVerificationCode()
		_, dup := seen[code]
		require.False(t, dup, "duplicate code %q", code)
		seen[code] = struct{}{}
	}
}
