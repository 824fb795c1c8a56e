package cryptox

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAlphanumeric(t *testing.T) {
	alnum := regexp.MustCompile(`^[A-Za-z0-9]+$`)

	tests := []struct {
		name string
		n    int
	}{
		{"state length", 12},
		{"single char", 1},
		{"long", 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := GenerateAlphanumeric(tt.n)
			require.NoError(t, err)
			require.Len(t, s, tt.n)
			require.Regexp(t, alnum, s)
		})
	}
}

func TestGenerateAlphanumeric_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for range 100 {
		s, err := GenerateAlphanumeric(12)
		require.NoError(t, err)
		_, dup := seen[s]
		require.False(t, dup, "duplicate value %q", s)
		seen[s] = struct{}{}
	}
}

func TestGenerateAlphanumeric_InvalidLength(t *testing.T) {
	for _, n := range []int{0, -1} {
		s, err := GenerateAlphanumeric(n)
		require.Error(t, err)
		require.Empty(t, s)
	}
}

func TestFingerprintToken(t *testing.T) {
	fp1a := FingerprintToken("test-token-1")
	fp1b := FingerprintToken("test-token-1")
	fp2 := FingerprintToken("test-token-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2)
	require.Len(t, fp1a, 43, "SHA-256 base64url should be 43 chars")
}

func TestEqualTokens(t *testing.T) {
	require.True(t, EqualTokens("secret", "secret"))
	require.False(t, EqualTokens("secret", "Secret"))
	require.False(t, EqualTokens("secret", "secret2"))
	require.False(t, EqualTokens("", "x"))
}
