package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyRoundTrip(t *testing.T) {
	digest := "3c6e0b8a9c15224a8228b9a98ca1531d" // stand-in sha256 hex digest
	hash, err := Hash(digest)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotEqual(t, digest, hash)

	require.True(t, Verify(hash, digest))
	require.False(t, Verify(hash, "wrong-digest"))
}

func TestVerifyNoPasswordAlwaysSucceeds(t *testing.T) {
	require.True(t, Verify("", "anything"))
	require.True(t, Verify("", ""))
}

func TestVerifyEmptyDigestFails(t *testing.T) {
	hash, err := Hash("some-digest")
	require.NoError(t, err)
	require.False(t, Verify(hash, ""))
}

func TestConstantTimeEqual(t *testing.T) {
	require.True(t, ConstantTimeEqual("abc", "abc"))
	require.False(t, ConstantTimeEqual("abc", "abd"))
	require.False(t, ConstantTimeEqual("abc", "ab"))
}
