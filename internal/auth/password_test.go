package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Small parameters keep the test fast; the KDF math is identical.
func testParams() ArgonParams {
	return ArgonParams{Memory: 8 << 10, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}
}

func TestHashAndVerify(t *testing.T) {
	phc, err := HashPassword("correct horse battery staple", testParams())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(phc, "$argon2id$v=19$"))

	assert.True(t, VerifyPassword("correct horse battery staple", phc))
	assert.False(t, VerifyPassword("correct horse battery stable", phc))
	assert.False(t, VerifyPassword("", phc))
}

func TestHashIsSalted(t *testing.T) {
	a, err := HashPassword("hunter22", testParams())
	require.NoError(t, err)
	b, err := HashPassword("hunter22", testParams())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, VerifyPassword("hunter22", a))
	assert.True(t, VerifyPassword("hunter22", b))
}

func TestEmptyPasswordRejected(t *testing.T) {
	_, err := HashPassword("", testParams())
	assert.Error(t, err)
	_, err = HashPassword("   ", testParams())
	assert.Error(t, err)
}

func TestVerifyMalformedPHC(t *testing.T) {
	for _, phc := range []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$AAAA",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA",
	} {
		assert.False(t, VerifyPassword("whatever", phc), "phc %q should not verify", phc)
	}
}

func TestParamsSurviveRoundTrip(t *testing.T) {
	p := ArgonParams{Memory: 16 << 10, Time: 2, Threads: 2, SaltLen: 16, KeyLen: 24}
	phc, err := HashPassword("pw-with-params", p)
	require.NoError(t, err)
	assert.Contains(t, phc, "m=16384,t=2,p=2")
	assert.True(t, VerifyPassword("pw-with-params", phc))
}
