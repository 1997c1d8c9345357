package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "non-digit %q in code %s", r, code)
		}
		seen[code] = true
	}
	// 100 draws from a million-value space colliding down to a handful
	// would mean the sampler is broken.
	assert.Greater(t, len(seen), 90)
}

func TestDigestDeterministic(t *testing.T) {
	d1 := Digest("123456", "secret-a")
	d2 := Digest("123456", "secret-a")
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64) // hex SHA-256

	assert.NotEqual(t, d1, Digest("123456", "secret-b"))
	assert.NotEqual(t, d1, Digest("123457", "secret-a"))
}

func TestDigestEqual(t *testing.T) {
	d := Digest("654321", "k")
	assert.True(t, DigestEqual(d, Digest("654321", "k")))
	assert.False(t, DigestEqual(d, Digest("654322", "k")))
	assert.False(t, DigestEqual(d, d[:len(d)-1]))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****56", Mask("123456"))
	assert.Equal(t, "*23", Mask("123"))
	assert.Equal(t, "12", Mask("12"))
	assert.Equal(t, "", Mask(""))
}
