package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmail(t *testing.T) {
	id := NewEmail("  USER@Example.com ")
	assert.Equal(t, KindEmail, id.Kind)
	assert.Equal(t, "user@example.com", id.Value)
	assert.Equal(t, "EMAIL#user@example.com", id.Key())
}

func TestNewPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 (555) 123-4567", "+15551234567"},
		{"555.123.4567", "5551234567"},
		{"  +44 20 7946 0958", "+442079460958"},
		{"12+34", "1234"}, // '+' only survives at the front
	}
	for _, tt := range tests {
		id := NewPhone(tt.in)
		assert.Equal(t, tt.want, id.Value, "input %q", tt.in)
		assert.Equal(t, KindPhone, id.Kind)
	}
}

func TestFromRequest(t *testing.T) {
	id, err := FromRequest("a@b.com", "")
	require.NoError(t, err)
	assert.Equal(t, KindEmail, id.Kind)

	id, err = FromRequest("", "+1 555 000 1111")
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", id.Value)

	_, err = FromRequest("", "")
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = FromRequest("a@b.com", "+15550001111")
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestLogKeyStable(t *testing.T) {
	a := NewEmail("user@example.com")
	b := NewEmail("USER@example.com  ")
	assert.Equal(t, a.LogKey(), b.LogKey())
	assert.NotEqual(t, a.LogKey(), NewEmail("other@example.com").LogKey())
}
