package identity

import (
	"errors"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Kind distinguishes the two identity channels accepted by the service.
type Kind string

const (
	KindEmail Kind = "EMAIL"
	KindPhone Kind = "PHONE"
)

var ErrInvalidIdentity = errors.New("exactly one of email or phone is required")

// Identity is a normalized reference to the party requesting authentication.
// Two identities are equal iff kind and normalized value match.
type Identity struct {
	Kind  Kind
	Value string
}

// FromRequest builds a normalized identity from the raw request fields.
// Exactly one of email or phone must be non-empty.
func FromRequest(email, phone string) (Identity, error) {
	hasEmail := strings.TrimSpace(email) != ""
	hasPhone := strings.TrimSpace(phone) != ""
	if hasEmail == hasPhone {
		return Identity{}, ErrInvalidIdentity
	}
	if hasEmail {
		return NewEmail(email), nil
	}
	return NewPhone(phone), nil
}

// NewEmail normalizes an email identity. Normalization is canonicalization,
// not validation: trim and lowercase only.
func NewEmail(email string) Identity {
	return Identity{
		Kind:  KindEmail,
		Value: strings.ToLower(strings.TrimSpace(email)),
	}
}

// NewPhone normalizes a phone identity: everything except digits and a
// leading '+' is stripped.
func NewPhone(phone string) Identity {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return Identity{Kind: KindPhone, Value: b.String()}
}

// Key returns the storage key form, e.g. "EMAIL#user@example.com".
func (id Identity) Key() string {
	return string(id.Kind) + "#" + id.Value
}

// IsZero reports whether the identity carries no value.
func (id Identity) IsZero() bool {
	return id.Value == ""
}

// LogKey returns a stable murmur3 hash of the identity key for log
// correlation, so raw emails and phone numbers stay out of log streams.
func (id Identity) LogKey() uint64 {
	return murmur3.Sum64([]byte(id.Key()))
}
