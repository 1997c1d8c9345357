package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// CodeLength is the number of decimal digits in a one-time code.
const CodeLength = 6

// Generate produces a CodeLength-digit decimal code. Each digit is drawn
// independently and uniformly from 0-9 using rejection sampling, so no
// digit is biased by the byte range.
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(CodeLength)

	buf := make([]byte, 1)
	for b.Len() < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		// 250 is the largest multiple of 10 that fits in a byte; values
		// above it would skew the distribution.
		if buf[0] >= 250 {
			continue
		}
		b.WriteByte('0' + buf[0]%10)
	}
	return b.String(), nil
}

// Digest computes the hex-encoded HMAC-SHA256 of a code under the OTP
// secret. Only digests are ever stored; the plaintext code leaves the
// process solely through the delivery provider.
func Digest(code, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// DigestEqual compares two digests in constant time.
func DigestEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Mask replaces all but the last two characters of a code with '*'.
// This is the only form of a code permitted in logs.
func Mask(code string) string {
	if len(code) <= 2 {
		return code
	}
	return strings.Repeat("*", len(code)-2) + code[len(code)-2:]
}
