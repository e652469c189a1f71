// Package otp holds short-lived one-time codes and the payload they unlock.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Get when no live entry exists for the key.
	ErrNotFound = errors.New("otp: entry not found")
	// ErrInvalidOrExpired is returned by Consume when the entry is missing,
	// expired or the code does not match.
	ErrInvalidOrExpired = errors.New("otp: invalid or expired")
)

const (
	DefaultTTL    = 5 * time.Minute
	DefaultLength = 6
)

// Entry is a stored code and its payload.
type Entry struct {
	Payload   json.RawMessage
	Code      string
	ExpiresAt time.Time
}

// Store keeps at most one entry per key. Implementations must be safe for
// concurrent use.
type Store interface {
	Put(ctx context.Context, key string, payload json.RawMessage, code string, ttl time.Duration) error
	Get(ctx context.Context, key string) (Entry, error)
	// Consume returns the payload and deletes the entry when code matches a
	// live entry. On failure the store is left untouched.
	Consume(ctx context.Context, key, code string) (json.RawMessage, error)
	// Sweep drops expired entries and reports how many were removed.
	Sweep(ctx context.Context) int
}

func SignupKey(email string) string {
	return "signup:" + normalize(email)
}

func ResetKey(email string) string {
	return "reset:" + normalize(email)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GenerateCode returns an n-digit numeric code drawn from crypto/rand.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		n = DefaultLength
	}
	const digits = "0123456789"
	max := big.NewInt(int64(len(digits)))

	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		sb.WriteByte(digits[idx.Int64()])
	}
	return sb.String(), nil
}

func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
