// Package cache memoizes computed views keyed by dataset fingerprint. Values are
// stored as JSON, either in Redis or in process memory.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrMiss is returned when a key is absent or expired.
	ErrMiss = errors.New("cache: key not found")

	// ErrKeyEmpty is returned for an empty key.
	ErrKeyEmpty = errors.New("cache: key cannot be empty")

	// ErrSerialization wraps JSON encode/decode failures.
	ErrSerialization = errors.New("cache: serialization failed")
)

const (
	// KeyPrefix namespaces every key written by this package.
	KeyPrefix = "scorelens:view:"
	// DefaultTTL is the view lifetime when none is configured.
	DefaultTTL = 10 * time.Minute
)

// Store is a TTL key/value cache of JSON values.
type Store interface {
	// Get decodes the value at key into dest or returns ErrMiss.
	Get(ctx context.Context, key string, dest any) error
	// Set stores value under key. ttl <= 0 keeps it until evicted.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Close() error
}

// Key builds a view key. Equal fingerprints share entries across sessions.
func Key(fingerprint uint64, view string, params ...string) string {
	var b strings.Builder
	b.WriteString(KeyPrefix)
	b.WriteString(fmt.Sprintf("%016x:%s", fingerprint, view))
	for _, p := range params {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// Memo returns the cached value at key, computing and storing it on a miss.
// A compute error is returned as is and nothing is stored. Store failures are
// logged and never fail the caller. hit reports whether the value came from
// the store.
func Memo[T any](ctx context.Context, s Store, log logrus.FieldLogger, key string, ttl time.Duration, compute func() (T, error)) (v T, hit bool, err error) {
	if s == nil {
		v, err = compute()
		return v, false, err
	}
	if err := s.Get(ctx, key, &v); err == nil {
		return v, true, nil
	} else if !errors.Is(err, ErrMiss) && log != nil {
		log.WithError(err).WithField("key", key).Warn("cache read failed")
	}
	v, err = compute()
	if err != nil {
		var zero T
		return zero, false, err
	}
	if err := s.Set(ctx, key, v, ttl); err != nil && log != nil {
		log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return v, false, nil
}
