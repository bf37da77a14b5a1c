// ABOUTME: Passcode records and the single-slot store interface they live in
// ABOUTME: Records are keyed by md5 of the normalized email and encoded as "code:unix"

package passcode

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNoRecord is returned by a Store when no record exists for a key.
var ErrNoRecord = errors.New("no passcode record")

// Record is the latest passcode issued for one email.
type Record struct {
	Code     string
	IssuedAt time.Time
}

// Store holds at most one Record per key. Put overwrites.
type Store interface {
	Put(ctx context.Context, key string, rec Record) error
	Get(ctx context.Context, key string) (Record, error)
	Delete(ctx context.Context, key string) error
}

// Key derives the storage key for an email.
func Key(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// Encode renders rec in its "code:unix" text form.
func (r Record) Encode() string {
	return r.Code + ":" + strconv.FormatInt(r.IssuedAt.Unix(), 10)
}

// ParseRecord reads the "code:unix" text form; surrounding whitespace is ignored.
func ParseRecord(s string) (Record, error) {
	code, ts, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || code == "" {
		return Record{}, fmt.Errorf("malformed passcode record %q", s)
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("malformed passcode timestamp: %w", err)
	}
	return Record{Code: code, IssuedAt: time.Unix(sec, 0)}, nil
}
