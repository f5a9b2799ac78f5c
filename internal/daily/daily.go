// internal/daily/daily.go
//
// Daily board: every player gets the same shuffle on a given UTC date.
// The shuffle seed is HMAC-SHA256(salt, YYYY-MM-DD), so the layout cannot
// be predicted without the server salt.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed derives the shuffle seed for a date.
func Seed(date time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes are plenty of entropy for a math/rand source
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// NewRand returns a source factory that yields the same sequence on every
// call, so every daily game for a date deals the same board.
func NewRand(date time.Time, salt string) func() *rand.Rand {
	seed := Seed(date, salt)
	return func() *rand.Rand { return rand.New(rand.NewSource(seed)) }
}
