package id

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// randomUUID is swapped in tests to exercise the fallbacks.
var randomUUID = uuid.NewRandom

// NewToken returns a random opaque token (UUID v4). If the random source
// fails it falls back to the current unix time in milliseconds, which is
// unique enough for a single browser profile but has little entropy.
func NewToken() string {
	u, err := randomUUID()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	return u.String()
}

// NewMessageID returns a UUID v4, or "<unix-ms>-<8 base36 chars>" when the
// random source fails.
func NewMessageID() string {
	u, err := randomUUID()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + base36(8)
	}
	return u.String()
}

func base36(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
