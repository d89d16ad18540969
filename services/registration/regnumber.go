package registration

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// NumberPrefix is the human-facing registration number prefix.
const NumberPrefix = "WSA"

// NewRegistrationNumber produces a number of the form WSA<year>-<4 digits>.
// The 10,000-value space per year is small; uniqueness is enforced by the
// store's unique index and the bounded retry in Service.Submit, not here.
func NewRegistrationNumber(now time.Time) string {
	return fmt.Sprintf("%s%d-%04d", NumberPrefix, now.Year(), randBelow(10000))
}

func randBelow(n uint32) uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to the clock rather than panic in a request path.
		return uint32(time.Now().UnixNano()) % n
	}
	return binary.BigEndian.Uint32(buf[:]) % n
}
