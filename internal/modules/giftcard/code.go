package giftcard

import (
	"crypto/rand"
	"strings"
)

// Charset excludes ambiguous characters (0/O, 1/I) so codes survive being
// read over the phone at the front desk.
const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeGroups    = 3
	codeGroupSize = 4
)

// newCode produces a grouped code like "K3QF-8ZWM-P2RD". Uniqueness is
// enforced by the DB constraint; callers retry on collision.
func newCode() string {
	buf := make([]byte, codeGroups*codeGroupSize)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure means a broken platform
	}

	var b strings.Builder
	for i, c := range buf {
		if i > 0 && i%codeGroupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(codeCharset[int(c)%len(codeCharset)])
	}
	return b.String()
}
