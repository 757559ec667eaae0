package loyalty

import (
	"crypto/rand"
	"strings"
	"unicode"
)

const (
	codePrefixLen = 4
	codeSuffixLen = 7

	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// referralCodeFor builds a shareable code like "LAIAXYZ1234": the first
// letters of the owner's name plus a random suffix. Global uniqueness comes
// from the DB constraint; callers retry on collision.
func referralCodeFor(name string) string {
	prefix := namePrefix(name)

	buf := make([]byte, codeSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}

	var b strings.Builder
	b.WriteString(prefix)
	for _, c := range buf {
		b.WriteByte(codeCharset[int(c)%len(codeCharset)])
	}
	return b.String()
}

func namePrefix(name string) string {
	var b strings.Builder
	for _, r := range name {
		r = unicode.ToUpper(r)
		if r < 'A' || r > 'Z' {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= codePrefixLen {
			break
		}
	}
	if b.Len() == 0 {
		return "USER"
	}
	return b.String()
}
