package utils

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateID returns the decimal millisecond timestamp followed by nine
// random base-36 characters. IDs are unique in practice, not guaranteed.
func GenerateID(now time.Time) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	for i := 0; i < 9; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}

// GenerateSlug turns a label into a lowercase, dash separated identifier,
// dropping accent marks ("Quản lý" -> "quan-ly").
func GenerateSlug(name string) string {
	t := norm.NFD.String(strings.NewReplacer("đ", "d", "Đ", "D").Replace(name))
	var b strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	s := strings.ToLower(b.String())
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
