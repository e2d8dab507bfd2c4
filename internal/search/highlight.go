package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Highlight wraps every case-insensitive occurrence of keyword in text
// with the pre and post tags, preserving the original casing of the
// matched run. Matching walks the original text rune by rune so offsets
// stay valid when case folding changes a rune's encoded length.
func Highlight(text, keyword, pre, post string) string {
	if text == "" || keyword == "" {
		return text
	}
	var b strings.Builder
	off := 0
	for i := 0; i < len(text); {
		n := foldPrefixLen(text[i:], keyword)
		if n < 0 {
			_, w := utf8.DecodeRuneInString(text[i:])
			i += w
			continue
		}
		b.WriteString(text[off:i])
		b.WriteString(pre)
		b.WriteString(text[i : i+n])
		b.WriteString(post)
		i += n
		off = i
	}
	if off == 0 {
		return text
	}
	b.WriteString(text[off:])
	return b.String()
}

// foldPrefixLen reports the byte length of the prefix of s that equals
// keyword under simple case folding, or -1 when s does not start with it.
func foldPrefixLen(s, keyword string) int {
	n := 0
	for _, kr := range keyword {
		r, w := utf8.DecodeRuneInString(s[n:])
		if w == 0 || !foldEqual(r, kr) {
			return -1
		}
		n += w
	}
	return n
}

func foldEqual(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}
