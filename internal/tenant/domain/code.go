package domain

import "strings"

// MaxCodeLength bounds the derived tenant code.
const MaxCodeLength = 12

// DeriveCode maps a company name to its tenant code: ASCII letters and
// digits only, upper-cased, at most MaxCodeLength characters. Different names
// may share a code.
func DeriveCode(name string) string {
	var b strings.Builder
	for i := 0; i < len(name) && b.Len() < MaxCodeLength; i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		}
	}
	return b.String()
}
