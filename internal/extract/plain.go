package extract

import (
	"strings"
	"unicode/utf8"
)

// validUTF8 replaces invalid UTF-8 sequences with the replacement character.
func validUTF8(content []byte) []byte {
	if utf8.Valid(content) {
		return content
	}
	return []byte(strings.ToValidUTF8(string(content), "\ufffd"))
}
