// Package sanitize cleans raw user queries before they enter a walk.
package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize is 4KB (conservative default).
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrEmptyInput    = errors.New("input is empty")
)

// Input enforces the size limit (limit <= 0 means DefaultMaxInputSize), validates
// UTF-8 and strips control characters other than newline, tab and carriage return.
// Oversized input is rejected, not truncated.
func Input(input string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	out := input
	if strings.IndexFunc(input, unsafeControl) >= 0 {
		var b strings.Builder
		b.Grow(len(input))
		for _, r := range input {
			if !unsafeControl(r) {
				b.WriteRune(r)
			}
		}
		out = b.String()
	}

	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyInput
	}
	return out, nil
}

// unsafeControl matches ANSI escapes, NUL, BEL and friends, which would otherwise
// poison logs and terminals.
func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
