// Package shortcode generates random short codes and validates custom ones.
package shortcode

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the set of symbols generated codes are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength is the code length used when none is configured.
const DefaultLength = 6

var customCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Generate returns a code of the given length drawn uniformly at random from
// Alphabet. Randomness comes from crypto/rand via gonanoid.
func Generate(length int) (string, error) {
	const op = "shortcode.Generate"

	if length < 1 {
		length = DefaultLength
	}

	code, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// ValidCustom reports whether code is usable as a user-supplied short code:
// one or more characters, each from [a-zA-Z0-9_-].
func ValidCustom(code string) bool {
	return customCodePattern.MatchString(code)
}
