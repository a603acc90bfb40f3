// Package usercode generates and validates the short personal codes users
// share so others can find them without knowing their id.
package usercode

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Alphabet excludes characters that are easy to misread: O, I, L, 0 and 1.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Length is the size of newly generated codes.
const Length = 8

// MaxAttempts bounds how many candidates are tried before giving up.
const MaxAttempts = 10

var (
	// ErrInvalid is returned by Normalize for malformed codes.
	ErrInvalid = errors.New("invalid user code")
	// ErrExhausted is returned when every candidate collided with an existing code.
	ErrExhausted = errors.New("could not allocate a unique user code")
)

var pattern = regexp.MustCompile(`^[A-HJKMNP-Z2-9]{3,12}$`)

// Generate returns a random code of Length characters from Alphabet.
func Generate() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate user code: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Normalize trims and upper-cases a code and checks it against the alphabet.
func Normalize(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !pattern.MatchString(code) {
		return "", ErrInvalid
	}
	return code, nil
}
