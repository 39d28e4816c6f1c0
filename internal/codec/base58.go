// Package codec wraps Base58 encoding for subscription payloads.
package codec

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// ErrInvalidCharacter is returned by Decode when the input contains a symbol
// outside the 58-character alphabet.
var ErrInvalidCharacter = errors.New("invalid base58 character")

// Encode returns the Base58 form of data using the standard Bitcoin alphabet
// (no 0, O, I, l). Empty input encodes to the empty string.
func Encode(data []byte) string {
	return base58.Encode(data)
}

// Decode reverses Encode. The empty string decodes to an empty byte slice so
// that Decode(Encode(x)) == x holds for all inputs.
func Decode(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}
	out, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCharacter, err)
	}
	return out, nil
}
