// Package credentials issues the secrets handed to provisioned services.
//
// Every secret is drawn from a Source, which defaults to crypto/rand. Tests
// swap the Source to assert length and charset rules without depending on
// a particular OS random device.
package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// Kind selects the encoding and charset of a generated secret.
type Kind string

const (
	// Hex is lowercase hex of length/2 random bytes (master keys, secret keys).
	Hex Kind = "hex"
	// AccessKey is uppercase alphanumeric (S3-style access key IDs).
	AccessKey Kind = "access-key"
	// Password is mixed-case alphanumeric.
	Password Kind = "password"
)

// Default lengths for each kind.
const (
	HexLength       = 32
	AccessKeyLength = 16
	PasswordLength  = 24
)

const (
	upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	mixedAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Source is the entropy capability. crypto/rand.Reader satisfies it.
type Source io.Reader

// GenerationError is returned when the random source cannot deliver bytes.
// Callers must not continue without real entropy.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s credential: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator produces secrets. The zero value is not usable; use New.
type Generator struct {
	src Source
}

// New returns a Generator reading from src, or crypto/rand when src is nil.
func New(src Source) *Generator {
	if src == nil {
		src = rand.Reader
	}
	return &Generator{src: src}
}

// Generate returns a secret of the given kind and length. A length of zero
// selects the kind's default.
func (g *Generator) Generate(kind Kind, length int) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("invalid credential length %d", length)
	}

	switch kind {
	case Hex:
		if length == 0 {
			length = HexLength
		}
		if length%2 != 0 {
			return "", fmt.Errorf("hex credential length must be even, got %d", length)
		}
		buf := make([]byte, length/2)
		if _, err := io.ReadFull(g.src, buf); err != nil {
			return "", &GenerationError{Kind: kind, Err: err}
		}
		return hex.EncodeToString(buf), nil
	case AccessKey:
		if length == 0 {
			length = AccessKeyLength
		}
		return g.fromAlphabet(kind, upperAlnum, length)
	case Password:
		if length == 0 {
			length = PasswordLength
		}
		return g.fromAlphabet(kind, mixedAlnum, length)
	default:
		return "", fmt.Errorf("unknown credential kind %q", kind)
	}
}

// fromAlphabet draws characters by rejection sampling so every symbol of
// the alphabet is equally likely.
func (g *Generator) fromAlphabet(kind Kind, alphabet string, length int) (string, error) {
	n := len(alphabet)
	limit := 256 - (256 % n)

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(g.src, buf); err != nil {
			return "", &GenerationError{Kind: kind, Err: err}
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
