package safe_random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
)

// GenerateRandomBytes returns n cryptographically secure random bytes.
// Errors if the system's secure random source fails.
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateRandomHexString returns a secure random hex string of n bytes.
// Note the resulting string is 2n characters after hex encoding.
func GenerateRandomHexString(n int) (string, error) {
	b, err := GenerateRandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandomInt returns a uniform random value in [0, max).
func GenerateRandomInt(max *big.Int) (*big.Int, error) {
	if max.Sign() <= 0 {
		return nil, fmt.Errorf("max must be positive")
	}
	return rand.Int(rand.Reader, max)
}

// Reader is the shared cryptographically secure random source.
// Defaults to crypto/rand.Reader.
var Reader io.Reader = rand.Reader
