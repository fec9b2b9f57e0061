package orders

import (
	"crypto/rand"
	"math/big"
)

const (
	orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberLen      = 8
	// attempts before giving up on finding an unused number
	orderNumberAttempts = 5
)

// NewOrderNumber returns an 8 character token of uppercase letters and digits.
func NewOrderNumber() (string, error) {
	n := big.NewInt(int64(len(orderNumberAlphabet)))
	b := make([]byte, orderNumberLen)
	for i := range b {
		r, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		b[i] = orderNumberAlphabet[r.Int64()]
	}
	return string(b), nil
}
