package share

import (
	"crypto/rand"
	"math/big"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	uidLen        = 6
	shareTokenLen = 6
	corsTokenLen  = 12
)

// NewToken returns n alphanumeric characters from crypto/rand.
// Used for the public uid and the secret share token half of auth.
func NewToken(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tokenAlphabet[idx.Int64()]
	}
	return string(out), nil
}
