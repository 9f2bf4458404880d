package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// resetCodeSpan covers the six-digit range [100000, 999999].
var resetCodeSpan = big.NewInt(900000)

// GenerateResetCode returns a six-digit password reset code drawn uniformly
// from [100000, 999999]. rand.Int performs rejection sampling, so no digit
// sequence is more likely than another.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, resetCodeSpan)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
