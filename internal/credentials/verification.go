package credentials

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	codeMin   = 100000
	codeRange = 900000
)

// Issuer generates email verification secrets
type Issuer struct{}

// NewIssuer creates a verification issuer
func NewIssuer() *Issuer {
	return &Issuer{}
}

// NewToken returns an unguessable verification token
func (i *Issuer) NewToken() string {
	return uuid.NewString()
}

// NewCode returns a uniformly random 6-digit code in 100000..999999
func (i *Issuer) NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%d", codeMin+n.Int64()), nil
}
