// Package credentials hashes and verifies account passwords, issues email
// verification secrets, and synthesizes child passwords.
package credentials

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Kind tags how a stored password value should be interpreted
type Kind int

const (
	// Hashed is a bcrypt hash
	Hashed Kind = iota
	// Legacy is a plaintext value carried over from older records
	Legacy
)

func (k Kind) String() string {
	if k == Hashed {
		return "hashed"
	}
	return "legacy"
}

// Credential is a stored password value together with its kind
type Credential struct {
	Kind  Kind
	Value string
}

// String returns the value as it is persisted
func (c Credential) String() string {
	return c.Value
}

const bcryptPrefix = "$2"

// Parse classifies a stored password. Values with the bcrypt prefix are hashed,
// everything else is legacy plaintext.
func Parse(stored string) Credential {
	if strings.HasPrefix(stored, bcryptPrefix) {
		return Credential{Kind: Hashed, Value: stored}
	}
	return Credential{Kind: Legacy, Value: stored}
}

// Codec hashes and verifies passwords with a fixed bcrypt cost
type Codec struct {
	cost int
}

// NewCodec creates a codec. A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewCodec(cost int) *Codec {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Codec{cost: cost}
}

// Hash hashes a plaintext password
func (c *Codec) Hash(plaintext string) (Credential, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), c.cost)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return Credential{Kind: Hashed, Value: string(hash)}, nil
}

// Verify reports whether plaintext matches the credential.
// Malformed hashes and empty legacy values never match.
func (c *Codec) Verify(cred Credential, plaintext string) bool {
	switch cred.Kind {
	case Hashed:
		return bcrypt.CompareHashAndPassword([]byte(cred.Value), []byte(plaintext)) == nil
	case Legacy:
		if cred.Value == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(cred.Value), []byte(plaintext)) == 1
	}
	return false
}

// Upgrade rehashes a legacy credential that has just been verified.
// It returns the credential unchanged and false when nothing needs upgrading.
func (c *Codec) Upgrade(cred Credential, plaintext string) (Credential, bool, error) {
	if cred.Kind != Legacy {
		return cred, false, nil
	}
	hashed, err := c.Hash(plaintext)
	if err != nil {
		return cred, false, err
	}
	return hashed, true, nil
}

// Check verifies plaintext against a stored value and returns the value that
// should be persisted when it changed.
func (c *Codec) Check(stored, plaintext string) (ok bool, upgraded string, err error) {
	cred := Parse(stored)
	if !c.Verify(cred, plaintext) {
		return false, "", nil
	}
	next, changed, err := c.Upgrade(cred, plaintext)
	if err != nil {
		return true, "", err
	}
	if changed {
		return true, next.Value, nil
	}
	return true, "", nil
}
