// Package security contains everything related to the security of user data
package security

import (
	"crypto/subtle"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Hasher struct {
	Cost int
}

func New() *Hasher {
	cost := viper.GetInt("security.bcrypt_cost")
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{Cost: cost}
}

func (h *Hasher) GenerateFromPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), h.Cost)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// Credential is a stored password value classified once at parse time
// instead of being re-sniffed on every comparison.
type Credential struct {
	stored string
	hashed bool
}

// ParseCredential classifies a stored value by the bcrypt "$2" version
// prefix. Anything else is a legacy plaintext row from before hashing
// was introduced.
func ParseCredential(stored string) Credential {
	return Credential{
		stored: stored,
		hashed: strings.HasPrefix(stored, "$2"),
	}
}

// Legacy reports whether the credential predates hashing. Such rows are
// a migration hazard and should be rehashed on next successful login.
func (c Credential) Legacy() bool {
	return !c.hashed
}

func (c Credential) Matches(p string) bool {
	if c.hashed {
		return bcrypt.CompareHashAndPassword([]byte(c.stored), []byte(p)) == nil
	}

	return subtle.ConstantTimeCompare([]byte(c.stored), []byte(p)) == 1
}
