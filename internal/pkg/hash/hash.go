package hash

import "strings"

// Hash produces and checks hashes of plaintext secrets.
type Hash interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}

// Password hashes new passwords with the preferred algorithm and verifies
// existing hashes with whichever algorithm produced them.
type Password struct {
	preferred Hash
	bcrypt    *Bcrypt
	argon2id  *Argon2id
}

// NewPassword builds a Password. algorithm is "bcrypt" or "argon2id"; anything
// else falls back to bcrypt.
func NewPassword(algorithm string, b *Bcrypt, a *Argon2id) *Password {
	p := &Password{preferred: b, bcrypt: b, argon2id: a}
	if strings.EqualFold(algorithm, "argon2id") {
		p.preferred = a
	}
	return p
}

func (p *Password) Hash(plaintext string) ([]byte, error) {
	return p.preferred.Hash(plaintext)
}

func (p *Password) Verify(hashed, plaintext string) bool {
	if strings.HasPrefix(hashed, argon2idPrefix) {
		return p.argon2id.Verify(hashed, plaintext)
	}
	return p.bcrypt.Verify(hashed, plaintext)
}
