package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the number of random salt bytes per password
	SaltSize = 16
	// KeySize is the derived key length in bytes
	KeySize = 32
	// Iterations is the fixed PBKDF2 iteration count
	Iterations = 100000
)

// Hash derives a PBKDF2-SHA256 key from the password using a fresh
// random salt. The salt and key are concatenated and base64-encoded so
// Verify can recover the salt from the stored value.
func Hash(password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)

	buf := make([]byte, 0, SaltSize+KeySize)
	buf = append(buf, salt...)
	buf = append(buf, key...)

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Verify recomputes the key with the stored salt and compares it to the
// stored key in constant time. Malformed stored values never verify.
func Verify(password, encoded string) bool {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) != SaltSize+KeySize {
		return false
	}

	salt, stored := raw[:SaltSize], raw[SaltSize:]
	key := pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)

	return subtle.ConstantTimeCompare(stored, key) == 1
}
