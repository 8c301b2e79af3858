package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes  = 16
	iterations = 100_000
	keyLength  = 32
)

var ErrEmptyPassword = errors.New("password must not be empty")

// HashPassword derives a PBKDF2-SHA256 hash under a fresh random salt.
// Both values are hex encoded; the hex salt string itself is the KDF salt.
func HashPassword(plain string) (salt string, hash string, err error) {
	if plain == "" {
		return "", "", ErrEmptyPassword
	}

	raw := make([]byte, saltBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", err
	}

	salt = hex.EncodeToString(raw)
	return salt, derive(plain, salt), nil
}

// CheckPassword reports whether plain matches the stored salt and hash.
func CheckPassword(plain, salt, hash string) bool {
	if salt == "" || hash == "" {
		return false
	}

	got := derive(plain, salt)

	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}

func derive(plain, salt string) string {
	key := pbkdf2.Key([]byte(plain), []byte(salt), iterations, keyLength, sha256.New)
	return hex.EncodeToString(key)
}
