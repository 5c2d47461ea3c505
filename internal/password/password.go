// Package password wraps bcrypt for credential hashing. Each hash carries its
// own random salt and work factor, so verification needs nothing but the hash.
package password

import "golang.org/x/crypto/bcrypt"

// Hash returns a salted bcrypt hash of the plaintext. The only failure modes
// are entropy exhaustion or a password over bcrypt's 72-byte limit.
func Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether plaintext matches the stored hash. A wrong password
// or malformed hash returns false, never an error; bcrypt compares in
// constant time.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
