package utils

import "golang.org/x/crypto/bcrypt" // bcrypt for password hashing

// HashPassword hashes a plaintext password with bcrypt at the given cost.
// The resulting hash is safe to persist.  Returns an error if hashing
// fails (for example, when the cost is outside the allowed range).
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a plaintext password to a stored bcrypt hash.
// It returns true when the password matches.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
