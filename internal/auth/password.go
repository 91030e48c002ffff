package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword creates a bcrypt hash of the given password at the given
// work factor.
//
// Precondition: password must be non-empty; cost must be within bcrypt's
// accepted range.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
//
// Postcondition: Returns true iff password matches the hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
