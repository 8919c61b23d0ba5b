// internal/utils/password.go
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"

	"github.com/marketua/marketplace-backend/internal/models"
)

const (
	pbkdf2Algorithm = "pbkdf2_sha256"
	saltLength      = 22
	keyLength       = sha256.Size
)

// PasswordHasher produces "pbkdf2_sha256$<iterations>$<salt>$<b64 hash>"
// encodings and verifies them, plus bcrypt hashes imported from older systems.
type PasswordHasher struct {
	iterations int
}

func NewPasswordHasher(iterations int) *PasswordHasher {
	if iterations <= 0 {
		iterations = 600000
	}
	return &PasswordHasher{iterations: iterations}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	salt, err := GenerateRandomString(saltLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return h.encode(password, salt, h.iterations), nil
}

func (h *PasswordHasher) encode(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, keyLength, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s", pbkdf2Algorithm, iterations, salt,
		base64.StdEncoding.EncodeToString(key))
}

// Check compares password against encoded in constant time. The unusable
// sentinel and malformed encodings never match.
func (h *PasswordHasher) Check(password, encoded string) bool {
	if encoded == "" || encoded == models.UnusablePassword {
		return false
	}

	if strings.HasPrefix(encoded, "$2a$") || strings.HasPrefix(encoded, "$2b$") || strings.HasPrefix(encoded, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	}

	parts := strings.SplitN(encoded, "$", 4)
	if len(parts) != 4 || parts[0] != pbkdf2Algorithm {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}

	candidate := h.encode(password, parts[2], iterations)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(encoded)) == 1
}

// GenerateRandomString returns length characters drawn from an alphanumeric charset.
func GenerateRandomString(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}
