package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Staff is the single account allowed to mutate the catalog.
type Staff struct {
	username string
	hash     []byte
}

// NewStaff takes a bcrypt hash, as produced by HashPassword.
func NewStaff(username, passwordHash string) (*Staff, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, errors.New("staff username required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, err
	}
	return &Staff{username: username, hash: []byte(passwordHash)}, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(password)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Staff) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(normalizeUsername(username)), []byte(s.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.hash, []byte(strings.TrimSpace(password)))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Staff) Username() string { return s.username }

func normalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}
