// Password hashing and credential rules.
//
// WHY BCRYPT?
// bcrypt is deliberately slow, salts every hash, and stores the salt and cost
// inside the output:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (2^12 rounds)
//	 version

package auth

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/idle-clicker/internal/apperror"
)

// defaultCost is the bcrypt work factor, roughly 250ms per hash on a server.
const defaultCost = 12

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{3,20}$`)
	passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9&^!@#]{4,20}$`)
)

// ValidateCredentials checks a registration or password-change request.
// Usernames are 3 to 20 ASCII letters or digits; passwords 4 to 20 of
// letters, digits and & ^ ! @ #.
func ValidateCredentials(username, password string) error {
	if !usernamePattern.MatchString(username) {
		return apperror.ValidationFailed("username", "username must be alphanumeric and between 3 and 20 characters")
	}
	if !passwordPattern.MatchString(password) {
		return apperror.ValidationFailed("password", "password must be 4 to 20 characters of letters, digits or &^!@#")
	}
	return nil
}

// PasswordService provides bcrypt hashing and verification. The cost is a
// field so tests can run at the bcrypt minimum.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost is for tests in other packages; pass
// bcrypt.MinCost. Never use a low cost in production.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash rejects inputs over 72 bytes instead of letting bcrypt truncate them.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// ErrPasswordMismatch is returned by Verify for a wrong password, as opposed
// to a malformed hash.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// Verify returns nil on match. The comparison is constant-time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
