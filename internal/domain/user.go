package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyPhoneNumber    = errors.New("phone number cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

// User represents a registered user of the platform. Accounts are keyed by
// phone number; registration and password reset are gated by SMS
// verification codes.
type User struct {
	ID             uuid.UUID  `json:"id"`
	PhoneNumber    string     `json:"phone_number"`
	Password       string     `json:"-"` // Plaintext password, used temporarily during registration/updates
	HashedPassword string     `json:"-"` // Never expose password hash in JSON
	VIPExpiresAt   *time.Time `json:"vip_expires_at,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewUser creates a new User with the given phone number and password.
// It generates a new UUID for the user ID and sets the creation/update
// timestamps. Returns an error if validation fails.
//
// NOTE: This function only sets up the user structure with the plaintext
// password. The caller is responsible for hashing the password before
// storing the user.
func NewUser(phoneNumber, password string) (*User, error) {
	user := &User{
		ID:          uuid.New(),
		PhoneNumber: phoneNumber,
		Password:    password, // Plaintext password - must be hashed before storage
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.PhoneNumber == "" {
		return ErrEmptyPhoneNumber
	}

	if !ValidatePhoneNumber(u.PhoneNumber) {
		return ErrInvalidPhoneNumber
	}

	if u.Password != "" {
		if len(u.Password) < 6 {
			return ErrPasswordTooShort
		}
		// bcrypt truncates beyond 72 bytes.
		if len(u.Password) > 72 {
			return ErrPasswordTooLong
		}
	} else {
		// Existing users loaded from the database carry only the hash.
		if u.HashedPassword == "" {
			return ErrEmptyPassword
		}
	}

	return nil
}

// IsVIPActive reports whether the user currently holds an active VIP
// membership.
func (u *User) IsVIPActive(now time.Time) bool {
	return u.VIPExpiresAt != nil && now.Before(*u.VIPExpiresAt)
}
