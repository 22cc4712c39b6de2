package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Common validation errors
var (
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidUsername = errors.New("invalid username format")
	ErrWeakPassword    = errors.New("password too weak")
	ErrInvalidUUID     = errors.New("invalid UUID format")
	ErrInvalidURL      = errors.New("invalid URL")
	ErrStringTooLong   = errors.New("string exceeds maximum length")
	ErrStringTooShort  = errors.New("string below minimum length")
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	uuidRegex     = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)
)

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > 100 {
		return fmt.Errorf("%w: email must be <= 100 characters", ErrStringTooLong)
	}
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateUsername validates username format
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username is required")
	}
	if len(username) < 3 {
		return fmt.Errorf("%w: username must be >= 3 characters", ErrStringTooShort)
	}
	if len(username) > 20 {
		return fmt.Errorf("%w: username must be <= 20 characters", ErrStringTooLong)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: username can only contain letters, numbers, underscore, and hyphen", ErrInvalidUsername)
	}
	return nil
}

// ValidatePassword validates password strength
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrWeakPassword)
	}
	if len(password) > 128 {
		return fmt.Errorf("%w: password must be <= 128 characters", ErrStringTooLong)
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	if !hasUpper || !hasLower || !hasNumber {
		return fmt.Errorf("%w: password must contain at least one uppercase letter, one lowercase letter, and one number", ErrWeakPassword)
	}
	return nil
}

// ValidateUUID validates UUID format
func ValidateUUID(id string) error {
	if id == "" {
		return errors.New("UUID is required")
	}
	if !uuidRegex.MatchString(id) {
		return ErrInvalidUUID
	}
	return nil
}

// ValidateSnakeName validates a snake display name
func ValidateSnakeName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 1 {
		return fmt.Errorf("%w: snake name is required", ErrStringTooShort)
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: snake name must be <= 100 characters", ErrStringTooLong)
	}
	return nil
}

// ValidateSnakeURL validates a snake server base URL. Only absolute http(s)
// URLs are accepted so the runner never dials arbitrary schemes.
func ValidateSnakeURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidURL)
	}
	if len(raw) > 500 {
		return fmt.Errorf("%w: url must be <= 500 characters", ErrStringTooLong)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// ValidateLeaderboardName validates a leaderboard name
func ValidateLeaderboardName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 1 {
		return fmt.Errorf("%w: leaderboard name is required", ErrStringTooShort)
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: leaderboard name must be <= 100 characters", ErrStringTooLong)
	}
	return nil
}
