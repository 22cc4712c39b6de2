package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"user@example.com", "a.b+c@sub.domain.org", "x_y@test.io"}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("ValidateEmail(%q) = %v, want nil", email, err)
		}
	}

	invalid := []string{"", "plainstring", "@nodomain.com", "user@", "user@host", "user @example.com"}
	for _, email := range invalid {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("ValidateEmail(%q) = nil, want error", email)
		}
	}

	long := strings.Repeat("a", 95) + "@example.com"
	if err := ValidateEmail(long); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("over-long email error = %v, want ErrStringTooLong", err)
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"abc", "snake_lord", "player-1", "A1234567890123456789"}
	for _, name := range valid {
		if err := ValidateUsername(name); err != nil {
			t.Errorf("ValidateUsername(%q) = %v, want nil", name, err)
		}
	}

	if err := ValidateUsername("ab"); !errors.Is(err, ErrStringTooShort) {
		t.Errorf("short username error = %v, want ErrStringTooShort", err)
	}
	if err := ValidateUsername(strings.Repeat("a", 21)); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("long username error = %v, want ErrStringTooLong", err)
	}
	if err := ValidateUsername("has space"); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("username with space error = %v, want ErrInvalidUsername", err)
	}
	if err := ValidateUsername("dots.not.ok"); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("username with dots error = %v, want ErrInvalidUsername", err)
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("Correct1Horse"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}

	weak := []string{"Sh0rt", "alllowercase1", "ALLUPPERCASE1", "NoNumbersHere"}
	for _, pw := range weak {
		if err := ValidatePassword(pw); !errors.Is(err, ErrWeakPassword) {
			t.Errorf("ValidatePassword(%q) = %v, want ErrWeakPassword", pw, err)
		}
	}
	if err := ValidatePassword(""); err == nil {
		t.Error("empty password must be rejected")
	}
}

func TestValidateUUID(t *testing.T) {
	if err := ValidateUUID("3e0170e9-27ff-49d1-a06a-5ae00c44b178"); err != nil {
		t.Errorf("valid UUID rejected: %v", err)
	}
	invalid := []string{"", "not-a-uuid", "3e0170e927ff49d1a06a5ae00c44b178", "3e0170e9-27ff-49d1-a06a-5ae00c44b17z"}
	for _, id := range invalid {
		if err := ValidateUUID(id); err == nil {
			t.Errorf("ValidateUUID(%q) = nil, want error", id)
		}
	}
}

func TestValidateSnakeURL(t *testing.T) {
	valid := []string{"http://localhost:8080", "https://snake.example.com/api", "http://10.0.0.5:3000/snake"}
	for _, raw := range valid {
		if err := ValidateSnakeURL(raw); err != nil {
			t.Errorf("ValidateSnakeURL(%q) = %v, want nil", raw, err)
		}
	}

	invalid := []string{"", "ftp://example.com", "file:///etc/passwd", "example.com/snake", "https://"}
	for _, raw := range invalid {
		if err := ValidateSnakeURL(raw); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ValidateSnakeURL(%q) = %v, want ErrInvalidURL", raw, err)
		}
	}

	long := "http://example.com/" + strings.Repeat("a", 500)
	if err := ValidateSnakeURL(long); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("over-long URL error = %v, want ErrStringTooLong", err)
	}
}

func TestValidateSnakeName(t *testing.T) {
	if err := ValidateSnakeName("Sidewinder"); err != nil {
		t.Errorf("valid snake name rejected: %v", err)
	}
	if err := ValidateSnakeName("   "); !errors.Is(err, ErrStringTooShort) {
		t.Errorf("blank snake name error = %v, want ErrStringTooShort", err)
	}
	if err := ValidateSnakeName(strings.Repeat("s", 101)); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("long snake name error = %v, want ErrStringTooLong", err)
	}
}

func TestValidateLeaderboardName(t *testing.T) {
	if err := ValidateLeaderboardName("Summer League"); err != nil {
		t.Errorf("valid leaderboard name rejected: %v", err)
	}
	if err := ValidateLeaderboardName(""); !errors.Is(err, ErrStringTooShort) {
		t.Errorf("empty leaderboard name error = %v, want ErrStringTooShort", err)
	}
}
