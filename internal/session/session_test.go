package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/nhle/bugtracker/internal/model"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tok := signToken(t, jwt.MapClaims{
		"sub":   "42",
		"email": "ada@example.com",
		"exp":   exp,
	})

	c, err := ParseClaims(tok)
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if c.Subject != "42" || c.Email != "ada@example.com" || c.ExpiresAt.Unix() != exp {
		t.Errorf("unexpected claims %+v", c)
	}
}

func TestParseClaimsNumericSubject(t *testing.T) {
	tok := signToken(t, jwt.MapClaims{"sub": 7})

	c, err := ParseClaims(tok)
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if c.Subject != "7" {
		t.Errorf("expected subject 7, got %q", c.Subject)
	}
}

func TestParseClaimsOpaqueToken(t *testing.T) {
	c, err := ParseClaims("not-a-jwt")
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if c != (Claims{}) {
		t.Errorf("expected empty claims, got %+v", c)
	}
}

func TestParseClaimsMalformed(t *testing.T) {
	if _, err := ParseClaims("a.b.c"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestNewUsesLoginEmail(t *testing.T) {
	now := time.Now()
	s, err := New("opaque-token", "grace.hopper@example.com", now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := model.User{ID: "1", Name: "grace.hopper", Email: "grace.hopper@example.com", Role: model.RoleDeveloper}
	if s.User != want {
		t.Errorf("expected %+v, got %+v", want, s.User)
	}
	if s.Expired(now.Add(24 * time.Hour)) {
		t.Error("token without exp should not expire")
	}
}

func TestNewPrefersClaims(t *testing.T) {
	tok := signToken(t, jwt.MapClaims{
		"sub":   "99",
		"email": "claims@example.com",
	})

	s, err := New(tok, "typed@example.com", time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.User.ID != "99" || s.User.Email != "claims@example.com" || s.User.Name != "claims" {
		t.Errorf("unexpected user %+v", s.User)
	}
}

func TestRestoreEmailSubject(t *testing.T) {
	tok := signToken(t, jwt.MapClaims{"sub": "dev@example.com"})

	s, err := Restore(tok, time.Now())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if s.User.ID != "1" || s.User.Email != "dev@example.com" {
		t.Errorf("unexpected user %+v", s.User)
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	now := time.Now()
	tok := signToken(t, jwt.MapClaims{
		"sub": "1",
		"exp": now.Add(-time.Minute).Unix(),
	})

	if _, err := Restore(tok, now); !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	tok := signToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})

	s, err := Restore(tok, now)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if s.Expired(now) {
		t.Error("should not be expired yet")
	}
	if !s.Expired(now.Add(2 * time.Hour)) {
		t.Error("should be expired after exp")
	}
}

func TestRestoreEmptyToken(t *testing.T) {
	if _, err := Restore("", time.Now()); err == nil {
		t.Error("expected error for empty token")
	}
}
