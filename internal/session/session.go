// Package session derives the signed-in user from an access token.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/nhle/bugtracker/internal/model"
)

// ErrExpired is returned for a token whose exp claim lies in the past.
var ErrExpired = errors.New("session expired")

// defaultUserID is used when the token carries no subject.
const defaultUserID = "1"

// Session is an authenticated user and the token that proves it.
type Session struct {
	Token     string
	User      model.User
	ExpiresAt time.Time
}

// Claims are the parts of the access token the client reads. The token is
// issued and verified by the API, so the signature is not checked here.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// ParseClaims decodes the payload of a JWT access token without verifying
// it. A token that is not a JWT yields empty claims and no error.
func ParseClaims(token string) (Claims, error) {
	if strings.Count(token, ".") != 2 {
		return Claims{}, nil
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token claims: %w", err)
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims")
	}

	var c Claims
	switch sub := mc["sub"].(type) {
	case string:
		c.Subject = sub
	case float64:
		c.Subject = fmt.Sprintf("%.0f", sub)
	}
	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	if exp, ok := mc["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return c, nil
}

// New builds a session after a successful login. email is what the user
// typed; claims in the token take precedence when present.
func New(token, email string, now time.Time) (*Session, error) {
	claims, err := ParseClaims(token)
	if err != nil {
		return nil, err
	}
	if !claims.ExpiresAt.IsZero() && !now.Before(claims.ExpiresAt) {
		return nil, ErrExpired
	}

	if claims.Email != "" {
		email = claims.Email
	}
	if email == "" && strings.Contains(claims.Subject, "@") {
		email = claims.Subject
	}

	id := defaultUserID
	if claims.Subject != "" && !strings.Contains(claims.Subject, "@") {
		id = claims.Subject
	}

	return &Session{
		Token:     token,
		User:      UserFromEmail(id, email),
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Restore rebuilds a session from a stored token.
func Restore(token string, now time.Time) (*Session, error) {
	if token == "" {
		return nil, errors.New("no stored token")
	}
	return New(token, "", now)
}

// Expired reports whether the session token has passed its exp claim.
// Tokens without one never expire on the client.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// UserFromEmail builds the session user: the name is the part of the email
// before "@" and the role is developer.
func UserFromEmail(id, email string) model.User {
	name := email
	if at := strings.Index(email, "@"); at >= 0 {
		name = email[:at]
	}
	if name == "" {
		name = "user"
	}
	return model.User{
		ID:    id,
		Name:  name,
		Email: email,
		Role:  model.RoleDeveloper,
	}
}
