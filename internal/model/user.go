package model

import (
	"strings"
	"unicode"
)

// Role is a user's role in the tracker.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleDeveloper Role = "developer"
	RoleReporter  Role = "reporter"
)

// User is a person who can be signed in or assigned to issues.
type User struct {
	ID    string `json:"id" mapstructure:"id" yaml:"id"`
	Name  string `json:"name" mapstructure:"name" yaml:"name"`
	Email string `json:"email" mapstructure:"email" yaml:"email"`
	Role  Role   `json:"role" mapstructure:"role" yaml:"role"`
}

// Initials returns the upper-cased first letter of each word in the name.
func (u User) Initials() string {
	var b strings.Builder
	for _, part := range strings.Fields(u.Name) {
		r := []rune(part)
		b.WriteRune(unicode.ToUpper(r[0]))
	}
	return b.String()
}

// FindUser returns the user with the given id.
func FindUser(users []User, id string) (User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
