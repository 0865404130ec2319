package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2 encoded
	Roles        []string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Scope derives the token scope string for the user: role names uppercased
// and space-joined, in stored order.
func (u User) Scope() string {
	if len(u.Roles) == 0 {
		return ""
	}

	upper := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		upper[i] = strings.ToUpper(r)
	}
	return strings.Join(upper, " ")
}

// HasScope reports whether the user's derived scope covers a required
// scope entry.
func (u User) HasScope(required string) bool {
	required = strings.ToUpper(required)
	for _, r := range u.Roles {
		if strings.ToUpper(r) == required {
			return true
		}
	}
	return false
}
