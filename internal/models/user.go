package models

import (
	"time"
	"unicode"
)

// User is a row of the users table. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password"`
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Profile is the public view of a user.
type Profile struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Profile returns the public view of u.
func (u *User) Profile() *Profile {
	return &Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

// PublicUser is the user object returned by a successful login.
type PublicUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Public returns the login view of u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name}
}

// DisplayName is the name shown in greetings, falling back to "User".
func (p *Profile) DisplayName() string {
	if p == nil || p.Name == "" {
		return "User"
	}
	return p.Name
}

// Initial is the avatar letter for the profile.
func (p *Profile) Initial() string {
	if p == nil {
		return "U"
	}
	for _, s := range []string{p.Name, p.Email} {
		for _, r := range s {
			return string(unicode.ToUpper(r))
		}
	}
	return "U"
}
