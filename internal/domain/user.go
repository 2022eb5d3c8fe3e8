package domain

import "time"

// User is the domain entity for a user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity is the public projection of a User kept in the session.
// It never carries the password hash.
type Identity struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name, Username: u.Username}
}
