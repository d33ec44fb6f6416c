// Package models contains the server-side data model.
package models

import "time"

// RoleUser is the role assigned to newly registered accounts.
const RoleUser = "user"

// User is the credential-store record. Email is stored lowercased and is
// unique at the storage level. PasswordHash is never exposed to clients.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    time.Time
}

// PublicUser is the only user representation ever sent to a client.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips secret material from the record.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
