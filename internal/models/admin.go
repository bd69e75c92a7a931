package models

import "time"

const RoleAdmin = "admin"

type Admin struct {
	ID           int32
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// TokenClaims is what an admin bearer token asserts.
type TokenClaims struct {
	AdminID   int32     `json:"admin_id"`
	Username  string    `json:"sub"`
	Role      string    `json:"role"`
	TokenID   string    `json:"jti"`
	ExpiresAt time.Time `json:"exp"`
	IssuedAt  time.Time `json:"iat"`
}

// Actor is the authenticated caller of an admin operation.
type Actor struct {
	Username string
	Role     string
}

func (a Actor) IsAdmin() bool {
	return a.Username != "" && a.Role == RoleAdmin
}
