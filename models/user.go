package models

import "time"

// Role is the access level of a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "cliente"
)

// Category is a customer's loyalty tier.
type Category string

const (
	CategoryNew      Category = "nuevo"
	CategoryFrequent Category = "frecuente"
	CategoryVIP      Category = "vip"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// Valid reports whether c is a known loyalty category.
func (c Category) Valid() bool {
	switch c {
	case CategoryNew, CategoryFrequent, CategoryVIP:
		return true
	}
	return false
}

// User represents a registered account. The password is stored as a bcrypt hash.
type User struct {
	ID           int       `json:"id" bson:"id"`
	Name         string    `json:"nombre" bson:"nombre"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	Role         Role      `json:"role" bson:"role"`
	Category     Category  `json:"categoria" bson:"categoria"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
