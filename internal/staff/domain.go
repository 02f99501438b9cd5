// Package staff manages the people allowed to operate a tenant's books.
package staff

import (
	"errors"
	"time"
)

// Role bounds what a staff member may do.
type Role string

const (
	// RoleAdmin manages staff and all documents.
	RoleAdmin Role = "admin"
	// RoleManager manages documents and the catalog.
	RoleManager Role = "manager"
	// RoleClerk creates and edits drafts only.
	RoleClerk Role = "clerk"
)

// Member is a staff account scoped to one tenant.
type Member struct {
	ID           int64     `json:"id" db:"id"`
	TenantID     int64     `json:"tenant_id" db:"tenant_id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	Role         Role      `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CanFinalize reports whether the role may freeze documents.
func (m *Member) CanFinalize() bool {
	return m.Role == RoleAdmin || m.Role == RoleManager
}

// CreateMemberRequest registers a staff account.
type CreateMemberRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,max=255"`
	Role     Role   `json:"role" validate:"required,oneof=admin manager clerk"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UpdateMemberRequest modifies selected fields.
type UpdateMemberRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Role     *Role   `json:"role,omitempty" validate:"omitempty,oneof=admin manager clerk"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	IsActive *bool   `json:"is_active,omitempty"`
}

var (
	// ErrNotFound indicates a missing staff member.
	ErrNotFound = errors.New("staff: not found")
	// ErrAlreadyExists indicates a duplicate email within the tenant.
	ErrAlreadyExists = errors.New("staff: email already registered")
	// ErrInvalidCredentials covers bad email, bad password and inactive
	// accounts alike, so responses do not leak which one failed.
	ErrInvalidCredentials = errors.New("staff: invalid credentials")
)
