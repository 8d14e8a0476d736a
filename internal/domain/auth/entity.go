// internal/domain/auth/entity.go
package auth

import (
	"database/sql"
	"time"
)

// Admin is a platform operator account, distinct from tenant businesses.
type Admin struct {
	ID           int64          `json:"id" db:"id"`
	Email        string         `json:"email" db:"email"`
	PasswordHash string         `json:"-" db:"password_hash"`
	FullName     sql.NullString `json:"full_name,omitempty" db:"full_name"`
	Role         string         `json:"role" db:"role"` // admin | super_admin
	IsActive     bool           `json:"is_active" db:"is_active"`
	LastLoginAt  sql.NullTime   `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}
