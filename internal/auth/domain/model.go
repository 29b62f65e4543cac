// Package domain contains core types for back office accounts.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the job a back office user performs.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleSalesManager Role = "sales_manager"
	RoleSalesRep     Role = "sales_rep"
)

// ParseRole normalizes a role name.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleAdmin, RoleSalesManager, RoleSalesRep:
		return r, true
	}
	return "", false
}

// User is a back office account.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Email        string       `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name         string       `gorm:"column:name;type:text;not null"`
	Role         Role         `gorm:"column:role;type:text;not null"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null"`
	Phone        *string      `gorm:"column:phone;type:text"`
	PushToken    *string      `gorm:"column:push_token;type:text"`
	Active       bool         `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
