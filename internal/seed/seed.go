package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	authdomain "github.com/tastelanc/backoffice/internal/auth/domain"
	"github.com/tastelanc/backoffice/internal/auth/password"
	"github.com/tastelanc/backoffice/internal/config"
)

const defaultAdminName = "TasteLanc Admin"

// EnsureAdmin creates the bootstrap admin when BOOTSTRAP_ADMIN_EMAIL is set and
// no user with that email exists. It reports whether a user was created.
func EnsureAdmin(db *gorm.DB, cfg config.BootstrapConfig) (bool, error) {
	if db == nil {
		return false, errors.New("seed database handle is required")
	}
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return false, nil
	}
	if len(cfg.AdminPassword) < password.MinLength {
		return false, authdomain.ErrInvalidPassword
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return false, err
	}

	ctx := context.Background()
	created := false
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&authdomain.User{}).Where("lower(email) = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hashed, err := password.Hash(cfg.AdminPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user := authdomain.User{
			ID:           node.Generate(),
			Email:        email,
			Name:         defaultAdminName,
			Role:         authdomain.RoleAdmin,
			PasswordHash: hashed,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
