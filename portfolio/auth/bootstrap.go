package auth

import (
	"fmt"
	"log/slog"

	"drug_portfolio/portfolio/schema"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AdminArgs struct {
	Username string
	Password string
	FullName string
	Email    string
}

// EnsureAdminUser creates the initial admin account if no user with the given
// username exists yet. Safe to call on every startup.
func EnsureAdminUser(db *gorm.DB, args AdminArgs) error {
	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(args.Password), 10)
	if err != nil {
		return fmt.Errorf("error encrypting admin password: %w", err)
	}

	admin := schema.User{
		Id:           uuid.New(),
		Username:     args.Username,
		PasswordHash: hashedPwd,
		Role:         schema.RoleAdmin,
		FullName:     args.FullName,
		Email:        args.Email,
	}

	err = db.Transaction(func(txn *gorm.DB) error {
		var existingUser schema.User
		result := txn.Limit(1).Find(&existingUser, "username = ?", args.Username)
		if result.Error != nil {
			slog.Error("sql error checking if admin has already been added", "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected == 0 {
			result := txn.Create(&admin)
			if result.Error != nil {
				slog.Error("sql error creating initial admin user", "error", result.Error)
				return schema.ErrDbAccessFailed
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error adding initial admin to db: %w", err)
	}

	return nil
}
