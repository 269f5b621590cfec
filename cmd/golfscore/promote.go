package main

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/auth"
	"github.com/trentd187/golf-scorekeeper/internal/database"
	"github.com/trentd187/golf-scorekeeper/internal/middleware"
	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// newPromoteCommand bootstraps the first admin. Nobody can grant the admin
// role over the API until an admin exists.
func newPromoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <email>",
		Short: "Give the admin role to the user with this email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg.DatabaseURL)
			if err != nil {
				return err
			}

			user, err := promote(cmd.Context(), db, args[0])
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{"user_id": user.UserID, "email": user.Email}).Info("User promoted to admin")
			return nil
		},
	}
}

// promote sets user_role=admin for the account registered under email.
// An account that has never signed in gets its profile created first.
func promote(ctx context.Context, db *gorm.DB, email string) (*models.User, error) {
	email = auth.NormalizeEmail(email)
	var user *models.User

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.AuthAccount
		err := tx.First(&account, "email = ?", email).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no account registered for %s", email)
		}
		if err != nil {
			return err
		}

		user, err = middleware.FindOrCreateUser(tx, account.ID, account.Email)
		if err != nil {
			return err
		}
		user.UserRole = models.UserRoleAdmin
		return tx.Model(user).Update("user_role", models.UserRoleAdmin).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
