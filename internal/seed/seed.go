package seed

import (
	"errors"
	"fmt"
	"os"

	"labstock/internal/users"
	custom_error "labstock/pkg/errors"
	"labstock/pkg/models"
	"labstock/pkg/roles"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminFromEnv reads the initial admin credentials from ADMIN_EMAIL and
// ADMIN_PASSWORD.
func AdminFromEnv() (email, name, password string, err error) {
	email = os.Getenv("ADMIN_EMAIL")
	password = os.Getenv("ADMIN_PASSWORD")
	name = os.Getenv("ADMIN_NAME")
	if name == "" {
		name = "Administrator"
	}
	if email == "" || password == "" {
		return "", "", "", errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}
	if len(password) < 8 {
		return "", "", "", errors.New("ADMIN_PASSWORD must be at least 8 characters long")
	}
	return email, name, password, nil
}

// EnsureAdmin creates the admin account if it does not exist yet. Running it
// again with the same email is a no-op, so it is safe to invoke on every
// deploy.
func EnsureAdmin(repo users.UserRepository, email, name, password string, log *zap.Logger) error {
	existing, err := repo.GetByEmail(email)
	if err != nil && !errors.Is(err, custom_error.ErrNotFound) {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}
	if existing != nil {
		log.Info("admin account already exists", zap.String("email", email))
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	id, err := repo.PersistUser(models.CreateUserRequest{
		Email:    email,
		Name:     name,
		Password: password,
		Role:     roles.Admin.String(),
	}, hashedPassword)
	if err != nil {
		// lost a race with a concurrent seeder
		var dup *custom_error.DuplicateKeyError
		if errors.As(err, &dup) {
			log.Info("admin account already exists", zap.String("email", email))
			return nil
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	log.Info("admin account created", zap.String("email", email), zap.Int("id", id))
	return nil
}
