package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"tradingjournal/src/database"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
	"tradingjournal/src/security"
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
}

// CreateAdmin creates an admin account, or promotes an existing user.
// Flags win over ADMIN_* variables.
type CreateAdmin struct {
	Email    string
	Password string
	FullName string
}

func (t *CreateAdmin) Start() error {
	config := GetConfig()
	if t.Email == "" {
		t.Email = config.Email
	}
	if t.Password == "" {
		t.Password = config.Password
	}
	if t.FullName == "" {
		t.FullName = config.FullName
	}

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}

	user, created, err := EnsureAdmin(context.Background(), repository.NewUserRepository(), t.Email, t.Password, t.FullName)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
		"created": created,
	}).Info("Admin account ready")
	return nil
}

// EnsureAdmin reports created=false when an existing user was promoted.
// The password is only checked and set for new accounts.
func EnsureAdmin(ctx context.Context, users userStore, email, password, fullName string) (*model.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, errors.New("admin email is required")
	}

	existing, err := users.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.Role == model.RoleAdmin && existing.IsActive {
			return existing, false, nil
		}
		existing.Role = model.RoleAdmin
		existing.IsActive = true
		if err := users.Update(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	if err := security.ValidatePasswordStrength(password); err != nil {
		return nil, false, err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	user := &model.User{
		Email:      email,
		Password:   hash,
		FullName:   fullName,
		Role:       model.RoleAdmin,
		IsActive:   true,
		IsVerified: true,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}
