package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingjournal/src/auth"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
)

type userUpdater interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type passwordChanger interface {
	ChangePassword(ctx context.Context, user *model.User, current, next string) error
}

func UpdateUserHandler(repo userUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			logger.Warn("user not found in context during profile update")
			return
		}

		var payload model.UpdateUserPayload
		if !decodeJSON(w, r, &payload) {
			return
		}

		updated := *user
		if payload.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*payload.Email))
			if !strings.Contains(email, "@") {
				writeValidation(w, model.ValidationErrors{{Field: "email", Message: "value is not a valid email address"}})
				return
			}
			if email != user.Email {
				existing, err := repo.FindByEmail(r.Context(), email)
				if err != nil {
					internalError(w, r, "UpdateUser", err, nil)
					return
				}
				if existing != nil {
					writeDetail(w, http.StatusBadRequest, auth.ErrEmailTaken.Error())
					return
				}
			}
			updated.Email = email
		}
		if payload.FullName != nil {
			updated.FullName = strings.TrimSpace(*payload.FullName)
		}
		if payload.ProfileImageURL != nil {
			updated.ProfileImageURL = strings.TrimSpace(*payload.ProfileImageURL)
		}

		if err := repo.Update(r.Context(), &updated); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				writeDetail(w, http.StatusBadRequest, auth.ErrEmailTaken.Error())
				return
			}
			logger.WithError(err).Error("failed to update user profile")
			internalError(w, r, "UpdateUser", err, nil)
			return
		}

		writeJSON(w, http.StatusOK, updated.ToResponse())
	}
}

func ChangePasswordHandler(svc passwordChanger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			logger.Warn("user not found in context during password change")
			return
		}

		var payload model.ChangePasswordPayload
		if !decodeJSON(w, r, &payload) {
			return
		}

		if payload.CurrentPassword == "" || payload.NewPassword == "" {
			writeDetail(w, http.StatusBadRequest, "Current and new passwords are required")
			return
		}

		err := svc.ChangePassword(r.Context(), user, payload.CurrentPassword, payload.NewPassword)
		if errors.Is(err, auth.ErrWrongPassword) {
			logger.WithField("user_id", user.ID).Warn("current password mismatch")
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeError(w, r, "ChangePassword", err)
			return
		}

		writeMessage(w, "Password updated successfully")
	}
}

func DefaultUpdateUserHandler() http.HandlerFunc {
	return UpdateUserHandler(repository.NewUserRepository())
}
