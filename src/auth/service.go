package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingjournal/src/model"
	"tradingjournal/src/security"
)

var (
	ErrEmailTaken         = errors.New("Email already registered")
	ErrInvalidCredentials = errors.New("Incorrect email or password")
	ErrInactiveUser       = errors.New("Inactive user")
	ErrWrongPassword      = errors.New("Invalid current password")
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	TouchLastLogin(ctx context.Context, userID uint, at time.Time) error
}

type RefreshTokenStore interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, token string, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint, at time.Time) (int64, error)
}

// ClientMeta identifies the device a refresh token is issued to.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// Service implements registration, login and the token lifecycle.
type Service struct {
	users  UserStore
	tokens RefreshTokenStore
	issuer *security.TokenIssuer
	now    func() time.Time
}

func NewService(users UserStore, tokens RefreshTokenStore, issuer *security.TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens, issuer: issuer, now: time.Now}
}

func (s *Service) Register(ctx context.Context, payload model.RegisterPayload) (*model.User, error) {
	var errs model.ValidationErrors
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if !validEmail(email) {
		errs.Add("email", "value is not a valid email address")
	}
	if err := security.ValidatePasswordStrength(payload.Password); err != nil {
		errs.Add("password", err.Error())
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashed, err := security.HashPassword(payload.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:    email,
		Password: hashed,
		FullName: strings.TrimSpace(payload.FullName),
		Role:     model.RoleUser,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	logger.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login checks credentials and issues an access/refresh pair. The refresh
// token is persisted so it can be revoked later.
func (s *Service) Login(ctx context.Context, payload model.LoginPayload, meta ClientMeta) (*model.User, *model.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, payload.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !security.CheckPassword(user.Password, payload.Password) {
		logger.WithField("email", payload.Email).Warn("failed login attempt")
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrInactiveUser
	}

	pair, err := s.issuePair(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		logger.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}
	user.LastLoginAt = &now

	return user, pair, nil
}

func (s *Service) issuePair(ctx context.Context, user *model.User, meta ClientMeta) (*model.TokenPair, error) {
	access, err := s.issuer.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, expiresAt, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	record := &model.RefreshToken{
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		UserAgent: truncate(meta.UserAgent, 500),
		IPAddress: truncate(meta.IPAddress, 45),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &model.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Refresh trades a stored, unrevoked refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	claims, err := s.issuer.Parse(refreshToken, security.RefreshToken)
	if err != nil {
		return nil, err
	}

	stored, err := s.tokens.FindByToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if !stored.IsUsable(s.now()) {
		return nil, security.ErrInvalidToken
	}

	userID, _ := claims.UserID()
	if userID != stored.UserID {
		return nil, security.ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, security.ErrInvalidToken
	}

	access, err := s.issuer.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	return &model.TokenPair{AccessToken: access, TokenType: "bearer"}, nil
}

// Logout revokes one refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	_, err := s.tokens.Revoke(ctx, refreshToken, s.now())
	return err
}

// LogoutAll revokes every session of the user and returns how many.
func (s *Service) LogoutAll(ctx context.Context, userID uint) (int64, error) {
	return s.tokens.RevokeAllForUser(ctx, userID, s.now())
}

// Authenticate resolves a bearer access token to an active user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := s.issuer.Parse(accessToken, security.AccessToken)
	if err != nil {
		return nil, err
	}
	userID, _ := claims.UserID()
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, security.ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, user *model.User, current, next string) error {
	if !security.CheckPassword(user.Password, current) {
		return ErrWrongPassword
	}
	if err := security.ValidatePasswordStrength(next); err != nil {
		return model.ValidationErrors{{Field: "new_password", Message: err.Error()}}
	}
	hashed, err := security.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = hashed
	return s.users.Update(ctx, user)
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
