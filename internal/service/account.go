package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/meetly/meetly/internal/auth"
	"github.com/meetly/meetly/internal/mail"
	"github.com/meetly/meetly/internal/metrics"
	"github.com/meetly/meetly/internal/model"
	"github.com/meetly/meetly/internal/repository"
	"github.com/meetly/meetly/internal/storage"
)

const maxNameLength = 100

// UserStore is the persistence the account service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(userID, email, fullName string, role model.Role) (string, error)
}

// WelcomeMailer greets new users.
type WelcomeMailer interface {
	SendWelcome(ctx context.Context, to, fullName string) error
}

// AccountService handles registration and login.
type AccountService struct {
	users   UserStore
	tokens  TokenIssuer
	mailer  WelcomeMailer
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserStore, tokens TokenIssuer, mailer WelcomeMailer, recorder metrics.Recorder, logger *slog.Logger) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		users:   users,
		tokens:  tokens,
		mailer:  mailer,
		metrics: recorder,
		logger:  logger.With("component", "account_service"),
		now:     time.Now,
	}
}

// RegisterInput defines input for registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
	PhotoPath *string
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	UserID    string
	FullName  string
	Email     string
	Role      model.Role
	Token     string
	PhotoPath *string
}

// Register creates an account and signs the user in. Emails are stored
// lowercased so uniqueness ignores case. The welcome email is
// best effort: a delivery failure is logged and the account stays.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	switch {
	case firstName == "":
		return nil, invalid("firstName", "is required")
	case len(firstName) > maxNameLength:
		return nil, invalid("firstName", fmt.Sprintf("must be at most %d characters", maxNameLength))
	case lastName == "":
		return nil, invalid("lastName", "is required")
	case len(lastName) > maxNameLength:
		return nil, invalid("lastName", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}

	email, err := mail.ParseAddress(in.Email)
	if err != nil {
		return nil, invalid("email", "must be a valid email address")
	}
	email = strings.ToLower(email)

	if len(in.Password) < auth.MinPasswordLength {
		return nil, invalid("password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
	}

	photoPath, err := normalizeOptionalPath(in.PhotoPath)
	if err != nil {
		return nil, invalid("photoPath", "must be a path returned by the upload endpoint")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		PhotoPath:    photoPath,
		Role:         model.RoleUser,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.IncRegistration()

	if err := s.mailer.SendWelcome(ctx, user.Email, user.FullName()); err != nil {
		s.logger.WarnContext(ctx, "welcome email not delivered",
			"user_id", user.ID,
			"error", err,
		)
	}

	return s.signIn(user)
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password produce the same error.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.VerifyDummy(password)
			s.metrics.IncLoginFailure()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash unreadable",
			"user_id", user.ID,
			"error", err,
		)
		s.metrics.IncLoginFailure()
		return nil, ErrInvalidCredentials
	}
	if !ok {
		s.metrics.IncLoginFailure()
		return nil, ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	return s.signIn(user)
}

func (s *AccountService) upgradeHash(ctx context.Context, userID, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed",
			"user_id", userID,
			"error", err,
		)
	}
}

func (s *AccountService) signIn(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email, user.FullName(), user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResult{
		UserID:    user.ID,
		FullName:  user.FullName(),
		Email:     user.Email,
		Role:      user.Role,
		Token:     token,
		PhotoPath: user.PhotoPath,
	}, nil
}

// normalizeOptionalPath validates an optional upload path. Empty means unset.
func normalizeOptionalPath(p *string) (*string, error) {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil, nil
	}
	clean, err := storage.CleanPath(*p)
	if err != nil {
		return nil, err
	}
	return &clean, nil
}
