package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/term"

	"github.com/meetly/meetly/internal/auth"
	"github.com/meetly/meetly/internal/model"
	"github.com/meetly/meetly/internal/repository"
)

type output struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Created bool   `json:"created"`
	Token   string `json:"token,omitempty"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "admin@meetly.local", "Admin email")
		firstName   = flag.String("first-name", "Meetly", "First name for a new account")
		lastName    = flag.String("last-name", "Admin", "Last name for a new account")
		password    = flag.String("password", os.Getenv("ADMIN_PASSWORD"), "Password for a new account")
		issueToken  = flag.Bool("token", false, "Print a bearer token signed with JWT_SECRET")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}

	user, created, err := ensureAdmin(ctx, repo, strings.ToLower(strings.TrimSpace(*email)), *firstName, *lastName, passwordSource(*password))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	out := output{UserID: user.ID, Email: user.Email, Created: created}
	if *issueToken {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			fmt.Fprintln(os.Stderr, "JWT_SECRET is required with -token")
			os.Exit(1)
		}
		issuer := auth.NewTokenIssuer(secret, envOr("JWT_ISSUER", "meetly"), envOr("JWT_AUDIENCE", "meetly-clients"), time.Hour)
		out.Token, err = issuer.Issue(user.ID, user.Email, user.FullName(), model.RoleAdmin)
		if err != nil {
			fmt.Fprintln(os.Stderr, "issue token:", err)
			os.Exit(1)
		}
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.UserID)
		if out.Token != "" {
			fmt.Println(out.Token)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

// ensureAdmin promotes an existing account or creates a new admin one.
func ensureAdmin(ctx context.Context, repo *repository.Repository, email, firstName, lastName string, readPassword func() (string, error)) (*model.User, bool, error) {
	user, err := repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Role != model.RoleAdmin {
			if err := repo.SetUserRole(ctx, user.ID, model.RoleAdmin); err != nil {
				return nil, false, fmt.Errorf("promote user: %w", err)
			}
			user.Role = model.RoleAdmin
		}
		return user, false, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}

	password, err := readPassword()
	if err != nil {
		return nil, false, fmt.Errorf("read password: %w", err)
	}
	if len(password) < auth.MinPasswordLength {
		return nil, false, fmt.Errorf("password must be at least %d characters for a new account", auth.MinPasswordLength)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	user = &model.User{
		ID:           ulid.Make().String(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}

// passwordSource returns the flag value, or prompts on an interactive
// terminal when none was given.
func passwordSource(flagValue string) func() (string, error) {
	return func() (string, error) {
		if flagValue != "" {
			return flagValue, nil
		}
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", nil
		}
		fmt.Fprint(os.Stderr, "Admin password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
