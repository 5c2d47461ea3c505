// Package service orchestrates registration, login and token verification over
// the credential store, the password hasher and the token issuer. Handlers map
// the error kinds returned here onto HTTP statuses and never forward internal
// detail to the client.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aydinberk/sumchat/internal/models"
	"github.com/aydinberk/sumchat/internal/password"
	"github.com/aydinberk/sumchat/internal/repo"
	"github.com/aydinberk/sumchat/internal/token"
)

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password. The two cases are deliberately indistinguishable to the
	// caller so responses cannot be used to enumerate usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConflict means the username or email is already taken.
	ErrConflict = errors.New("username or email already in use")

	// ErrUnauthorized means the presented token failed verification or its
	// subject no longer exists.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports which request fields were rejected and why,
// before any hashing or store access happens.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

// usernamePattern: 3-20 chars, letters, digits and underscore.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

const minPasswordLen = 8

type AuthService struct {
	Users    *repo.UserRepo
	Tokens   *token.Issuer
	validate *validator.Validate
}

func NewAuthService(users *repo.UserRepo, tokens *token.Issuer) *AuthService {
	return &AuthService{
		Users:    users,
		Tokens:   tokens,
		validate: validator.New(),
	}
}

// Register validates the input, stores the new user with a hashed password
// and issues a session token. Registration logs the user straight in.
func (s *AuthService) Register(ctx context.Context, username, email, pass string) (*models.User, string, error) {
	if verr := s.validateRegistration(username, email, pass); verr != nil {
		return nil, "", verr
	}

	hash, err := password.Hash(pass)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Users.Create(ctx, username, email, hash)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, "", ErrConflict
	}
	if err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	tok, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return user, tok, nil
}

// Login verifies the credentials and issues a token. The last_login write is
// best-effort: losing it must not fail an otherwise valid login.
func (s *AuthService) Login(ctx context.Context, username, pass string) (*models.User, string, error) {
	user, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if !password.Verify(pass, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.Users.TouchLastLogin(ctx, user.ID, now); err != nil {
		slog.Warn("update last_login failed", "user_id", user.ID, "err", err)
	} else {
		user.LastLogin = &now
	}

	tok, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return user, tok, nil
}

// UserByID resolves the identity behind a verified token subject. A missing
// user (deleted after the token was issued) is ErrUnauthorized.
func (s *AuthService) UserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// VerifyToken reports whether the token is valid and its subject still exists.
// It never returns the failure cause; /verify-token answers with a plain bool.
func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) bool {
	claims, err := s.Tokens.Verify(tokenString)
	if err != nil {
		return false
	}
	id, err := claims.UserID()
	if err != nil {
		return false
	}
	if _, err := s.Users.GetByID(ctx, id); err != nil {
		return false
	}
	return true
}

func (s *AuthService) validateRegistration(username, email, pass string) *ValidationError {
	fields := make(map[string]string)

	if !usernamePattern.MatchString(username) {
		fields["username"] = "must be 3-20 characters: letters, digits and underscore"
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if len(pass) < minPasswordLen {
		fields["password"] = "must be at least 8 characters"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
