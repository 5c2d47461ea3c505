package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aydinberk/sumchat/internal/password"
	"github.com/aydinberk/sumchat/internal/repo"
	"github.com/aydinberk/sumchat/internal/token"
)

func errDuplicate() error {
	return &pq.Error{Code: "23505", Constraint: "users_username_key"}
}

func newService(t *testing.T) (*AuthService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	iss := token.NewIssuer([]byte("test-secret"), 24*time.Hour)
	return NewAuthService(repo.NewUserRepo(db), iss), mock
}

func TestRegister(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "last_login"}).
			AddRow(1, "alice", "alice@example.com", "$2a$10$hash", time.Now(), nil))

	user, tok, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.NotEmpty(t, tok)

	// The returned token's subject must be the created user.
	claims, err := svc.Tokens.Verify(tok)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_Validation(t *testing.T) {
	svc, mock := newService(t)

	tests := []struct {
		name     string
		username string
		email    string
		password string
		field    string
	}{
		{"short username", "ab", "a@example.com", "password123", "username"},
		{"long username", "this_username_is_way_too_long", "a@example.com", "password123", "username"},
		{"bad characters", "al ice!", "a@example.com", "password123", "username"},
		{"bad email", "alice", "not-an-email", "password123", "email"},
		{"short password", "alice", "a@example.com", "short", "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(context.Background(), tt.username, tt.email, tt.password)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	// Validation failures never reach the store.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_Conflict(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com", sqlmock.AnyArg()).
		WillReturnError(errDuplicate())

	_, _, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin(t *testing.T) {
	svc, mock := newService(t)

	hash, err := password.Hash("password123")
	require.NoError(t, err)

	userRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "last_login"}).
			AddRow(1, "alice", "alice@example.com", hash, time.Now(), nil)
	}

	mock.ExpectQuery(`SELECT id, username, email, password_hash`).
		WithArgs("alice").
		WillReturnRows(userRows())
	mock.ExpectExec(`UPDATE users SET last_login`).
		WithArgs(sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, tok, err := svc.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, tok)
	assert.NotNil(t, user.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_EnumerationResistance(t *testing.T) {
	svc, mock := newService(t)

	hash, err := password.Hash("password123")
	require.NoError(t, err)

	// Unknown username.
	mock.ExpectQuery(`SELECT id, username, email, password_hash`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "last_login"}))

	_, _, errMissing := svc.Login(context.Background(), "nobody", "whatever")

	// Known username, wrong password.
	mock.ExpectQuery(`SELECT id, username, email, password_hash`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "last_login"}).
			AddRow(1, "alice", "alice@example.com", hash, time.Now(), nil))

	_, _, errWrongPass := svc.Login(context.Background(), "alice", "wrongpass")

	assert.ErrorIs(t, errMissing, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPass, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_LastLoginWriteFailureIsNotFatal(t *testing.T) {
	svc, mock := newService(t)

	hash, err := password.Hash("password123")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, username, email, password_hash`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "last_login"}).
			AddRow(1, "alice", "alice@example.com", hash, time.Now(), nil))
	mock.ExpectExec(`UPDATE users SET last_login`).
		WithArgs(sqlmock.AnyArg(), 1).
		WillReturnError(assert.AnError)

	_, tok, err := svc.Login(context.Background(), "alice", "password123")
	require.NoError(t, err, "login must succeed even when the last_login write fails")
	assert.NotEmpty(t, tok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyToken(t *testing.T) {
	svc, mock := newService(t)

	tok, err := svc.Tokens.Issue(1)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, username, email, password_hash`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "last_login"}).
			AddRow(1, "alice", "alice@example.com", "$2a$10$hash", time.Now(), nil))

	assert.True(t, svc.VerifyToken(context.Background(), tok))
	assert.False(t, svc.VerifyToken(context.Background(), "garbage"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyToken_SubjectGone(t *testing.T) {
	svc, mock := newService(t)

	tok, err := svc.Tokens.Issue(7)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, username, email, password_hash`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at", "last_login"}))

	assert.False(t, svc.VerifyToken(context.Background(), tok))
	assert.NoError(t, mock.ExpectationsWereMet())
}
