package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/aula/internal/auth"
	"github.com/campusops/aula/internal/domain"
)

// mockServiceRepo is a configurable mock implementing domain.UserRepository.
// It captures calls and returns preconfigured responses.
type mockServiceRepo struct {
	getByEmailUser *domain.User
	getByEmailErr  error

	getByIDUser *domain.User
	getByIDErr  error

	createErr   error
	createdUser *domain.User // captures the user passed to Create.

	updateErr error
}

func (m *mockServiceRepo) Create(_ context.Context, u *domain.User) error {
	m.createdUser = u
	return m.createErr
}

func (m *mockServiceRepo) GetByID(context.Context, uuid.UUID, uuid.UUID) (*domain.User, error) {
	return m.getByIDUser, m.getByIDErr
}

func (m *mockServiceRepo) GetByEmail(context.Context, uuid.UUID, string) (*domain.User, error) {
	return m.getByEmailUser, m.getByEmailErr
}

func (m *mockServiceRepo) Update(context.Context, *domain.User) error {
	return m.updateErr
}

func (m *mockServiceRepo) List(context.Context, uuid.UUID) ([]*domain.User, error) {
	return nil, nil
}

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testEmail     = "alice@example.com"
	testPassword  = "correct-horse-battery-staple"
	testUserName  = "Alice"
)

var (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
)

func newTestService(repo *mockServiceRepo) *auth.Service {
	return auth.NewService(repo, testJWTSecret, testAccessTTL, testRefreshTTL)
}

func TestRegister(t *testing.T) {
	t.Parallel()

	schoolID := uuid.New()

	t.Run("happy path creates read-only staff user", func(t *testing.T) {
		t.Parallel()

		repo := &mockServiceRepo{getByEmailErr: domain.ErrNotFound}
		svc := newTestService(repo)

		user, err := svc.Register(t.Context(), schoolID, testEmail, testPassword, testUserName)

		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, schoolID, user.SchoolID)
		assert.Equal(t, testEmail, user.Email)
		assert.Equal(t, testUserName, user.Name)
		assert.Equal(t, domain.RoleStaff, user.Role, "new accounts must start read-only")
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("password is hashed not stored as plaintext", func(t *testing.T) {
		t.Parallel()

		repo := &mockServiceRepo{getByEmailErr: domain.ErrNotFound}
		svc := newTestService(repo)

		user, err := svc.Register(t.Context(), schoolID, testEmail, testPassword, testUserName)

		require.NoError(t, err)
		assert.NotEqual(t, testPassword, user.PasswordHash)
		assert.Contains(t, user.PasswordHash, "$", "argon2id hash must contain salt$hash separator")
	})

	t.Run("user already exists returns ErrUserAlreadyExists", func(t *testing.T) {
		t.Parallel()

		repo := &mockServiceRepo{
			getByEmailUser: &domain.User{ID: uuid.New(), SchoolID: schoolID, Email: testEmail},
		}
		svc := newTestService(repo)

		user, err := svc.Register(t.Context(), schoolID, testEmail, testPassword, testUserName)

		require.Error(t, err)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
	})

	t.Run("repo Create error is propagated", func(t *testing.T) {
		t.Parallel()

		repoErr := errors.New("database connection refused")
		repo := &mockServiceRepo{getByEmailErr: domain.ErrNotFound, createErr: repoErr}
		svc := newTestService(repo)

		user, err := svc.Register(t.Context(), schoolID, testEmail, testPassword, testUserName)

		require.Error(t, err)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, repoErr)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	schoolID := uuid.New()

	// registerAndGetUser registers a user via the service and returns the
	// captured repo user (with hashed password) for Login tests.
	registerAndGetUser := func(t *testing.T) *domain.User {
		t.Helper()

		repo := &mockServiceRepo{getByEmailErr: domain.ErrNotFound}
		svc := newTestService(repo)

		_, err := svc.Register(t.Context(), schoolID, testEmail, testPassword, testUserName)
		require.NoError(t, err)
		require.NotNil(t, repo.createdUser)

		return repo.createdUser
	}

	t.Run("happy path returns two valid tokens", func(t *testing.T) {
		t.Parallel()

		repo := &mockServiceRepo{getByEmailUser: registerAndGetUser(t)}
		svc := newTestService(repo)

		accessToken, refreshToken, err := svc.Login(t.Context(), schoolID, testEmail, testPassword)

		require.NoError(t, err)
		assert.NotEmpty(t, accessToken)
		assert.NotEmpty(t, refreshToken)
		assert.NotEqual(t, accessToken, refreshToken)
	})

	t.Run("access token carries school and role claims", func(t *testing.T) {
		t.Parallel()

		registeredUser := registerAndGetUser(t)
		repo := &mockServiceRepo{getByEmailUser: registeredUser}
		svc := newTestService(repo)

		accessToken, _, err := svc.Login(t.Context(), schoolID, testEmail, testPassword)
		require.NoError(t, err)

		claims, err := auth.ValidateToken(testJWTSecret, accessToken)
		require.NoError(t, err)
		assert.Equal(t, registeredUser.ID.String(), claims.UserID)
		assert.Equal(t, registeredUser.SchoolID.String(), claims.SchoolID)
		assert.Equal(t, domain.RoleStaff, claims.Role)
		assert.Equal(t, "access", claims.TokenType)
	})

	t.Run("wrong password returns ErrInvalidCredentials", func(t *testing.T) {
		t.Parallel()

		repo := &mockServiceRepo{getByEmailUser: registerAndGetUser(t)}
		svc := newTestService(repo)

		accessToken, refreshToken, err := svc.Login(t.Context(), schoolID, testEmail, "wrong-password")

		require.Error(t, err)
		assert.Empty(t, accessToken)
		assert.Empty(t, refreshToken)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("user not found returns ErrInvalidCredentials", func(t *testing.T) {
		t.Parallel()

		repo := &mockServiceRepo{getByEmailErr: domain.ErrNotFound}
		svc := newTestService(repo)

		_, _, err := svc.Login(t.Context(), schoolID, "nobody@example.com", testPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	schoolID := uuid.New()
	userID := uuid.New()

	t.Run("happy path issues new access token", func(t *testing.T) {
		t.Parallel()

		repo := &mockServiceRepo{
			getByIDUser: &domain.User{ID: userID, SchoolID: schoolID, Role: domain.RoleStaff},
		}
		svc := newTestService(repo)

		refreshToken, err := auth.IssueRefreshToken(testJWTSecret, schoolID, userID, domain.RoleStaff, testRefreshTTL)
		require.NoError(t, err)

		newAccess, err := svc.RefreshToken(t.Context(), refreshToken)
		require.NoError(t, err)

		claims, err := auth.ValidateToken(testJWTSecret, newAccess)
		require.NoError(t, err)
		assert.Equal(t, "access", claims.TokenType)
		assert.Equal(t, userID.String(), claims.UserID)
	})

	t.Run("uses current role from repo not stale token role", func(t *testing.T) {
		t.Parallel()

		// User was promoted to approver after the refresh token was issued.
		repo := &mockServiceRepo{
			getByIDUser: &domain.User{ID: userID, SchoolID: schoolID, Role: domain.RoleApprover},
		}
		svc := newTestService(repo)

		refreshToken, err := auth.IssueRefreshToken(testJWTSecret, schoolID, userID, domain.RoleStaff, testRefreshTTL)
		require.NoError(t, err)

		newAccess, err := svc.RefreshToken(t.Context(), refreshToken)
		require.NoError(t, err)

		claims, err := auth.ValidateToken(testJWTSecret, newAccess)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleApprover, claims.Role)
	})

	t.Run("access token rejected with ErrInvalidToken", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(&mockServiceRepo{})

		accessToken, err := auth.IssueAccessToken(testJWTSecret, schoolID, userID, domain.RoleStaff, testAccessTTL)
		require.NoError(t, err)

		_, err = svc.RefreshToken(t.Context(), accessToken)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired token returns error", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(&mockServiceRepo{})

		expiredToken, err := auth.IssueRefreshToken(testJWTSecret, schoolID, userID, domain.RoleStaff, -1*time.Second)
		require.NoError(t, err)

		_, err = svc.RefreshToken(t.Context(), expiredToken)
		require.Error(t, err)
	})

	t.Run("user deleted after token issued returns ErrUserNotFound", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(&mockServiceRepo{getByIDErr: domain.ErrNotFound})

		refreshToken, err := auth.IssueRefreshToken(testJWTSecret, schoolID, userID, domain.RoleStaff, testRefreshTTL)
		require.NoError(t, err)

		_, err = svc.RefreshToken(t.Context(), refreshToken)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	schoolID := uuid.New()
	userID := uuid.New()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueAccessToken(testJWTSecret, schoolID, userID, domain.RoleAdmin, testAccessTTL)
		require.NoError(t, err)

		claims, err := auth.ValidateToken(testJWTSecret, token)
		require.NoError(t, err)
		assert.Equal(t, schoolID.String(), claims.SchoolID)
		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, domain.RoleAdmin, claims.Role)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueAccessToken(testJWTSecret, schoolID, userID, domain.RoleAdmin, testAccessTTL)
		require.NoError(t, err)

		_, err = auth.ValidateToken("another-secret", token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		t.Parallel()

		_, err := auth.ValidateToken(testJWTSecret, "not-a-valid-jwt")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
