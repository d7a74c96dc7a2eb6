package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

type mockAuthUserRepo struct {
	users         map[string]models.User
	tokens        map[string]models.RefreshToken
	revokedUsers  []string
	lastLogin     map[string]time.Time
	passwordHash  map[string]string
	auditActions  []string
	createdTokens int
}

func (m *mockAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if m.lastLogin == nil {
		m.lastLogin = make(map[string]time.Time)
	}
	m.lastLogin[id] = ts
	return nil
}

func (m *mockAuthUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.passwordHash == nil {
		m.passwordHash = make(map[string]string)
	}
	m.passwordHash[id] = passwordHash
	return nil
}

func (m *mockAuthUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	for key, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
			m.tokens[key] = token
		}
	}
	return nil
}

func (m *mockAuthUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.tokens == nil {
		m.tokens = make(map[string]models.RefreshToken)
	}
	m.tokens[token.Token] = *token
	m.createdTokens++
	return nil
}

func (m *mockAuthUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for key, token := range m.tokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
			m.tokens[key] = token
		}
	}
	return nil
}

func (m *mockAuthUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditActions = append(m.auditActions, log.Action)
	return nil
}

func newAuthFixture(t *testing.T) (*mockAuthUserRepo, *AuthService) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &mockAuthUserRepo{users: map[string]models.User{
		"user-1": {
			ID: "user-1", Email: "juan.delacruz@tesda.gov.ph", PasswordHash: string(hash),
			FullName: "Juan Dela Cruz", Role: models.RoleStudent, Active: true,
		},
		"user-2": {
			ID: "user-2", Email: "inactive@tesda.gov.ph", PasswordHash: string(hash),
			FullName: "Former Trainee", Role: models.RoleStudent, Active: false,
		},
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "tesda-lms-api",
	})
	return repo, svc
}

func TestAuthServiceLogin(t *testing.T) {
	repo, svc := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "juan.delacruz@tesda.gov.ph", Password: "password123", IP: "203.0.113.10",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	stored, ok := repo.tokens[resp.RefreshToken]
	require.True(t, ok)
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, "203.0.113.10", stored.IPAddress)
	assert.Contains(t, repo.auditActions, models.AuditActionLogin)
	assert.Contains(t, repo.lastLogin, "user-1")
}

func TestAuthServiceLoginInvalidCredentials(t *testing.T) {
	_, svc := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "juan.delacruz@tesda.gov.ph", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	// Unknown accounts produce the same error as a wrong password.
	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@tesda.gov.ph", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	_, svc := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "inactive@tesda.gov.ph", Password: "password123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginSingleSession(t *testing.T) {
	repo, _ := newAuthFixture(t)
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "tesda-lms-api",
		SingleSession:      true,
	})

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "juan.delacruz@tesda.gov.ph", Password: "password123",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revokedUsers, "user-1")
}

func TestAuthServiceRefreshTokenRotation(t *testing.T) {
	repo, svc := newAuthFixture(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{
		Email: "juan.delacruz@tesda.gov.ph", Password: "password123",
	})
	require.NoError(t, err)

	resp, err := svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)

	// Each refresh token works exactly once.
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)
	_, err = svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshTokenRejected(t *testing.T) {
	repo, svc := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: "unknown"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	repo.tokens = map[string]models.RefreshToken{
		"expired": {ID: "tok-1", UserID: "user-1", Token: "expired",
			ExpiresAt: time.Now().UTC().Add(-time.Hour)},
		"stale": {ID: "tok-2", UserID: "user-2", Token: "stale",
			ExpiresAt: time.Now().UTC().Add(time.Hour)},
	}

	_, err = svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: "expired"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	// Deactivated accounts cannot refresh even with a live token.
	_, err = svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogout(t *testing.T) {
	repo, svc := newAuthFixture(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{
		Email: "juan.delacruz@tesda.gov.ph", Password: "password123",
	})
	require.NoError(t, err)

	err = svc.Logout(ctx, login.RefreshToken, "someone-else", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.tokens[login.RefreshToken].Revoked)

	require.NoError(t, svc.Logout(ctx, login.RefreshToken, "user-1", models.LoginRequest{}))
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)
	assert.Contains(t, repo.auditActions, models.AuditActionLogout)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo, svc := newAuthFixture(t)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, "user-1", models.ChangePasswordRequest{
		OldPassword: "wrong-password", NewPassword: "newsecret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.passwordHash)

	err = svc.ChangePassword(ctx, "user-1", models.ChangePasswordRequest{
		OldPassword: "password123", NewPassword: "newsecret",
	})
	require.NoError(t, err)
	require.Contains(t, repo.passwordHash, "user-1")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwordHash["user-1"]), []byte("newsecret")))
	// Password changes invalidate every outstanding session.
	assert.Contains(t, repo.revokedUsers, "user-1")
	assert.Contains(t, repo.auditActions, models.AuditActionPasswordChange)
}

func TestAuthServiceValidateToken(t *testing.T) {
	_, svc := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "juan.delacruz@tesda.gov.ph", Password: "password123",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "juan.delacruz@tesda.gov.ph", claims.Email)

	_, err = svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
