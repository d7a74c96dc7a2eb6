package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
)

type mockUserRepo struct {
	users       map[string]models.User
	deactivated []string
	revoked     []string
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var list []models.User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		list = append(list, u)
	}
	return list, len(list), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "new-user"
	}
	if m.users == nil {
		m.users = make(map[string]models.User)
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if u, ok := m.users[id]; ok {
		u.Active = false
		m.users[id] = u
	}
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "maria.santos@tesda.gov.ph",
		Password: "secret123",
		FullName: "Maria Santos",
		Role:     models.RoleStaff,
	})
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.Equal(t, models.RoleStaff, user.Role)
	// Passwords are stored hashed, never in the clear.
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Email: "maria.santos@tesda.gov.ph", Role: models.RoleStaff},
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email: "maria.santos@tesda.gov.ph", Password: "secret123", FullName: "Maria Santos", Role: models.RoleStaff,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateInvalidRole(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email: "maria.santos@tesda.gov.ph", Password: "secret123", FullName: "Maria Santos", Role: "SUPERUSER",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Email: "maria.santos@tesda.gov.ph", FullName: "Maria Santos", Role: models.RoleStaff, Active: true},
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	role := models.RoleAdmin
	user, err := svc.Update(context.Background(), "user-1", UpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "Maria Santos", user.FullName)

	_, err = svc.Update(context.Background(), "missing", UpdateUserRequest{Role: &role})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDeactivate(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Email: "maria.santos@tesda.gov.ph", Active: true},
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	require.NoError(t, svc.Deactivate(context.Background(), "user-1"))
	assert.Contains(t, repo.deactivated, "user-1")
	// Open sessions die with the account.
	assert.Contains(t, repo.revoked, "user-1")

	err := svc.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
