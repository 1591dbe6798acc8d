package seed

import (
	"errors"
	"testing"

	custom_error "labstock/pkg/errors"
	"labstock/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) PersistUser(req models.CreateUserRequest, hashedPassword []byte) (int, error) {
	args := m.Called(req, hashedPassword)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) GetUser(id int) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUsers() ([]models.User, error) {
	args := m.Called()
	return nil, args.Error(1)
}

func (m *MockUserRepository) UpdateUser(id int, changes *models.UserChanges) error {
	args := m.Called(id, changes)
	return args.Error(0)
}

func (m *MockUserRepository) Exists(userID int) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func TestEnsureAdminCreates(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByEmail", "admin@lab.example").Return(nil, custom_error.ErrNotFound)
	repo.On("PersistUser", mock.MatchedBy(func(req models.CreateUserRequest) bool {
		return req.Email == "admin@lab.example" && req.Role == "admin"
	}), mock.Anything).Return(1, nil)

	err := EnsureAdmin(repo, "admin@lab.example", "Administrator", "changeme123", zap.NewNop())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestEnsureAdminIdempotent(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByEmail", "admin@lab.example").
		Return(&models.User{ID: 1, Email: "admin@lab.example", Role: "admin"}, nil)

	err := EnsureAdmin(repo, "admin@lab.example", "Administrator", "changeme123", zap.NewNop())

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "PersistUser", mock.Anything, mock.Anything)
}

func TestEnsureAdminRaceLosesQuietly(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByEmail", "admin@lab.example").Return(nil, custom_error.ErrNotFound)
	repo.On("PersistUser", mock.Anything, mock.Anything).
		Return(0, &custom_error.DuplicateKeyError{Field: "email", Value: "admin@lab.example"})

	err := EnsureAdmin(repo, "admin@lab.example", "Administrator", "changeme123", zap.NewNop())

	assert.NoError(t, err)
}

func TestEnsureAdminLookupError(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByEmail", "admin@lab.example").Return(nil, errors.New("db down"))

	err := EnsureAdmin(repo, "admin@lab.example", "Administrator", "changeme123", zap.NewNop())

	assert.Error(t, err)
}

func TestAdminFromEnv(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "admin@lab.example")
	t.Setenv("ADMIN_PASSWORD", "changeme123")
	t.Setenv("ADMIN_NAME", "")

	email, name, password, err := AdminFromEnv()

	assert.NoError(t, err)
	assert.Equal(t, "admin@lab.example", email)
	assert.Equal(t, "Administrator", name)
	assert.Equal(t, "changeme123", password)
}

func TestAdminFromEnvMissing(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_PASSWORD", "")

	_, _, _, err := AdminFromEnv()

	assert.Error(t, err)
}

func TestAdminFromEnvShortPassword(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "admin@lab.example")
	t.Setenv("ADMIN_PASSWORD", "short")

	_, _, _, err := AdminFromEnv()

	assert.Error(t, err)
}
