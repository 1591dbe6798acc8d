package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	custom_error "labstock/pkg/errors"
	"labstock/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUser(id int, changes *models.UserChanges) error {
	args := m.Called(id, changes)
	return args.Error(0)
}

func (m *MockUserRepository) Exists(userID int) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func performRequest(handler gin.HandlerFunc, method, url string, body interface{}, userID, role string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	c.Request = httptest.NewRequest(method, url, bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	if userID != "" {
		c.Set("userID", userID)
		c.Set("role", role)
	}

	// route params are not populated by CreateTestContext
	c.Params = gin.Params{{Key: "id", Value: paramFromURL(url)}}

	handler(c)
	return w
}

func paramFromURL(url string) string {
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			return url[i+1:]
		}
	}
	return ""
}

func TestRegisterUser(t *testing.T) {
	tests := []struct {
		name           string
		payload        interface{}
		setupMock      func(m *MockUserRepository)
		expectedStatus int
	}{
		{
			name: "successful registration",
			payload: models.CreateUserRequest{
				Email:    "ana@lab.example",
				Name:     "Ana Torres",
				Password: "password123",
				Role:     "lab_staff",
			},
			setupMock: func(m *MockUserRepository) {
				m.On("PersistUser", mock.Anything, mock.Anything).Return(7, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "duplicate email",
			payload: models.CreateUserRequest{
				Email:    "ana@lab.example",
				Name:     "Ana Torres",
				Password: "password123",
				Role:     "lab_staff",
			},
			setupMock: func(m *MockUserRepository) {
				m.On("PersistUser", mock.Anything, mock.Anything).
					Return(0, &custom_error.DuplicateKeyError{Field: "email", Value: "ana@lab.example"})
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "unknown role",
			payload: models.CreateUserRequest{
				Email:    "ana@lab.example",
				Name:     "Ana Torres",
				Password: "password123",
				Role:     "janitor",
			},
			setupMock:      func(m *MockUserRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing fields",
			payload:        map[string]string{"email": "ana@lab.example"},
			setupMock:      func(m *MockUserRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)
			handler := NewHandler(mockRepo)

			w := performRequest(handler.RegisterUser, http.MethodPost, "/users", tt.payload, "1", "admin")

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestGetUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetUser", 5).Return(&models.User{ID: 5, Email: "ana@lab.example", Name: "Ana Torres", Role: "researcher", IsActive: true}, nil)
	handler := NewHandler(mockRepo)

	w := performRequest(handler.GetUser, http.MethodGet, "/users/5", nil, "1", "admin")

	assert.Equal(t, http.StatusOK, w.Code)
	var user models.User
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "Ana Torres", user.Name)
}

func TestGetUserNotFound(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetUser", 99).Return(nil, custom_error.ErrNotFound)
	handler := NewHandler(mockRepo)

	w := performRequest(handler.GetUser, http.MethodGet, "/users/99", nil, "1", "admin")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUserList(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetUsers").Return([]models.User{{ID: 1}, {ID: 2}}, nil)
	handler := NewHandler(mockRepo)

	w := performRequest(handler.GetUserList, http.MethodGet, "/users", nil, "1", "read_only")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetUserListError(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetUsers").Return(nil, errors.New("db down"))
	handler := NewHandler(mockRepo)

	w := performRequest(handler.GetUserList, http.MethodGet, "/users", nil, "1", "admin")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUpdateUserSelfPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetUser", 3).Return(&models.User{ID: 3, Name: "Ana Torres", Role: "researcher", IsActive: true}, nil)
	mockRepo.On("UpdateUser", 3, mock.MatchedBy(func(ch *models.UserChanges) bool {
		return ch.PasswordHash != nil && ch.Role == nil
	})).Return(nil)
	handler := NewHandler(mockRepo)

	password := "newpassword1"
	w := performRequest(handler.UpdateUser, http.MethodPatch, "/users/3",
		models.UpdateUserRequest{Password: &password}, "3", "researcher")

	assert.Equal(t, http.StatusOK, w.Code)
	mockRepo.AssertExpectations(t)
}

func TestUpdateUserRoleRequiresAdmin(t *testing.T) {
	mockRepo := new(MockUserRepository)
	handler := NewHandler(mockRepo)

	role := "admin"
	w := performRequest(handler.UpdateUser, http.MethodPatch, "/users/3",
		models.UpdateUserRequest{Role: &role}, "3", "researcher")

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockRepo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
}

func TestUpdateUserOtherAccountForbidden(t *testing.T) {
	mockRepo := new(MockUserRepository)
	handler := NewHandler(mockRepo)

	name := "New Name"
	w := performRequest(handler.UpdateUser, http.MethodPatch, "/users/9",
		models.UpdateUserRequest{Name: &name}, "3", "researcher")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateUserShortPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetUser", 3).Return(&models.User{ID: 3, Role: "researcher"}, nil)
	handler := NewHandler(mockRepo)

	password := "short"
	w := performRequest(handler.UpdateUser, http.MethodPatch, "/users/3",
		models.UpdateUserRequest{Password: &password}, "3", "researcher")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateUserNoChanges(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetUser", 3).Return(&models.User{ID: 3, Name: "Ana Torres", Role: "researcher"}, nil)
	handler := NewHandler(mockRepo)

	name := "Ana Torres"
	w := performRequest(handler.UpdateUser, http.MethodPatch, "/users/3",
		models.UpdateUserRequest{Name: &name}, "3", "researcher")

	assert.Equal(t, http.StatusOK, w.Code)
	mockRepo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
}
