package security

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"labstock/internal/repository"
	"labstock/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

var jwtSecret []byte

func init() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// direct invocations may not have exported the env file yet
		_ = godotenv.Load()
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		log.Println("warning: JWT_SECRET is not set, token operations will fail")
		return
	}
	jwtSecret = []byte(secret)
}

var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthenticateUser checks the password hash for an active account. The same
// error covers unknown email, bad password and deactivated accounts so the
// response does not leak which one it was.
func AuthenticateUser(email, password string, repo *repository.Repository) (*models.User, error) {
	var user models.User

	query := repo.GoquDBWrapper.
		Select("id", "email", "name", "password_hash", "role", "is_active").
		From("users").
		Where(goqu.Ex{"email": email})

	found, err := query.Executor().ScanStruct(&user)
	if err != nil {
		return nil, err
	}
	if !found || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

func GenerateJWT(userID string, role string, name string) (string, error) {
	if len(jwtSecret) == 0 {
		return "", errors.New("JWT_SECRET is not set")
	}
	claims := jwt.MapClaims{
		"userID": userID,
		"role":   role,
		"name":   name,
		"exp":    time.Now().Add(12 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// CurrentUserID returns the authenticated user's id set by JWTMiddleware.
func CurrentUserID(c *gin.Context) (int, error) {
	raw, exists := c.Get("userID")
	if !exists {
		return 0, fmt.Errorf("no authenticated user in context")
	}
	s, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("userID claim is not a string")
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("userID claim is not numeric: %w", err)
	}
	return id, nil
}

// CurrentRole returns the authenticated user's role set by JWTMiddleware.
func CurrentRole(c *gin.Context) (string, bool) {
	raw, exists := c.Get("role")
	if !exists {
		return "", false
	}
	role, ok := raw.(string)
	return role, ok
}
