package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"labstock/internal/ratelimit"
	"labstock/internal/repository"
	"labstock/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionLedger records login and logout audit events.
type SessionLedger interface {
	AppendAudit(a *models.AuditLog) error
}

type LoginHandler struct {
	repo    *repository.Repository
	ledger  SessionLedger
	limiter *ratelimit.Limiter
	log     *zap.Logger
}

func NewLoginHandler(r *repository.Repository, ledger SessionLedger, log *zap.Logger) *LoginHandler {
	return &LoginHandler{
		repo:    r,
		ledger:  ledger,
		limiter: ratelimit.New(10, 5*time.Minute),
		log:     log,
	}
}

func (l *LoginHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/auth/login", l.Login)
	router.POST("/auth/logout", JWTMiddleware(), l.Logout)
}

func (l *LoginHandler) Login(c *gin.Context) {
	clientKey := clientKey(c)

	if !l.limiter.Allow(clientKey) {
		remaining := l.limiter.Remaining(clientKey)
		c.Header("X-RateLimit-Limit", "10")
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":     "Too many login attempts, try again later",
			"remaining": remaining,
		})
		return
	}

	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	user, err := AuthenticateUser(req.Email, req.Password, l.repo)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := GenerateJWT(strconv.Itoa(user.ID), user.Role, user.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	l.auditSession(models.AuditLogin, user.ID, c.ClientIP(), c.GetHeader("User-Agent"))

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (l *LoginHandler) Logout(c *gin.Context) {
	userID, err := CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	l.auditSession(models.AuditLogout, userID, c.ClientIP(), c.GetHeader("User-Agent"))

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// auditSession records a login or logout. The session itself is not rolled
// back when the append fails, but the failure is logged instead of lost.
func (l *LoginHandler) auditSession(action string, userID int, ip, userAgent string) {
	err := l.ledger.AppendAudit(&models.AuditLog{
		UserID:    userID,
		Action:    action,
		TableName: "users",
		IPAddress: &ip,
		UserAgent: &userAgent,
	})
	if err != nil && l.log != nil {
		l.log.Error("failed to record session audit event",
			zap.String("action", action), zap.Int("user_id", userID), zap.Error(err))
	}
}

// clientKey picks the best available client identity for throttling. Behind
// a proxy the first X-Forwarded-For hop wins; private addresses get the
// User-Agent mixed in so one NAT does not pool everyone together.
func clientKey(c *gin.Context) string {
	ip := c.GetHeader("X-Forwarded-For")
	if ip == "" {
		ip = c.GetHeader("X-Real-IP")
	}
	if ip == "" {
		ip = c.ClientIP()
	}
	if strings.Contains(ip, ",") {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if isPrivateIP(ip) {
		ip = ip + ":" + c.GetHeader("User-Agent")
	}
	return ip
}

func isPrivateIP(ip string) bool {
	privatePrefixes := []string{
		"10.", "192.168.", "127.", "169.254.", "::1", "fc00::", "fe80::",
	}
	for _, prefix := range privatePrefixes {
		if strings.HasPrefix(ip, prefix) {
			return true
		}
	}
	if strings.HasPrefix(ip, "172.") {
		parts := strings.SplitN(ip, ".", 3)
		if len(parts) >= 2 {
			if second, err := strconv.Atoi(parts[1]); err == nil && second >= 16 && second <= 31 {
				return true
			}
		}
	}
	return false
}
