package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/repository"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/tenancy"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/jwtutil"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/logger"
)

// AuthHandler serves login for tenant users
type AuthHandler struct {
	db  *gorm.DB
	jwt *jwtutil.JWTUtil
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(db *gorm.DB, jwt *jwtutil.JWTUtil) *AuthHandler {
	return &AuthHandler{db: db, jwt: jwt}
}

// Login authenticates a user within the resolved tenant and issues a JWT.
// The lookup is tenant-scoped, so the same email registered under two tenants
// resolves to the account belonging to the requesting tenant.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)

	tenant, ok := tenancy.FromEcho(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Tenant required",
			"hint":  "Use subdomain, custom domain, or X-Tenant-ID header",
		})
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	user, err := repository.ForTenant(h.db, tenant.ID).UserByEmail(req.Email)
	if err != nil {
		log.Error("User lookup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if user == nil || !user.IsActive {
		log.Warn("Login attempt for unknown or inactive user", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email, tenant.ID, tenant.Name, user.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	log.Info("User logged in",
		zap.String("user_id", user.ID),
		zap.String("tenant_id", tenant.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  user,
	})
}
