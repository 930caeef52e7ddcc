package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/jwtutil"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/logger"
)

// Auth validates the JWT from the Authorization header and stores the user's
// identity on the request context. The token's tenant claim is informational
// only; request scoping always follows the resolved tenant, never the token.
func Auth(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set("user_id", claims.UserID)
			c.Set("email", claims.Email)
			c.Set("user_role", claims.Role)

			return next(c)
		}
	}
}

// UserID returns the authenticated user id, or the empty string when the
// request carried no valid token
func UserID(c echo.Context) string {
	id, ok := c.Get("user_id").(string)
	if !ok {
		return ""
	}
	return id
}
