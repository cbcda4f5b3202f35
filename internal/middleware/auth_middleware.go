package middleware

import (
	"net/http"
	"strings"

	"customerSegments/pkg/logger"
	"customerSegments/pkg/utils"

	jsonres "customerSegments/pkg/response"

	"github.com/labstack/echo/v4"
)

const (
	ContextUserID   = "user_id"
	ContextRole     = "role"
	ContextTenantID = "tenant_id"
	// ContextTokenTenant holds the tenant the token is scoped to, empty for
	// all tenants.
	ContextTokenTenant = "token_tenant_id"

	TenantHeader = "X-Tenant-ID"
	TenantQuery  = "tenant"
)

// AuthMiddleware validates a Bearer JWT signed with secret.
func AuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Missing authorization header", nil,
				))
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid authorization format", nil,
				))
			}

			claims, err := utils.ParseJWT(secret, tokenParts[1])
			if err != nil {
				logger.Warn("jwt_rejected", "error", err)
				return c.JSON(http.StatusUnauthorized, jsonres.Error(
					"UNAUTHORIZED", "Invalid token", nil,
				))
			}

			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextRole, claims.Role)
			c.Set(ContextTokenTenant, claims.TenantID)

			return next(c)
		}
	}
}

func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roleStr, ok := c.Get(ContextRole).(string)
			if !ok || strings.ToUpper(roleStr) != utils.RoleAdmin {
				return c.JSON(http.StatusForbidden, jsonres.Error(
					"FORBIDDEN", "Admin access required", nil,
				))
			}

			return next(c)
		}
	}
}

// Tenant resolves the tenant from the X-Tenant-ID header or the tenant query
// parameter. A token scoped to one tenant may only address that tenant.
func Tenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID := strings.TrimSpace(c.Request().Header.Get(TenantHeader))
			if tenantID == "" {
				tenantID = strings.TrimSpace(c.QueryParam(TenantQuery))
			}
			if tenantID == "" {
				return c.JSON(http.StatusBadRequest, jsonres.Error(
					"BAD_REQUEST", "Missing tenant", nil,
				))
			}

			if scoped, _ := c.Get(ContextTokenTenant).(string); scoped != "" && scoped != tenantID {
				return c.JSON(http.StatusForbidden, jsonres.Error(
					"FORBIDDEN", "Token is not valid for this tenant", nil,
				))
			}

			c.Set(ContextTenantID, tenantID)
			return next(c)
		}
	}
}
