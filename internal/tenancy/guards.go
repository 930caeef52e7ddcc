package tenancy

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/logger"
	"github.com/smartflow-systems/sfs-white-label-dashboard/prometheus"
)

// tierHierarchy orders subscription tiers from lowest to highest. Unknown
// tiers compare below free.
var tierHierarchy = []string{model.TierFree, model.TierStarter, model.TierPro, model.TierEnterprise}

// TierIndex returns the position of a tier in the hierarchy, -1 for unknown
func TierIndex(tier string) int {
	for i, t := range tierHierarchy {
		if t == tier {
			return i
		}
	}
	return -1
}

// UsageFunc reports the current usage of a resource kind for a tenant
type UsageFunc func(tenantID, limitType string) (int64, error)

// RequireTenant rejects requests for which no tenant could be resolved
func RequireTenant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := FromEcho(c); !ok {
			prometheus.RecordGuardRejection("no_tenant")
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "Tenant required",
				"message": "No tenant could be determined from this request",
				"hint":    "Use subdomain, custom domain, or X-Tenant-ID header",
			})
		}
		return next(c)
	}
}

// RequireFeature gates a route on a tenant feature flag
func RequireFeature(feature string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenant, ok := FromEcho(c)
			if !ok {
				prometheus.RecordGuardRejection("no_tenant")
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Tenant required"})
			}

			if !tenant.HasFeature(feature) {
				logger.FromEcho(c).Warn("Feature not available for tenant",
					zap.String("tenant_id", tenant.ID),
					zap.String("feature", feature),
					zap.String("tier", tenant.SubscriptionTier))
				prometheus.RecordGuardRejection("feature")
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":   "Feature not available",
					"feature": feature,
					"message": fmt.Sprintf("This feature is not available on your current plan (%s)", tenant.SubscriptionTier),
					"upgrade": "/pricing",
				})
			}

			return next(c)
		}
	}
}

// RequireTier gates a route on a minimum subscription tier
func RequireTier(minTier string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenant, ok := FromEcho(c)
			if !ok {
				prometheus.RecordGuardRejection("no_tenant")
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Tenant required"})
			}

			if TierIndex(tenant.SubscriptionTier) < TierIndex(minTier) {
				logger.FromEcho(c).Warn("Tier below requirement",
					zap.String("tenant_id", tenant.ID),
					zap.String("current_tier", tenant.SubscriptionTier),
					zap.String("required_tier", minTier))
				prometheus.RecordGuardRejection("tier")
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":         "Upgrade required",
					"current_tier":  tenant.SubscriptionTier,
					"required_tier": minTier,
					"message":       fmt.Sprintf("This feature requires %s tier or higher", minTier),
					"upgrade":       "/pricing",
				})
			}

			return next(c)
		}
	}
}

// CheckUsageLimit gates a route on the tenant's configured resource limit for
// limitType (users, clients or storage). Current usage comes from the usage
// function; storage accounting is not implemented and always reports zero.
func CheckUsageLimit(limitType string, usage UsageFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenant, ok := FromEcho(c)
			if !ok {
				prometheus.RecordGuardRejection("no_tenant")
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Tenant required"})
			}

			log := logger.FromEcho(c)

			currentUsage, err := usage(tenant.ID, limitType)
			if err != nil {
				log.Error("Usage lookup failed",
					zap.String("tenant_id", tenant.ID),
					zap.String("limit_type", limitType),
					zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "usage check failed"})
			}

			var maxLimit int64
			switch limitType {
			case "users":
				maxLimit = int64(tenant.MaxUsers)
				if maxLimit == 0 {
					maxLimit = model.DefaultMaxUsers
				}
			case "clients":
				maxLimit = int64(tenant.MaxClients)
				if maxLimit == 0 {
					maxLimit = model.DefaultMaxClients
				}
			case "storage":
				maxLimit = int64(tenant.MaxStorageGB)
				if maxLimit == 0 {
					maxLimit = model.DefaultMaxStorageGB
				}
			}

			if currentUsage >= maxLimit {
				log.Warn("Usage limit reached",
					zap.String("tenant_id", tenant.ID),
					zap.String("limit_type", limitType),
					zap.Int64("current", currentUsage),
					zap.Int64("max", maxLimit))
				prometheus.RecordGuardRejection("usage_limit")
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":         "Usage limit exceeded",
					"limit_type":    limitType,
					"current_usage": currentUsage,
					"max_limit":     maxLimit,
					"message":       fmt.Sprintf("You've reached your %s limit. Upgrade to add more.", limitType),
					"upgrade":       "/pricing",
				})
			}

			return next(c)
		}
	}
}
