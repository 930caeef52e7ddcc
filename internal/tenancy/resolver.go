package tenancy

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/logger"
	"github.com/smartflow-systems/sfs-white-label-dashboard/prometheus"
)

// HeaderTenantID carries an explicit tenant id on server-to-server requests
const HeaderTenantID = "X-Tenant-ID"

// Resolver determines which tenant an inbound request belongs to. Resolution
// is attempted in a fixed order, first match wins:
//
//  1. X-Tenant-ID header (API / server-to-server requests)
//  2. Subdomain (e.g. agency.sfsplatform.com)
//  3. Custom domain (e.g. agency.com)
//  4. ?tenant= query parameter, development mode only
//
// A request that matches nothing proceeds with an empty tenant context; it is
// RequireTenant's job to reject it if a tenant was mandatory.
type Resolver struct {
	db  *gorm.DB
	env string
}

// NewResolver creates a Resolver bound to the given database handle
func NewResolver(db *gorm.DB, env string) *Resolver {
	return &Resolver{db: db, env: env}
}

// Middleware returns the tenant resolution middleware
func (r *Resolver) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			var (
				tenantID string
				tenant   *model.Tenant
				method   string
			)

			// Method 1: explicit tenant id header
			if header := c.Request().Header.Get(HeaderTenantID); header != "" {
				tenantID = header
				method = "header"
			}

			host := hostname(c.Request())

			// Method 2: subdomain lookup
			if tenantID == "" {
				parts := strings.Split(host, ".")
				if len(parts) > 2 {
					subdomain := parts[0]

					found, err := r.findTenant("subdomain = ?", subdomain)
					if err != nil {
						log.Error("Tenant lookup by subdomain failed", zap.Error(err))
						return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant resolution failed"})
					}
					if found != nil {
						tenant = found
						tenantID = found.ID
						method = "subdomain"
					}
				}
			}

			// Method 3: registered custom domain
			if tenantID == "" && host != "" {
				found, err := r.findTenant("custom_domain = ?", host)
				if err != nil {
					log.Error("Tenant lookup by custom domain failed", zap.Error(err))
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant resolution failed"})
				}
				if found != nil {
					tenant = found
					tenantID = found.ID
					method = "custom_domain"
				}
			}

			// Method 4: query parameter, never honored in production
			if tenantID == "" && r.env != "production" {
				if q := c.QueryParam("tenant"); q != "" {
					tenantID = q
					method = "query"
				}
			}

			// Header and query paths only yield an id; fetch the record
			if tenantID != "" && tenant == nil {
				found, err := r.findTenant("id = ?", tenantID)
				if err != nil {
					log.Error("Tenant lookup by id failed", zap.String("tenant_id", tenantID), zap.Error(err))
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant resolution failed"})
				}
				tenant = found
			}

			if tenant != nil {
				// Account-state gating happens before anything is attached,
				// so no guard or repository call can run for a blocked tenant.
				if !tenant.IsActive || tenant.IsSuspended {
					reason := tenant.SuspensionReason
					if reason == "" {
						reason = "Account inactive"
					}
					log.Warn("Rejected suspended tenant",
						zap.String("tenant_id", tenant.ID),
						zap.String("reason", reason))
					prometheus.RecordGuardRejection("suspended")
					return c.JSON(http.StatusForbidden, echo.Map{
						"error":  "Tenant account is suspended",
						"reason": reason,
					})
				}

				if tenant.SubscriptionStatus == model.StatusPastDue {
					log.Warn("Rejected past-due tenant", zap.String("tenant_id", tenant.ID))
					prometheus.RecordGuardRejection("past_due")
					return c.JSON(http.StatusPaymentRequired, echo.Map{
						"error":   "Payment required",
						"message": "Subscription payment is past due",
					})
				}

				SetTenant(c, sanitize(tenant))
				prometheus.RecordResolution(method)
				log.Debug("Tenant resolved",
					zap.String("tenant_id", tenant.ID),
					zap.String("method", method))
			}

			return next(c)
		}
	}
}

// findTenant runs one lookup, translating "no rows" into a nil result
func (r *Resolver) findTenant(query string, arg interface{}) (*model.Tenant, error) {
	var tenant model.Tenant
	err := r.db.Where(query, arg).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// hostname strips an optional port from the request host
func hostname(req *http.Request) string {
	host := req.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
