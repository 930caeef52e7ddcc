package tenancy

import (
	"github.com/labstack/echo/v4"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
)

// Context keys used on the Echo context. Handlers and guards go through the
// typed accessors below instead of reading these directly.
const (
	tenantKey   = "tenant"
	tenantIDKey = "tenant_id"
)

// TenantContext is the sanitized tenant view attached to a request after
// successful resolution. It carries everything downstream guards and handlers
// need without exposing payment provider identifiers.
type TenantContext struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Subdomain          string   `json:"subdomain"`
	CustomDomain       string   `json:"custom_domain,omitempty"`
	SubscriptionTier   string   `json:"subscription_tier"`
	SubscriptionStatus string   `json:"subscription_status"`
	EnabledFeatures    []string `json:"enabled_features"`
	PrimaryColor       string   `json:"primary_color,omitempty"`
	SecondaryColor     string   `json:"secondary_color,omitempty"`
	AccentColor        string   `json:"accent_color,omitempty"`
	MaxUsers           int      `json:"max_users"`
	MaxClients         int      `json:"max_clients"`
	MaxStorageGB       int      `json:"max_storage_gb"`
}

// HasFeature reports whether the feature is enabled for the resolved tenant
func (t *TenantContext) HasFeature(name string) bool {
	for _, f := range t.EnabledFeatures {
		if f == name {
			return true
		}
	}
	return false
}

// sanitize builds the request-facing tenant view from a full record
func sanitize(t *model.Tenant) *TenantContext {
	ctx := &TenantContext{
		ID:                 t.ID,
		Name:               t.Name,
		Subdomain:          t.Subdomain,
		SubscriptionTier:   t.SubscriptionTier,
		SubscriptionStatus: t.SubscriptionStatus,
		EnabledFeatures:    t.EnabledFeatures,
		PrimaryColor:       t.PrimaryColor,
		SecondaryColor:     t.SecondaryColor,
		AccentColor:        t.AccentColor,
		MaxUsers:           t.MaxUsers,
		MaxClients:         t.MaxClients,
		MaxStorageGB:       t.MaxStorageGB,
	}
	if t.CustomDomain != nil {
		ctx.CustomDomain = *t.CustomDomain
	}
	if ctx.EnabledFeatures == nil {
		ctx.EnabledFeatures = []string{}
	}
	return ctx
}

// SetTenant attaches the resolved tenant to the request context
func SetTenant(c echo.Context, t *TenantContext) {
	c.Set(tenantKey, t)
	c.Set(tenantIDKey, t.ID)
}

// FromEcho retrieves the resolved tenant from the request context. The second
// return value is false when no tenant was resolved for this request.
func FromEcho(c echo.Context) (*TenantContext, bool) {
	t, ok := c.Get(tenantKey).(*TenantContext)
	return t, ok && t != nil
}

// TenantID returns the resolved tenant id, or the empty string when no tenant
// was resolved
func TenantID(c echo.Context) string {
	id, ok := c.Get(tenantIDKey).(string)
	if !ok {
		return ""
	}
	return id
}
