package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/repository"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/tenancy"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/logger"
	"github.com/smartflow-systems/sfs-white-label-dashboard/prometheus"
)

// TenantHandler serves tenant registration, settings and usage statistics
type TenantHandler struct {
	db *gorm.DB
}

// NewTenantHandler creates a TenantHandler
func NewTenantHandler(db *gorm.DB) *TenantHandler {
	return &TenantHandler{db: db}
}

// Register creates a new tenant with free-tier defaults and its owner user
func (h *TenantHandler) Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("register")

	var req struct {
		Name         string `json:"name"`
		Subdomain    string `json:"subdomain"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
		CompanyEmail string `json:"company_email"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" || req.Subdomain == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":    "Missing required fields",
			"required": []string{"name", "subdomain", "email", "password"},
		})
	}

	subdomain := strings.ToLower(req.Subdomain)

	// Reject taken subdomains early; the unique index is the backstop
	var existing model.Tenant
	if err := h.db.Where("subdomain = ?", subdomain).First(&existing).Error; err == nil {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "Subdomain already taken",
			"message": "The subdomain \"" + subdomain + "\" is not available",
		})
	}

	companyEmail := req.CompanyEmail
	if companyEmail == "" {
		companyEmail = req.Email
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Registration failed"})
	}

	tenant := model.Tenant{
		Name:               req.Name,
		Subdomain:          subdomain,
		CompanyEmail:       companyEmail,
		SubscriptionTier:   model.TierFree,
		SubscriptionStatus: model.StatusTrial,
		MaxUsers:           model.DefaultMaxUsers,
		MaxClients:         model.DefaultMaxClients,
		MaxStorageGB:       model.DefaultMaxStorageGB,
		EnabledFeatures:    model.DefaultFeatures(),
		IsActive:           true,
	}

	owner := model.User{
		Username:    strings.SplitN(req.Email, "@", 2)[0],
		Email:       req.Email,
		Password:    string(hashedPassword),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        model.RoleOwner,
		Permissions: []string{"read", "write", "admin", "billing"},
		IsActive:    true,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		owner.TenantID = tenant.ID
		return tx.Create(&owner).Error
	})
	if err != nil {
		log.Error("Tenant registration failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "Registration failed",
			"message": err.Error(),
		})
	}

	log.Info("Tenant registered",
		zap.String("tenant_id", tenant.ID),
		zap.String("subdomain", tenant.Subdomain))

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Agency registered successfully!",
		"tenant": echo.Map{
			"id":                tenant.ID,
			"name":              tenant.Name,
			"subdomain":         tenant.Subdomain,
			"subscription_tier": tenant.SubscriptionTier,
			"url":               "https://" + tenant.Subdomain + ".sfsplatform.com",
		},
		"user": owner,
	})
}

// CheckSubdomain reports whether a subdomain is still available
func (h *TenantHandler) CheckSubdomain(c echo.Context) error {
	subdomain := strings.ToLower(c.Param("subdomain"))

	var existing model.Tenant
	err := h.db.Where("subdomain = ?", subdomain).First(&existing).Error

	return c.JSON(http.StatusOK, echo.Map{
		"available": err == gorm.ErrRecordNotFound,
		"subdomain": subdomain,
	})
}

// Current returns the resolved tenant's full record, minus payment provider
// identifiers
func (h *TenantHandler) Current(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("access")

	var tenant model.Tenant
	if err := h.db.Where("id = ?", tenancy.TenantID(c)).First(&tenant).Error; err != nil {
		log.Error("Tenant not found", zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Tenant not found"})
	}

	// Stripe ids are json-hidden on the model already
	return c.JSON(http.StatusOK, tenant)
}

// UpdateCurrent updates branding and contact settings for the resolved
// tenant. Subscription tier, status and limits are webhook-owned and cannot
// be written here.
func (h *TenantHandler) UpdateCurrent(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("update")

	var req struct {
		Name           string `json:"name"`
		Logo           string `json:"logo"`
		PrimaryColor   string `json:"primary_color"`
		SecondaryColor string `json:"secondary_color"`
		AccentColor    string `json:"accent_color"`
		CompanyEmail   string `json:"company_email"`
		CompanyPhone   string `json:"company_phone"`
		CompanyAddress string `json:"company_address"`
		CustomDomain   string `json:"custom_domain"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Logo != "" {
		updates["logo"] = req.Logo
	}
	if req.PrimaryColor != "" {
		updates["primary_color"] = req.PrimaryColor
	}
	if req.SecondaryColor != "" {
		updates["secondary_color"] = req.SecondaryColor
	}
	if req.AccentColor != "" {
		updates["accent_color"] = req.AccentColor
	}
	if req.CompanyEmail != "" {
		updates["company_email"] = req.CompanyEmail
	}
	if req.CompanyPhone != "" {
		updates["company_phone"] = req.CompanyPhone
	}
	if req.CompanyAddress != "" {
		updates["company_address"] = req.CompanyAddress
	}
	if req.CustomDomain != "" {
		updates["custom_domain"] = strings.ToLower(req.CustomDomain)
	}
	updates["updated_at"] = time.Now()

	tenantID := tenancy.TenantID(c)

	defer prometheus.TrackRepoOperation("tenants", "update")(time.Now())
	if err := h.db.Model(&model.Tenant{}).Where("id = ?", tenantID).Updates(updates).Error; err != nil {
		log.Error("Failed to update tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}
	logActivity(c, h.db, "tenant.updated", "tenant", tenantID, map[string]interface{}{"fields": fields})

	var updated model.Tenant
	if err := h.db.Where("id = ?", tenantID).First(&updated).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	return c.JSON(http.StatusOK, updated)
}

// Stats returns usage statistics against the tenant's configured limits
func (h *TenantHandler) Stats(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("stats")

	tenantID := tenancy.TenantID(c)
	scoped := repository.ForTenant(h.db, tenantID)

	userCount, err := scoped.CountUsers()
	if err != nil {
		log.Error("Failed to count users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats unavailable"})
	}
	clientCount, err := scoped.CountClients()
	if err != nil {
		log.Error("Failed to count clients", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats unavailable"})
	}

	var tenant model.Tenant
	if err := h.db.Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Tenant not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"users":   usageEntry(userCount, tenant.MaxUsers),
		"clients": usageEntry(clientCount, tenant.MaxClients),
		"storage": echo.Map{
			// Storage tracking is not implemented; reported as zero
			"current":    0,
			"max":        tenant.MaxStorageGB,
			"percentage": 0,
			"unit":       "GB",
		},
		"subscription": echo.Map{
			"tier":     tenant.SubscriptionTier,
			"status":   tenant.SubscriptionStatus,
			"features": tenant.EnabledFeatures,
		},
	})
}

func usageEntry(current int64, max int) echo.Map {
	percentage := 0
	if max > 0 {
		percentage = int(float64(current) / float64(max) * 100)
	}
	return echo.Map{
		"current":    current,
		"max":        max,
		"percentage": percentage,
	}
}
