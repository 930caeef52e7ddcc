package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/billing"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/tenancy"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/config"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/logger"
)

// ReferralHandler manages the tenant referral program
type ReferralHandler struct {
	db  *gorm.DB
	cfg *config.ReferralConfig
}

// NewReferralHandler creates a ReferralHandler
func NewReferralHandler(db *gorm.DB, cfg *config.ReferralConfig) *ReferralHandler {
	return &ReferralHandler{db: db, cfg: cfg}
}

// List returns the tenant's referrals with earned commission totals
func (h *ReferralHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)

	var referrals []model.Referral
	err := h.db.Where("tenant_id = ?", tenancy.TenantID(c)).
		Order("created_at DESC").
		Find(&referrals).Error
	if err != nil {
		log.Error("Failed to fetch referrals", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch referrals"})
	}

	var totalCents int64
	converted := 0
	for _, r := range referrals {
		totalCents += r.CommissionCents
		if r.Status != model.ReferralPending {
			converted++
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"referrals":              referrals,
		"total_commission_cents": totalCents,
		"converted":              converted,
		"commission_rate":        h.cfg.CommissionRate,
	})
}

// Create issues a new referral code for the tenant
func (h *ReferralHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		ReferredEmail string `json:"referred_email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	referral := model.Referral{
		TenantID:      tenancy.TenantID(c),
		Code:          generateReferralCode(),
		ReferredEmail: strings.ToLower(strings.TrimSpace(req.ReferredEmail)),
		Status:        model.ReferralPending,
	}
	if err := h.db.Create(&referral).Error; err != nil {
		log.Error("Failed to create referral", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create referral"})
	}

	logActivity(c, h.db, "referral.created", "referral", referral.ID, map[string]interface{}{
		"code": referral.Code,
	})

	return c.JSON(http.StatusCreated, referral)
}

// Convert marks a referral converted and credits commission from the
// subscription amount it produced
func (h *ReferralHandler) Convert(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		AmountCents int64 `json:"amount_cents"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.AmountCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must be positive"})
	}

	var referral model.Referral
	err := h.db.Where("id = ? AND tenant_id = ?", c.Param("id"), tenancy.TenantID(c)).
		First(&referral).Error
	if err == gorm.ErrRecordNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Referral not found"})
	}
	if err != nil {
		log.Error("Failed to fetch referral", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch referral"})
	}
	if referral.Status != model.ReferralPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "Referral already converted"})
	}

	commission := billing.ReferralCommission(req.AmountCents, h.cfg.CommissionRate)
	err = h.db.Model(&referral).Updates(map[string]interface{}{
		"status":           model.ReferralConverted,
		"commission_cents": commission,
	}).Error
	if err != nil {
		log.Error("Failed to convert referral", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to convert referral"})
	}

	logActivity(c, h.db, "referral.converted", "referral", referral.ID, map[string]interface{}{
		"commission_cents": commission,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"id":               referral.ID,
		"status":           model.ReferralConverted,
		"commission_cents": commission,
	})
}

// generateReferralCode derives a short shareable code from a fresh UUID
func generateReferralCode() string {
	return "SFS-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
