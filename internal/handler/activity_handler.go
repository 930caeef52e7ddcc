package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/middleware"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/repository"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/tenancy"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/logger"
)

// ActivityHandler serves the tenant's audit trail
type ActivityHandler struct {
	db *gorm.DB
}

// NewActivityHandler creates an ActivityHandler
func NewActivityHandler(db *gorm.DB) *ActivityHandler {
	return &ActivityHandler{db: db}
}

// List returns recent activity for the resolved tenant, optionally filtered
// by user id (?user_id=) and capped by ?limit=
func (h *ActivityHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)

	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	scoped := repository.ForTenant(h.db, tenancy.TenantID(c))

	var (
		logs []model.ActivityLog
		err  error
	)
	if userID := c.QueryParam("user_id"); userID != "" {
		logs, err = scoped.ActivityLogsByUser(userID, limit)
	} else {
		logs, err = scoped.ActivityLogs(limit)
	}
	if err != nil {
		log.Error("Failed to fetch activity logs", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activity unavailable"})
	}

	return c.JSON(http.StatusOK, logs)
}

// logActivity appends an audit record for the resolved tenant, attributing it
// to the authenticated user when one is present. Audit failures are logged
// and swallowed; they never fail the request that caused them.
func logActivity(c echo.Context, db *gorm.DB, action, resource, resourceID string, details map[string]interface{}) {
	entry := model.ActivityLog{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
	}
	if userID := middleware.UserID(c); userID != "" {
		entry.UserID = &userID
	}

	if err := repository.ForTenant(db, tenancy.TenantID(c)).LogActivity(&entry); err != nil {
		logger.FromEcho(c).Error("Failed to write activity log",
			zap.String("action", action),
			zap.Error(err))
	}
}
