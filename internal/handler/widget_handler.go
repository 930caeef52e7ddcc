package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/repository"
	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/tenancy"
	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/logger"
)

// WidgetHandler serves CRUD for the tenant's dashboard widgets
type WidgetHandler struct {
	db *gorm.DB
}

// NewWidgetHandler creates a WidgetHandler
func NewWidgetHandler(db *gorm.DB) *WidgetHandler {
	return &WidgetHandler{db: db}
}

func (h *WidgetHandler) scoped(c echo.Context) *repository.Scoped {
	return repository.ForTenant(h.db, tenancy.TenantID(c))
}

// List returns the tenant's widgets ordered by position
func (h *WidgetHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)

	widgets, err := h.scoped(c).Widgets()
	if err != nil {
		log.Error("Failed to fetch widgets", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch widgets"})
	}

	return c.JSON(http.StatusOK, widgets)
}

// Get returns a single widget by id
func (h *WidgetHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)

	widget, err := h.scoped(c).WidgetByID(c.Param("id"))
	if err != nil {
		log.Error("Failed to fetch widget", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch widget"})
	}
	if widget == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Widget not found"})
	}

	return c.JSON(http.StatusOK, widget)
}

// Create adds a widget to the tenant's dashboard
func (h *WidgetHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Title    string `json:"title"`
		Type     string `json:"type"`
		Position int    `json:"position"`
		Enabled  *bool  `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse widget request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Title == "" || req.Type == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and type are required"})
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	widget := model.DashboardWidget{
		Title:    req.Title,
		Type:     req.Type,
		Position: req.Position,
		Enabled:  enabled,
	}

	if err := h.scoped(c).CreateWidget(&widget); err != nil {
		log.Error("Failed to create widget", zap.String("title", req.Title), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create widget"})
	}

	logActivity(c, h.db, "widget.created", "dashboard_widget", widget.ID,
		map[string]interface{}{"title": widget.Title, "type": widget.Type})

	return c.JSON(http.StatusCreated, widget)
}

// Update modifies a widget by id
func (h *WidgetHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	var req struct {
		Title    *string `json:"title"`
		Type     *string `json:"type"`
		Position *int    `json:"position"`
		Enabled  *bool   `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse widget update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}

	updated, err := h.scoped(c).UpdateWidget(id, updates)
	if err != nil {
		log.Error("Failed to update widget", zap.String("widget_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update widget"})
	}
	if updated == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Widget not found"})
	}

	logActivity(c, h.db, "widget.updated", "dashboard_widget", id,
		map[string]interface{}{"fields": mapKeys(updates)})

	return c.JSON(http.StatusOK, updated)
}

// Delete removes a widget by id
func (h *WidgetHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	deleted, err := h.scoped(c).DeleteWidget(id)
	if err != nil {
		log.Error("Failed to delete widget", zap.String("widget_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete widget"})
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Widget not found"})
	}

	logActivity(c, h.db, "widget.deleted", "dashboard_widget", id, nil)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Widget deleted successfully",
	})
}
