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

// ConnectionHandler serves CRUD for the tenant's API connections
type ConnectionHandler struct {
	db *gorm.DB
}

// NewConnectionHandler creates a ConnectionHandler
func NewConnectionHandler(db *gorm.DB) *ConnectionHandler {
	return &ConnectionHandler{db: db}
}

func (h *ConnectionHandler) scoped(c echo.Context) *repository.Scoped {
	return repository.ForTenant(h.db, tenancy.TenantID(c))
}

// List returns all API connections for the resolved tenant
func (h *ConnectionHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)

	connections, err := h.scoped(c).Connections()
	if err != nil {
		log.Error("Failed to fetch connections", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch connections"})
	}

	return c.JSON(http.StatusOK, connections)
}

// Get returns a single connection by id
func (h *ConnectionHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)

	connection, err := h.scoped(c).ConnectionByID(c.Param("id"))
	if err != nil {
		log.Error("Failed to fetch connection", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch connection"})
	}
	if connection == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Connection not found"})
	}

	return c.JSON(http.StatusOK, connection)
}

// Create adds an API connection for the resolved tenant. One connection per
// service name.
func (h *ConnectionHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		ServiceName string `json:"service_name"`
		Status      string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse connection request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.ServiceName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_name is required"})
	}

	scoped := h.scoped(c)

	existing, err := scoped.ConnectionByService(req.ServiceName)
	if err != nil {
		log.Error("Failed to check existing connection", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create connection"})
	}
	if existing != nil {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":        "Connection already exists for this service",
			"service_name": req.ServiceName,
		})
	}

	status := req.Status
	if status == "" {
		status = "pending"
	}

	connection := model.ApiConnection{
		ServiceName: req.ServiceName,
		Status:      status,
	}

	if err := scoped.CreateConnection(&connection); err != nil {
		log.Error("Failed to create connection", zap.String("service_name", req.ServiceName), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create connection"})
	}

	logActivity(c, h.db, "connection.created", "api_connection", connection.ID,
		map[string]interface{}{"service_name": connection.ServiceName})

	return c.JSON(http.StatusCreated, connection)
}

// Update modifies a connection by id
func (h *ConnectionHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	var req struct {
		Status       *string `json:"status"`
		RequestCount *int    `json:"request_count"`
		AvgLatency   *int    `json:"avg_latency"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse connection update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.RequestCount != nil {
		updates["request_count"] = *req.RequestCount
	}
	if req.AvgLatency != nil {
		updates["avg_latency"] = *req.AvgLatency
	}

	updated, err := h.scoped(c).UpdateConnection(id, updates)
	if err != nil {
		log.Error("Failed to update connection", zap.String("connection_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update connection"})
	}
	if updated == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Connection not found"})
	}

	logActivity(c, h.db, "connection.updated", "api_connection", id,
		map[string]interface{}{"fields": mapKeys(updates)})

	return c.JSON(http.StatusOK, updated)
}

// Delete removes a connection by id
func (h *ConnectionHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	deleted, err := h.scoped(c).DeleteConnection(id)
	if err != nil {
		log.Error("Failed to delete connection", zap.String("connection_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete connection"})
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Connection not found"})
	}

	logActivity(c, h.db, "connection.deleted", "api_connection", id, nil)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Connection deleted successfully",
	})
}
