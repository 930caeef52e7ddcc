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

// ClientHandler serves CRUD for the tenant's client records
type ClientHandler struct {
	db *gorm.DB
}

// NewClientHandler creates a ClientHandler
func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{db: db}
}

func (h *ClientHandler) scoped(c echo.Context) *repository.Scoped {
	return repository.ForTenant(h.db, tenancy.TenantID(c))
}

// List returns all clients for the resolved tenant
func (h *ClientHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)

	clients, err := h.scoped(c).Clients()
	if err != nil {
		log.Error("Failed to fetch clients", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch clients"})
	}

	return c.JSON(http.StatusOK, clients)
}

// Get returns a single client by id
func (h *ClientHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)

	client, err := h.scoped(c).ClientByID(c.Param("id"))
	if err != nil {
		log.Error("Failed to fetch client", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch client"})
	}
	if client == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Client not found"})
	}

	return c.JSON(http.StatusOK, client)
}

// Create adds a client for the resolved tenant
func (h *ClientHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Company string `json:"company"`
		Status  string `json:"status"`
		Notes   string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse client request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Name is required"})
	}

	status := req.Status
	if status == "" {
		status = model.ClientActive
	}

	client := model.Client{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Status:  status,
		Notes:   req.Notes,
	}

	if err := h.scoped(c).CreateClient(&client); err != nil {
		log.Error("Failed to create client", zap.String("name", req.Name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create client"})
	}

	logActivity(c, h.db, "client.created", "client", client.ID, map[string]interface{}{"name": client.Name})

	log.Info("Client created",
		zap.String("client_id", client.ID),
		zap.String("tenant_id", client.TenantID))

	return c.JSON(http.StatusCreated, client)
}

// Update modifies a client by id
func (h *ClientHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	var req struct {
		Name    *string `json:"name"`
		Email   *string `json:"email"`
		Phone   *string `json:"phone"`
		Company *string `json:"company"`
		Status  *string `json:"status"`
		Notes   *string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse client update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	updated, err := h.scoped(c).UpdateClient(id, updates)
	if err != nil {
		log.Error("Failed to update client", zap.String("client_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update client"})
	}
	if updated == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Client not found"})
	}

	logActivity(c, h.db, "client.updated", "client", id, map[string]interface{}{"fields": mapKeys(updates)})

	return c.JSON(http.StatusOK, updated)
}

// Delete removes a client by id
func (h *ClientHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	scoped := h.scoped(c)

	existing, err := scoped.ClientByID(id)
	if err != nil {
		log.Error("Failed to fetch client", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete client"})
	}
	if existing == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Client not found"})
	}

	deleted, err := scoped.DeleteClient(id)
	if err != nil {
		log.Error("Failed to delete client", zap.String("client_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete client"})
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Client not found"})
	}

	logActivity(c, h.db, "client.deleted", "client", id, map[string]interface{}{"name": existing.Name})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Client deleted successfully",
	})
}

// StatsSummary returns client counts broken down by status
func (h *ClientHandler) StatsSummary(c echo.Context) error {
	log := logger.FromEcho(c)

	clients, err := h.scoped(c).Clients()
	if err != nil {
		log.Error("Failed to fetch clients", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch client stats"})
	}

	stats := echo.Map{
		"total":    len(clients),
		"active":   countByStatus(clients, model.ClientActive),
		"inactive": countByStatus(clients, model.ClientInactive),
		"churned":  countByStatus(clients, model.ClientChurned),
	}

	return c.JSON(http.StatusOK, stats)
}

func countByStatus(clients []model.Client, status string) int {
	n := 0
	for _, client := range clients {
		if client.Status == status {
			n++
		}
	}
	return n
}

func mapKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
