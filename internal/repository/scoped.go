package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
	"github.com/smartflow-systems/sfs-white-label-dashboard/prometheus"
)

// Scoped is a data access facade bound to a single tenant. Every read is
// filtered by the bound tenant id and every write has the tenant id stamped
// over whatever the caller supplied, so no operation can cross the tenant
// boundary. Lookups that miss return nil results, not errors; a row owned by
// another tenant is indistinguishable from a row that does not exist.
type Scoped struct {
	db       *gorm.DB
	tenantID string
}

// ForTenant creates a repository bound to the given tenant id
func ForTenant(db *gorm.DB, tenantID string) *Scoped {
	return &Scoped{db: db, tenantID: tenantID}
}

// TenantID returns the tenant id this repository is bound to
func (s *Scoped) TenantID() string {
	return s.tenantID
}

// ==================== USERS ====================

// Users returns all users belonging to the bound tenant
func (s *Scoped) Users() ([]model.User, error) {
	defer prometheus.TrackRepoOperation("users", "list")(time.Now())

	var users []model.User
	err := s.db.Where("tenant_id = ?", s.tenantID).Find(&users).Error
	return users, err
}

// UserByID returns the user only when both id and tenant match
func (s *Scoped) UserByID(id string) (*model.User, error) {
	defer prometheus.TrackRepoOperation("users", "get")(time.Now())

	var user model.User
	err := s.db.Where("id = ? AND tenant_id = ?", id, s.tenantID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByEmail returns the tenant's user with the given email
func (s *Scoped) UserByEmail(email string) (*model.User, error) {
	defer prometheus.TrackRepoOperation("users", "get")(time.Now())

	var user model.User
	err := s.db.Where("email = ? AND tenant_id = ?", email, s.tenantID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a user, stamping the bound tenant id over any value the
// caller may have set
func (s *Scoped) CreateUser(user *model.User) error {
	defer prometheus.TrackRepoOperation("users", "create")(time.Now())

	user.TenantID = s.tenantID
	return s.db.Create(user).Error
}

// UpdateUser updates the row matching both id and tenant. The tenant id is
// re-stamped on write so a user can never be moved to another tenant. Returns
// nil when no matching row existed.
func (s *Scoped) UpdateUser(id string, fields map[string]interface{}) (*model.User, error) {
	defer prometheus.TrackRepoOperation("users", "update")(time.Now())

	fields["tenant_id"] = s.tenantID
	result := s.db.Model(&model.User{}).
		Where("id = ? AND tenant_id = ?", id, s.tenantID).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return s.UserByID(id)
}

// DeleteUser removes the row matching both id and tenant, reporting whether a
// row was actually removed
func (s *Scoped) DeleteUser(id string) (bool, error) {
	defer prometheus.TrackRepoOperation("users", "delete")(time.Now())

	result := s.db.Where("id = ? AND tenant_id = ?", id, s.tenantID).Delete(&model.User{})
	return result.RowsAffected > 0, result.Error
}

// CountUsers returns the number of users belonging to the bound tenant
func (s *Scoped) CountUsers() (int64, error) {
	defer prometheus.TrackRepoOperation("users", "count")(time.Now())

	var count int64
	err := s.db.Model(&model.User{}).Where("tenant_id = ?", s.tenantID).Count(&count).Error
	return count, err
}

// ==================== CLIENTS ====================

// Clients returns all clients belonging to the bound tenant, newest first
func (s *Scoped) Clients() ([]model.Client, error) {
	defer prometheus.TrackRepoOperation("clients", "list")(time.Now())

	var clients []model.Client
	err := s.db.Where("tenant_id = ?", s.tenantID).Order("created_at DESC").Find(&clients).Error
	return clients, err
}

// ClientByID returns the client only when both id and tenant match
func (s *Scoped) ClientByID(id string) (*model.Client, error) {
	defer prometheus.TrackRepoOperation("clients", "get")(time.Now())

	var client model.Client
	err := s.db.Where("id = ? AND tenant_id = ?", id, s.tenantID).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// CreateClient inserts a client stamped with the bound tenant id
func (s *Scoped) CreateClient(client *model.Client) error {
	defer prometheus.TrackRepoOperation("clients", "create")(time.Now())

	client.TenantID = s.tenantID
	return s.db.Create(client).Error
}

// UpdateClient updates the row matching both id and tenant, re-stamping the
// tenant id. Returns nil when no matching row existed.
func (s *Scoped) UpdateClient(id string, fields map[string]interface{}) (*model.Client, error) {
	defer prometheus.TrackRepoOperation("clients", "update")(time.Now())

	fields["tenant_id"] = s.tenantID
	result := s.db.Model(&model.Client{}).
		Where("id = ? AND tenant_id = ?", id, s.tenantID).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return s.ClientByID(id)
}

// DeleteClient removes the row matching both id and tenant
func (s *Scoped) DeleteClient(id string) (bool, error) {
	defer prometheus.TrackRepoOperation("clients", "delete")(time.Now())

	result := s.db.Where("id = ? AND tenant_id = ?", id, s.tenantID).Delete(&model.Client{})
	return result.RowsAffected > 0, result.Error
}

// CountClients returns the number of clients belonging to the bound tenant
func (s *Scoped) CountClients() (int64, error) {
	defer prometheus.TrackRepoOperation("clients", "count")(time.Now())

	var count int64
	err := s.db.Model(&model.Client{}).Where("tenant_id = ?", s.tenantID).Count(&count).Error
	return count, err
}

// ==================== API CONNECTIONS ====================

// Connections returns all API connections belonging to the bound tenant
func (s *Scoped) Connections() ([]model.ApiConnection, error) {
	defer prometheus.TrackRepoOperation("connections", "list")(time.Now())

	var connections []model.ApiConnection
	err := s.db.Where("tenant_id = ?", s.tenantID).Find(&connections).Error
	return connections, err
}

// ConnectionByID returns the connection only when both id and tenant match
func (s *Scoped) ConnectionByID(id string) (*model.ApiConnection, error) {
	defer prometheus.TrackRepoOperation("connections", "get")(time.Now())

	var connection model.ApiConnection
	err := s.db.Where("id = ? AND tenant_id = ?", id, s.tenantID).First(&connection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &connection, nil
}

// ConnectionByService returns the tenant's connection for a service name
func (s *Scoped) ConnectionByService(serviceName string) (*model.ApiConnection, error) {
	defer prometheus.TrackRepoOperation("connections", "get")(time.Now())

	var connection model.ApiConnection
	err := s.db.Where("service_name = ? AND tenant_id = ?", serviceName, s.tenantID).First(&connection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &connection, nil
}

// CreateConnection inserts a connection stamped with the bound tenant id
func (s *Scoped) CreateConnection(connection *model.ApiConnection) error {
	defer prometheus.TrackRepoOperation("connections", "create")(time.Now())

	connection.TenantID = s.tenantID
	return s.db.Create(connection).Error
}

// UpdateConnection updates the row matching both id and tenant, re-stamping
// the tenant id. Returns nil when no matching row existed.
func (s *Scoped) UpdateConnection(id string, fields map[string]interface{}) (*model.ApiConnection, error) {
	defer prometheus.TrackRepoOperation("connections", "update")(time.Now())

	fields["tenant_id"] = s.tenantID
	result := s.db.Model(&model.ApiConnection{}).
		Where("id = ? AND tenant_id = ?", id, s.tenantID).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return s.ConnectionByID(id)
}

// DeleteConnection removes the row matching both id and tenant
func (s *Scoped) DeleteConnection(id string) (bool, error) {
	defer prometheus.TrackRepoOperation("connections", "delete")(time.Now())

	result := s.db.Where("id = ? AND tenant_id = ?", id, s.tenantID).Delete(&model.ApiConnection{})
	return result.RowsAffected > 0, result.Error
}

// CountConnections returns the number of connections for the bound tenant
func (s *Scoped) CountConnections() (int64, error) {
	defer prometheus.TrackRepoOperation("connections", "count")(time.Now())

	var count int64
	err := s.db.Model(&model.ApiConnection{}).Where("tenant_id = ?", s.tenantID).Count(&count).Error
	return count, err
}

// ==================== DASHBOARD WIDGETS ====================

// Widgets returns the tenant's dashboard widgets ordered by position
func (s *Scoped) Widgets() ([]model.DashboardWidget, error) {
	defer prometheus.TrackRepoOperation("widgets", "list")(time.Now())

	var widgets []model.DashboardWidget
	err := s.db.Where("tenant_id = ?", s.tenantID).Order("position ASC").Find(&widgets).Error
	return widgets, err
}

// WidgetByID returns the widget only when both id and tenant match
func (s *Scoped) WidgetByID(id string) (*model.DashboardWidget, error) {
	defer prometheus.TrackRepoOperation("widgets", "get")(time.Now())

	var widget model.DashboardWidget
	err := s.db.Where("id = ? AND tenant_id = ?", id, s.tenantID).First(&widget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &widget, nil
}

// CreateWidget inserts a widget stamped with the bound tenant id
func (s *Scoped) CreateWidget(widget *model.DashboardWidget) error {
	defer prometheus.TrackRepoOperation("widgets", "create")(time.Now())

	widget.TenantID = s.tenantID
	return s.db.Create(widget).Error
}

// UpdateWidget updates the row matching both id and tenant, re-stamping the
// tenant id. Returns nil when no matching row existed.
func (s *Scoped) UpdateWidget(id string, fields map[string]interface{}) (*model.DashboardWidget, error) {
	defer prometheus.TrackRepoOperation("widgets", "update")(time.Now())

	fields["tenant_id"] = s.tenantID
	result := s.db.Model(&model.DashboardWidget{}).
		Where("id = ? AND tenant_id = ?", id, s.tenantID).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return s.WidgetByID(id)
}

// DeleteWidget removes the row matching both id and tenant
func (s *Scoped) DeleteWidget(id string) (bool, error) {
	defer prometheus.TrackRepoOperation("widgets", "delete")(time.Now())

	result := s.db.Where("id = ? AND tenant_id = ?", id, s.tenantID).Delete(&model.DashboardWidget{})
	return result.RowsAffected > 0, result.Error
}

// ==================== ACTIVITY LOGS ====================

// LogActivity appends an audit record stamped with the bound tenant id
func (s *Scoped) LogActivity(entry *model.ActivityLog) error {
	defer prometheus.TrackRepoOperation("activity_logs", "create")(time.Now())

	entry.TenantID = s.tenantID
	return s.db.Create(entry).Error
}

// ActivityLogs returns the tenant's most recent audit records
func (s *Scoped) ActivityLogs(limit int) ([]model.ActivityLog, error) {
	defer prometheus.TrackRepoOperation("activity_logs", "list")(time.Now())

	if limit <= 0 {
		limit = 100
	}
	var logs []model.ActivityLog
	err := s.db.Where("tenant_id = ?", s.tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// ActivityLogsByUser returns the tenant's audit records for one user
func (s *Scoped) ActivityLogsByUser(userID string, limit int) ([]model.ActivityLog, error) {
	defer prometheus.TrackRepoOperation("activity_logs", "list")(time.Now())

	if limit <= 0 {
		limit = 50
	}
	var logs []model.ActivityLog
	err := s.db.Where("tenant_id = ? AND user_id = ?", s.tenantID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Usage returns a usage function for guard checks. Users and clients are
// counted from their tables; storage tracking is not implemented, so storage
// usage always reports zero.
func Usage(db *gorm.DB) func(tenantID, limitType string) (int64, error) {
	return func(tenantID, limitType string) (int64, error) {
		scoped := ForTenant(db, tenantID)
		switch limitType {
		case "users":
			return scoped.CountUsers()
		case "clients":
			return scoped.CountClients()
		case "storage":
			// TODO: wire real storage accounting once uploads land
			return 0, nil
		default:
			return 0, fmt.Errorf("unknown limit type: %s", limitType)
		}
	}
}
