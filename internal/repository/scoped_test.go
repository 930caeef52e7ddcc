package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Client{},
		&model.ApiConnection{},
		&model.DashboardWidget{},
		&model.ActivityLog{},
	))
	return db
}

const (
	tenantA = "aaaaaaaa-0000-0000-0000-000000000001"
	tenantB = "bbbbbbbb-0000-0000-0000-000000000002"
)

func TestCreateStampsTenantID(t *testing.T) {
	db := openTestDB(t)
	repo := ForTenant(db, tenantA)

	// The caller-supplied tenant id must be overwritten, not trusted
	client := &model.Client{Name: "Globex", TenantID: tenantB}
	require.NoError(t, repo.CreateClient(client))
	assert.Equal(t, tenantA, client.TenantID)

	var stored model.Client
	require.NoError(t, db.First(&stored, "id = ?", client.ID).Error)
	assert.Equal(t, tenantA, stored.TenantID)
}

func TestGetByIDInvisibleAcrossTenants(t *testing.T) {
	db := openTestDB(t)
	repoA := ForTenant(db, tenantA)
	repoB := ForTenant(db, tenantB)

	client := &model.Client{Name: "Globex"}
	require.NoError(t, repoA.CreateClient(client))

	found, err := repoA.ClientByID(client.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Globex", found.Name)

	// Same id through the other tenant's repository: nil, not an error
	foreign, err := repoB.ClientByID(client.ID)
	require.NoError(t, err)
	assert.Nil(t, foreign)
}

func TestListScopedToTenant(t *testing.T) {
	db := openTestDB(t)
	repoA := ForTenant(db, tenantA)
	repoB := ForTenant(db, tenantB)

	require.NoError(t, repoA.CreateClient(&model.Client{Name: "A One"}))
	require.NoError(t, repoA.CreateClient(&model.Client{Name: "A Two"}))
	require.NoError(t, repoB.CreateClient(&model.Client{Name: "B One"}))

	clientsA, err := repoA.Clients()
	require.NoError(t, err)
	assert.Len(t, clientsA, 2)

	clientsB, err := repoB.Clients()
	require.NoError(t, err)
	require.Len(t, clientsB, 1)
	assert.Equal(t, "B One", clientsB[0].Name)
}

func TestUserByEmailScopedToTenant(t *testing.T) {
	db := openTestDB(t)
	repoA := ForTenant(db, tenantA)
	repoB := ForTenant(db, tenantB)

	// Same address registered under two tenants; each lookup must return
	// its own tenant's record
	require.NoError(t, repoA.CreateUser(&model.User{
		Username: "bob-a", Email: "bob@example.com", Password: "x", Role: model.RoleMember,
	}))
	require.NoError(t, repoB.CreateUser(&model.User{
		Username: "bob-b", Email: "bob@example.com", Password: "x", Role: model.RoleMember,
	}))

	userA, err := repoA.UserByEmail("bob@example.com")
	require.NoError(t, err)
	require.NotNil(t, userA)
	assert.Equal(t, "bob-a", userA.Username)

	userB, err := repoB.UserByEmail("bob@example.com")
	require.NoError(t, err)
	require.NotNil(t, userB)
	assert.Equal(t, "bob-b", userB.Username)
}

func TestUpdateCannotTouchForeignRow(t *testing.T) {
	db := openTestDB(t)
	repoA := ForTenant(db, tenantA)
	repoB := ForTenant(db, tenantB)

	client := &model.Client{Name: "Globex", Status: model.ClientActive}
	require.NoError(t, repoA.CreateClient(client))

	updated, err := repoB.UpdateClient(client.ID, map[string]interface{}{"name": "Hijacked"})
	require.NoError(t, err)
	assert.Nil(t, updated)

	var stored model.Client
	require.NoError(t, db.First(&stored, "id = ?", client.ID).Error)
	assert.Equal(t, "Globex", stored.Name)
	assert.Equal(t, tenantA, stored.TenantID)
}

func TestUpdateCannotReassignTenant(t *testing.T) {
	db := openTestDB(t)
	repo := ForTenant(db, tenantA)

	client := &model.Client{Name: "Globex"}
	require.NoError(t, repo.CreateClient(client))

	// tenant_id in the field map is overwritten with the bound tenant
	updated, err := repo.UpdateClient(client.ID, map[string]interface{}{
		"name":      "Renamed",
		"tenant_id": tenantB,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, tenantA, updated.TenantID)
}

func TestDeleteScopedToTenant(t *testing.T) {
	db := openTestDB(t)
	repoA := ForTenant(db, tenantA)
	repoB := ForTenant(db, tenantB)

	client := &model.Client{Name: "Globex"}
	require.NoError(t, repoA.CreateClient(client))

	deleted, err := repoB.DeleteClient(client.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repoA.DeleteClient(client.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	found, err := repoA.ClientByID(client.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestConnectionByService(t *testing.T) {
	db := openTestDB(t)
	repoA := ForTenant(db, tenantA)
	repoB := ForTenant(db, tenantB)

	require.NoError(t, repoA.CreateConnection(&model.ApiConnection{
		ServiceName: "mailchimp", Status: "connected",
	}))

	conn, err := repoA.ConnectionByService("mailchimp")
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, "connected", conn.Status)

	conn, err = repoB.ConnectionByService("mailchimp")
	require.NoError(t, err)
	assert.Nil(t, conn)
}

func TestActivityLogsOrderAndLimit(t *testing.T) {
	db := openTestDB(t)
	repo := ForTenant(db, tenantA)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := &model.ActivityLog{
			Action:    "client.created",
			Resource:  "client",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.LogActivity(entry))
	}

	logs, err := repo.ActivityLogs(3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	// Newest first
	assert.True(t, logs[0].CreatedAt.After(logs[1].CreatedAt))
	assert.True(t, logs[1].CreatedAt.After(logs[2].CreatedAt))
}

func TestActivityLogsByUser(t *testing.T) {
	db := openTestDB(t)
	repo := ForTenant(db, tenantA)

	alice := "cccccccc-0000-0000-0000-000000000003"
	require.NoError(t, repo.LogActivity(&model.ActivityLog{Action: "login", UserID: &alice}))
	require.NoError(t, repo.LogActivity(&model.ActivityLog{Action: "system.cleanup"}))

	logs, err := repo.ActivityLogsByUser(alice, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "login", logs[0].Action)
}

func TestCounts(t *testing.T) {
	db := openTestDB(t)
	repoA := ForTenant(db, tenantA)
	repoB := ForTenant(db, tenantB)

	require.NoError(t, repoA.CreateUser(&model.User{Username: "u1", Email: "u1@a.com", Password: "x"}))
	require.NoError(t, repoA.CreateClient(&model.Client{Name: "c1"}))
	require.NoError(t, repoA.CreateClient(&model.Client{Name: "c2"}))
	require.NoError(t, repoB.CreateClient(&model.Client{Name: "c3"}))

	users, err := repoA.CountUsers()
	require.NoError(t, err)
	assert.EqualValues(t, 1, users)

	clients, err := repoA.CountClients()
	require.NoError(t, err)
	assert.EqualValues(t, 2, clients)
}

func TestUsageFunc(t *testing.T) {
	db := openTestDB(t)
	repo := ForTenant(db, tenantA)
	require.NoError(t, repo.CreateClient(&model.Client{Name: "c1"}))

	usage := Usage(db)

	count, err := usage(tenantA, "clients")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = usage(tenantB, "clients")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	count, err = usage(tenantA, "storage")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	_, err = usage(tenantA, "widgets")
	assert.Error(t, err)
}
