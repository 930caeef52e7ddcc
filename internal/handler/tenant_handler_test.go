package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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
		&model.Tenant{},
		&model.User{},
		&model.ActivityLog{},
	))
	return db
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestRegisterCreatesTenantAndOwner(t *testing.T) {
	db := openTestDB(t)
	h := NewTenantHandler(db)
	e := echo.New()

	body := `{"name":"Acme Agency","subdomain":"Acme","email":"owner@acme.com","password":"s3cret","first_name":"Ada"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/tenants/register", body), rec)

	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Tenant  struct {
			ID        string `json:"id"`
			Subdomain string `json:"subdomain"`
			Tier      string `json:"subscription_tier"`
			URL       string `json:"url"`
		} `json:"tenant"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "acme", resp.Tenant.Subdomain)
	assert.Equal(t, model.TierFree, resp.Tenant.Tier)
	assert.Equal(t, "https://acme.sfsplatform.com", resp.Tenant.URL)

	var tenant model.Tenant
	require.NoError(t, db.First(&tenant, "id = ?", resp.Tenant.ID).Error)
	assert.Equal(t, model.StatusTrial, tenant.SubscriptionStatus)
	assert.Equal(t, model.DefaultMaxClients, tenant.MaxClients)
	assert.Equal(t, model.DefaultFeatures(), tenant.EnabledFeatures)

	var owner model.User
	require.NoError(t, db.First(&owner, "tenant_id = ?", tenant.ID).Error)
	assert.Equal(t, model.RoleOwner, owner.Role)
	assert.Equal(t, "owner@acme.com", owner.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(owner.Password), []byte("s3cret")))
}

func TestRegisterMissingFields(t *testing.T) {
	db := openTestDB(t)
	h := NewTenantHandler(db)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/tenants/register", `{"name":"No Subdomain"}`), rec)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateSubdomain(t *testing.T) {
	db := openTestDB(t)
	h := NewTenantHandler(db)
	e := echo.New()

	require.NoError(t, db.Create(&model.Tenant{Name: "First", Subdomain: "acme", IsActive: true}).Error)

	body := `{"name":"Second","subdomain":"ACME","email":"x@y.com","password":"p"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/tenants/register", body), rec)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckSubdomain(t *testing.T) {
	db := openTestDB(t)
	h := NewTenantHandler(db)
	e := echo.New()

	require.NoError(t, db.Create(&model.Tenant{Name: "Acme", Subdomain: "acme", IsActive: true}).Error)

	check := func(subdomain string) map[string]interface{} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.SetParamNames("subdomain")
		c.SetParamValues(subdomain)
		require.NoError(t, h.CheckSubdomain(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	taken := check("ACME")
	assert.Equal(t, false, taken["available"])
	assert.Equal(t, "acme", taken["subdomain"])

	free := check("globex")
	assert.Equal(t, true, free["available"])
}
