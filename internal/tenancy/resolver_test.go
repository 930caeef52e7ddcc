package tenancy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
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

	require.NoError(t, db.AutoMigrate(&model.Tenant{}))
	return db
}

func seedTenant(t *testing.T, db *gorm.DB, tenant *model.Tenant) *model.Tenant {
	t.Helper()
	if tenant.SubscriptionTier == "" {
		tenant.SubscriptionTier = model.TierFree
	}
	if tenant.SubscriptionStatus == "" {
		tenant.SubscriptionStatus = model.StatusActive
	}
	tenant.IsActive = true
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

// resolve runs one request through the resolution middleware and reports the
// tenant id the downstream handler observed
func resolve(resolver *Resolver, req *http.Request) (*httptest.ResponseRecorder, string, bool) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seenID string
	nextRan := false
	handler := resolver.Middleware()(func(c echo.Context) error {
		nextRan = true
		seenID = TenantID(c)
		return c.NoContent(http.StatusOK)
	})
	_ = handler(c)
	return rec, seenID, nextRan
}

func TestResolveByHeader(t *testing.T) {
	db := openTestDB(t)
	tenant := seedTenant(t, db, &model.Tenant{Name: "Acme", Subdomain: "acme"})
	resolver := NewResolver(db, "development")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderTenantID, tenant.ID)

	rec, seenID, _ := resolve(resolver, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tenant.ID, seenID)
}

func TestHeaderBeatsSubdomain(t *testing.T) {
	db := openTestDB(t)
	byHeader := seedTenant(t, db, &model.Tenant{Name: "Header Co", Subdomain: "headerco"})
	seedTenant(t, db, &model.Tenant{Name: "Sub Co", Subdomain: "subco"})
	resolver := NewResolver(db, "development")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "subco.sfsplatform.com"
	req.Header.Set(HeaderTenantID, byHeader.ID)

	_, seenID, _ := resolve(resolver, req)
	assert.Equal(t, byHeader.ID, seenID)
}

func TestResolveBySubdomain(t *testing.T) {
	db := openTestDB(t)
	tenant := seedTenant(t, db, &model.Tenant{Name: "Acme", Subdomain: "acme"})
	resolver := NewResolver(db, "production")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "acme.sfsplatform.com:8080"

	rec, seenID, _ := resolve(resolver, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tenant.ID, seenID)
}

func TestResolveByCustomDomain(t *testing.T) {
	db := openTestDB(t)
	domain := "dash.acme.io"
	tenant := seedTenant(t, db, &model.Tenant{Name: "Acme", Subdomain: "acme", CustomDomain: &domain})
	resolver := NewResolver(db, "production")

	// Full host does not match any subdomain, so resolution falls through
	// to the custom domain lookup
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = domain

	_, seenID, _ := resolve(resolver, req)
	assert.Equal(t, tenant.ID, seenID)
}

func TestQueryParamDevelopmentOnly(t *testing.T) {
	db := openTestDB(t)
	tenant := seedTenant(t, db, &model.Tenant{Name: "Acme", Subdomain: "acme"})

	req := httptest.NewRequest(http.MethodGet, "/?tenant="+tenant.ID, nil)
	_, seenID, _ := resolve(NewResolver(db, "development"), req)
	assert.Equal(t, tenant.ID, seenID)

	req = httptest.NewRequest(http.MethodGet, "/?tenant="+tenant.ID, nil)
	_, seenID, nextRan := resolve(NewResolver(db, "production"), req)
	assert.True(t, nextRan)
	assert.Empty(t, seenID)
}

func TestNoMatchProceedsWithoutTenant(t *testing.T) {
	db := openTestDB(t)
	resolver := NewResolver(db, "production")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unknown.sfsplatform.com"

	rec, seenID, nextRan := resolve(resolver, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, nextRan)
	assert.Empty(t, seenID)
}

func TestSuspendedTenantRejected(t *testing.T) {
	db := openTestDB(t)
	tenant := seedTenant(t, db, &model.Tenant{Name: "Acme", Subdomain: "acme"})
	require.NoError(t, db.Model(tenant).Updates(map[string]interface{}{
		"is_suspended":      true,
		"suspension_reason": "Payment dispute",
	}).Error)
	resolver := NewResolver(db, "development")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderTenantID, tenant.ID)

	rec, _, nextRan := resolve(resolver, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, nextRan)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Payment dispute", body["reason"])
}

func TestInactiveTenantRejected(t *testing.T) {
	db := openTestDB(t)
	tenant := seedTenant(t, db, &model.Tenant{Name: "Acme", Subdomain: "acme"})
	require.NoError(t, db.Model(tenant).Update("is_active", false).Error)
	resolver := NewResolver(db, "development")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderTenantID, tenant.ID)

	rec, _, nextRan := resolve(resolver, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, nextRan)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Account inactive", body["reason"])
}

func TestPastDueTenantRejected(t *testing.T) {
	db := openTestDB(t)
	tenant := seedTenant(t, db, &model.Tenant{
		Name:               "Acme",
		Subdomain:          "acme",
		SubscriptionStatus: model.StatusPastDue,
	})
	resolver := NewResolver(db, "development")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderTenantID, tenant.ID)

	rec, _, nextRan := resolve(resolver, req)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.False(t, nextRan)
}

func TestUnknownHeaderIDProceedsWithoutTenant(t *testing.T) {
	db := openTestDB(t)
	resolver := NewResolver(db, "development")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderTenantID, "00000000-0000-0000-0000-000000000000")

	rec, seenID, nextRan := resolve(resolver, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, nextRan)
	assert.Empty(t, seenID)
}
