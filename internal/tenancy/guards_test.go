package tenancy

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartflow-systems/sfs-white-label-dashboard/internal/model"
)

func newGuardContext(tenant *TenantContext) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if tenant != nil {
		SetTenant(c, tenant)
	}
	return c, rec
}

func okHandler(ran *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*ran = true
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTierIndex(t *testing.T) {
	assert.Equal(t, 0, TierIndex(model.TierFree))
	assert.Equal(t, 1, TierIndex(model.TierStarter))
	assert.Equal(t, 2, TierIndex(model.TierPro))
	assert.Equal(t, 3, TierIndex(model.TierEnterprise))
	assert.Equal(t, -1, TierIndex("platinum"))
}

func TestRequireTenantRejectsEmptyContext(t *testing.T) {
	c, rec := newGuardContext(nil)
	ran := false

	require.NoError(t, RequireTenant(okHandler(&ran))(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, ran)

	body := decodeBody(t, rec)
	assert.Equal(t, "Tenant required", body["error"])
	assert.Contains(t, body["hint"], "X-Tenant-ID")
}

func TestRequireTenantPassesThrough(t *testing.T) {
	c, rec := newGuardContext(&TenantContext{ID: "t1"})
	ran := false

	require.NoError(t, RequireTenant(okHandler(&ran))(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ran)
}

func TestRequireFeatureMissing(t *testing.T) {
	c, rec := newGuardContext(&TenantContext{
		ID:               "t1",
		SubscriptionTier: model.TierFree,
		EnabledFeatures:  []string{"dashboard"},
	})
	ran := false

	require.NoError(t, RequireFeature("api_connections")(okHandler(&ran))(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, ran)

	body := decodeBody(t, rec)
	assert.Equal(t, "api_connections", body["feature"])
	assert.Equal(t, "/pricing", body["upgrade"])
}

func TestRequireFeatureEnabled(t *testing.T) {
	c, rec := newGuardContext(&TenantContext{
		ID:              "t1",
		EnabledFeatures: []string{"dashboard", "api_connections"},
	})
	ran := false

	require.NoError(t, RequireFeature("api_connections")(okHandler(&ran))(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ran)
}

func TestRequireTierBelowMinimum(t *testing.T) {
	c, rec := newGuardContext(&TenantContext{ID: "t1", SubscriptionTier: model.TierFree})
	ran := false

	require.NoError(t, RequireTier(model.TierPro)(okHandler(&ran))(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, ran)

	body := decodeBody(t, rec)
	assert.Equal(t, model.TierFree, body["current_tier"])
	assert.Equal(t, model.TierPro, body["required_tier"])
	assert.Equal(t, "/pricing", body["upgrade"])
}

func TestRequireTierMeetsMinimum(t *testing.T) {
	for _, tier := range []string{model.TierStarter, model.TierPro, model.TierEnterprise} {
		c, rec := newGuardContext(&TenantContext{ID: "t1", SubscriptionTier: tier})
		ran := false

		require.NoError(t, RequireTier(model.TierStarter)(okHandler(&ran))(c))
		assert.Equal(t, http.StatusOK, rec.Code, "tier %s", tier)
		assert.True(t, ran, "tier %s", tier)
	}
}

func TestRequireTierUnknownTierRejected(t *testing.T) {
	c, rec := newGuardContext(&TenantContext{ID: "t1", SubscriptionTier: "platinum"})
	ran := false

	require.NoError(t, RequireTier(model.TierFree)(okHandler(&ran))(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, ran)
}

func TestCheckUsageLimitUnderLimit(t *testing.T) {
	c, rec := newGuardContext(&TenantContext{ID: "t1", MaxClients: 10})
	ran := false
	usage := func(tenantID, limitType string) (int64, error) { return 0, nil }

	require.NoError(t, CheckUsageLimit("clients", usage)(okHandler(&ran))(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ran)
}

func TestCheckUsageLimitAtLimit(t *testing.T) {
	c, rec := newGuardContext(&TenantContext{ID: "t1", MaxClients: 500})
	ran := false
	usage := func(tenantID, limitType string) (int64, error) { return 500, nil }

	require.NoError(t, CheckUsageLimit("clients", usage)(okHandler(&ran))(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, ran)

	body := decodeBody(t, rec)
	assert.Equal(t, "clients", body["limit_type"])
	assert.EqualValues(t, 500, body["current_usage"])
	assert.EqualValues(t, 500, body["max_limit"])
}

func TestCheckUsageLimitZeroMaxFallsBackToDefault(t *testing.T) {
	c, rec := newGuardContext(&TenantContext{ID: "t1"})
	ran := false
	usage := func(tenantID, limitType string) (int64, error) {
		return model.DefaultMaxClients, nil
	}

	require.NoError(t, CheckUsageLimit("clients", usage)(okHandler(&ran))(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, ran)
}

func TestCheckUsageLimitLookupFailure(t *testing.T) {
	c, rec := newGuardContext(&TenantContext{ID: "t1", MaxClients: 10})
	ran := false
	usage := func(tenantID, limitType string) (int64, error) {
		return 0, errors.New("db down")
	}

	require.NoError(t, CheckUsageLimit("clients", usage)(okHandler(&ran))(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, ran)
}
