package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thehashrocket/kirk-analytics/internal/config"
	"github.com/thehashrocket/kirk-analytics/internal/middleware"
	"github.com/thehashrocket/kirk-analytics/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			Enabled:   false,
			SkipPaths: []string{"/health", "/metrics", "/t/scan"},
		},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Metrics:   config.MetricsConfig{Enabled: false},
		Geo:       config.GeoConfig{Enabled: false},
		Reporting: config.ReportingConfig{
			TopCampaignLimit:  50,
			DefaultWindowDays: 30,
			MonthlyBucketDays: 92,
		},
	}
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return NewServer(&Dependencies{
		Config: testConfig(),
		Logger: zap.NewNop(),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, role, actor string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if role != "" {
		req.Header.Set(middleware.RoleHeaderName, role)
	}
	if actor != "" {
		req.Header.Set(middleware.ActorHeaderName, actor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seedAccountGraph(t *testing.T, h http.Handler) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/admin/clients", "admin", "", map[string]string{
		"id": "client-1", "name": "Acme", "repId": "rep-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, acc := range []map[string]string{
		{"id": "acc-email", "channel": "email", "name": "Mailchimp"},
		{"id": "acc-mail", "channel": "direct-mail", "name": "Postcards"},
	} {
		rec = doJSON(t, h, http.MethodPost, "/api/v1/admin/accounts", "admin", "", acc)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doJSON(t, h, http.MethodPost, "/api/v1/admin/bindings", "admin", "", map[string]string{
			"clientId": "client-1", "accountId": acc["id"],
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestMissingRoleForbidden(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/reports/overview?client=client-1", "", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/reports/overview?client=client-1", "superuser", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Rep and client roles need an actor ID.
	rec = doJSON(t, h, http.MethodGet, "/api/v1/reports/overview?client=client-1", "client", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChannelReportEndToEnd(t *testing.T) {
	h := newTestServer(t)
	seedAccountGraph(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/reports/email?account=acc-email&from=2025-06-01&to=2025-06-30", "client", "client-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "email", report["channel"])
	assert.Equal(t, "acc-email", report["accountId"])

	// 30 daily points for a 30-day window.
	series, ok := report["timeSeriesData"].([]interface{})
	require.True(t, ok)
	assert.Len(t, series, 30)
}

func TestChannelReportAccessDenied(t *testing.T) {
	h := newTestServer(t)
	seedAccountGraph(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/reports/email?account=acc-email", "client", "client-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A nonexistent account looks identical.
	rec = doJSON(t, h, http.MethodGet, "/api/v1/reports/email?account=acc-ghost", "client", "client-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChannelReportInvalidRange(t *testing.T) {
	h := newTestServer(t)
	seedAccountGraph(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/reports/email?account=acc-email&from=2025-06-01", "admin", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverviewEndToEnd(t *testing.T) {
	h := newTestServer(t)
	seedAccountGraph(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/reports/overview?client=client-1&from=2025-06-01&to=2025-06-30", "account-rep", "rep-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	assert.NotEqual(t, "null", string(report["email"]))
	assert.NotEqual(t, "null", string(report["directMail"]))
	// No paid accounts bound: those channels are explicit nulls.
	assert.Equal(t, "null", string(report["paidSocial"]))
	assert.Equal(t, "null", string(report["paidSearch"]))
}

func TestScanFeedsMailReport(t *testing.T) {
	h := newTestServer(t)
	seedAccountGraph(t, h)

	// The scan endpoint is public: no role header.
	req := httptest.NewRequest(http.MethodGet, "/t/scan?account=acc-mail&campaign=c-1&url=https%3A%2F%2Fexample.com", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	// Default trailing window includes today, so the scan shows up.
	rec2 := doJSON(t, h, http.MethodGet, "/api/v1/reports/mail?account=acc-mail", "admin", "", nil)
	require.Equal(t, http.StatusOK, rec2.Code, rec2.Body.String())

	var report struct {
		Metrics struct {
			Current map[string]float64 `json:"current"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &report))
	assert.InDelta(t, 1, report.Metrics.Current["scans"], 1e-9)
}

func TestPreferencesRoundTrip(t *testing.T) {
	h := newTestServer(t)
	seedAccountGraph(t, h)

	rec := doJSON(t, h, http.MethodPut, "/api/v1/preferences", "client", "client-1", map[string]string{
		"clientId": "client-1", "channel": "email", "accountId": "acc-email",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/v1/preferences?client=client-1", "client", "client-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var prefs []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	require.Len(t, prefs, 1)
	assert.Equal(t, "acc-email", prefs[0]["accountId"])
}

func TestPreferencesRejectInvalidChannel(t *testing.T) {
	h := newTestServer(t)
	seedAccountGraph(t, h)

	rec := doJSON(t, h, http.MethodPut, "/api/v1/preferences", "admin", "", map[string]string{
		"clientId": "client-1", "channel": "carrier-pigeon", "accountId": "acc-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/admin/clients", "client", "client-1", map[string]string{
		"id": "client-1", "name": "Acme",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminBindingEcho(t *testing.T) {
	h := newTestServer(t)
	seedAccountGraph(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/admin/bindings", "admin", "", map[string]string{
		"clientId": "client-1", "accountId": "acc-email",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var binding models.AccountBinding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &binding))
	assert.Equal(t, "client-1", binding.ClientID)
	assert.Equal(t, "acc-email", binding.AccountID)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/admin/bindings", "admin", "", map[string]string{
		"clientId": "client-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMailGeoEndpoint(t *testing.T) {
	h := newTestServer(t)
	seedAccountGraph(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/reports/mail/geo?account=acc-mail", "admin", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Email accounts have no scan geo.
	rec = doJSON(t, h, http.MethodGet, "/api/v1/reports/mail/geo?account=acc-email", "admin", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
