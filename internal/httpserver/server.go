package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/thehashrocket/kirk-analytics/internal/analytics"
	"github.com/thehashrocket/kirk-analytics/internal/auth"
	"github.com/thehashrocket/kirk-analytics/internal/config"
	"github.com/thehashrocket/kirk-analytics/internal/database"
	"github.com/thehashrocket/kirk-analytics/internal/geo"
	"github.com/thehashrocket/kirk-analytics/internal/metrics"
	"github.com/thehashrocket/kirk-analytics/internal/middleware"
	"github.com/thehashrocket/kirk-analytics/internal/models"
	"github.com/thehashrocket/kirk-analytics/internal/storage"
	"github.com/thehashrocket/kirk-analytics/internal/tracking"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB         *database.PostgresDB
	Redis      *database.RedisDB
	ClickHouse *database.ClickHouseDB
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Server wraps HTTP handlers and the analytics services.
type Server struct {
	reports  *analytics.Service
	tracking *tracking.Service
	accounts storage.AccountStore
	scans    storage.ScanStore
	guard    *auth.Guard
	deps     *Dependencies
	logger   *zap.Logger
	config   *config.Config
	metrics  *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered. Any
// missing backend degrades to an in-memory store so the service still comes
// up in development.
func NewServer(deps *Dependencies) http.Handler {
	var accounts storage.AccountStore
	if deps.DB != nil {
		accounts = storage.NewPostgresAccountStore(deps.DB.Pool, deps.Logger)
	} else {
		accounts = storage.NewInMemoryAccountStore()
	}

	var facts storage.FactStore
	if deps.ClickHouse != nil {
		facts = storage.NewClickHouseFactStore(deps.ClickHouse.Conn, deps.Logger)
	} else {
		facts = storage.NewInMemoryFactStore()
	}

	var scans storage.ScanStore
	if deps.Redis != nil {
		scans = storage.NewRedisScanStore(deps.Redis.Client, deps.Logger)
	} else {
		scans = storage.NewInMemoryScanStore()
	}

	var geoProvider geo.Provider = geo.Noop{}
	if deps.Config.Geo.Enabled {
		mm, err := geo.NewMaxMind(deps.Config.Geo.DatabasePath, deps.Config.Geo.CacheTTL, deps.Logger)
		if err != nil {
			deps.Logger.Warn("failed to open geo database, country tagging disabled", zap.Error(err))
		} else {
			geoProvider = mm
		}
	}

	guard := auth.NewGuard(accounts, deps.Logger)
	reportSvc := analytics.NewService(facts, scans, accounts, guard, deps.Config.Reporting, deps.Logger, deps.Metrics)
	trackSvc := tracking.NewService(scans, geoProvider, deps.Logger, deps.Metrics)

	s := &Server{
		reports:  reportSvc,
		tracking: trackSvc,
		accounts: accounts,
		scans:    scans,
		guard:    guard,
		deps:     deps,
		logger:   deps.Logger,
		config:   deps.Config,
		metrics:  deps.Metrics,
	}

	rateLimit := middleware.NewRateLimitMiddleware(deps.Config.RateLimit, deps.Logger)
	rateLimit.SetMetrics(deps.Metrics)
	rateLimit.StartCleanup(time.Hour)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Reporting
	mux.HandleFunc("/api/v1/reports/overview", s.handleOverview)
	mux.HandleFunc("/api/v1/reports/email", s.channelHandler(models.ChannelEmail))
	mux.HandleFunc("/api/v1/reports/mail", s.channelHandler(models.ChannelDirectMail))
	mux.HandleFunc("/api/v1/reports/social", s.channelHandler(models.ChannelPaidSocial))
	mux.HandleFunc("/api/v1/reports/search", s.channelHandler(models.ChannelPaidSearch))
	mux.HandleFunc("/api/v1/reports/mail/geo", s.handleMailGeo)

	// Preferences
	mux.HandleFunc("/api/v1/preferences", s.handlePreferences)

	// Admin management
	mux.HandleFunc("/api/v1/admin/clients", s.handleAdminClients)
	mux.HandleFunc("/api/v1/admin/accounts", s.handleAdminAccounts)
	mux.HandleFunc("/api/v1/admin/bindings", s.handleAdminBindings)

	// Scan ingestion, rate limited per IP since it is open to the internet
	mux.Handle("/t/scan", rateLimit.HandlerPerIP(http.HandlerFunc(s.tracking.HandleScan)))

	var handler http.Handler = mux
	handler = middleware.NewAuthMiddleware(deps.Config.Auth, deps.Logger).Handler(handler)
	handler = rateLimit.Handler(handler)
	handler = middleware.NewLoggingMiddleware(deps.Logger).Handler(handler)
	handler = middleware.NewRecoveryMiddleware(deps.Logger).Handler(handler)
	return handler
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{}
	status := "ok"

	check := func(name string, err error) {
		if err != nil {
			components[name] = "unhealthy"
			status = "degraded"
		} else {
			components[name] = "ok"
		}
	}

	if s.deps.DB != nil {
		check("postgres", s.deps.DB.Health(r.Context()))
	}
	if s.deps.Redis != nil {
		check("redis", s.deps.Redis.Health(r.Context()))
	}
	if s.deps.ClickHouse != nil {
		check("clickhouse", s.deps.ClickHouse.Health(r.Context()))
	}

	s.jsonResponse(w, map[string]interface{}{
		"status":     status,
		"components": components,
	})
}

// ---- Reporting ----

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	scope, ok := middleware.ScopeFromContext(r.Context())
	if !ok {
		s.errorResponse(w, "missing scope", http.StatusForbidden)
		return
	}

	clientID := r.URL.Query().Get("client")
	if clientID == "" {
		s.errorResponse(w, "client is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	report, err := s.reports.Overview(r.Context(), scope, analytics.OverviewRequest{
		ClientID: clientID,
		From:     r.URL.Query().Get("from"),
		To:       r.URL.Query().Get("to"),
	})
	if err != nil {
		s.reportError(w, "overview", err, start)
		return
	}

	s.metrics.RecordReport("overview", "ok", time.Since(start))
	s.jsonResponse(w, report)
}

func (s *Server) channelHandler(channel models.Channel) http.HandlerFunc {
	endpoint := string(channel)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		scope, ok := middleware.ScopeFromContext(r.Context())
		if !ok {
			s.errorResponse(w, "missing scope", http.StatusForbidden)
			return
		}

		accountID := r.URL.Query().Get("account")
		if accountID == "" {
			s.errorResponse(w, "account is required", http.StatusBadRequest)
			return
		}

		start := time.Now()
		report, err := s.reports.ChannelReport(r.Context(), scope, channel, analytics.ChannelRequest{
			AccountID: accountID,
			From:      r.URL.Query().Get("from"),
			To:        r.URL.Query().Get("to"),
		})
		if err != nil {
			s.reportError(w, endpoint, err, start)
			return
		}

		s.metrics.RecordReport(endpoint, "ok", time.Since(start))
		s.jsonResponse(w, report)
	}
}

func (s *Server) handleMailGeo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	scope, ok := middleware.ScopeFromContext(r.Context())
	if !ok {
		s.errorResponse(w, "missing scope", http.StatusForbidden)
		return
	}

	accountID := r.URL.Query().Get("account")
	if accountID == "" {
		s.errorResponse(w, "account is required", http.StatusBadRequest)
		return
	}

	account, err := s.guard.Account(r.Context(), scope, accountID)
	if err != nil {
		s.mapError(w, err)
		return
	}
	if account.Channel != models.ChannelDirectMail {
		s.mapError(w, auth.ErrAccountNotAccessible)
		return
	}

	breakdown, err := s.scans.GeoBreakdown(r.Context(), accountID)
	if err != nil {
		s.logger.Error("geo breakdown failed", zap.String("account_id", accountID), zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, map[string]interface{}{
		"accountId": accountID,
		"countries": breakdown,
	})
}

// ---- Preferences ----

type preferencePayload struct {
	ClientID  string `json:"clientId"`
	Channel   string `json:"channel"`
	AccountID string `json:"accountId"`
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	scope, ok := middleware.ScopeFromContext(r.Context())
	if !ok {
		s.errorResponse(w, "missing scope", http.StatusForbidden)
		return
	}

	switch r.Method {
	case http.MethodGet:
		clientID := r.URL.Query().Get("client")
		if clientID == "" {
			s.errorResponse(w, "client is required", http.StatusBadRequest)
			return
		}
		if _, err := s.guard.Client(r.Context(), scope, clientID); err != nil {
			s.mapError(w, err)
			return
		}
		prefs, err := s.accounts.Preferences(r.Context(), clientID)
		if err != nil {
			s.logger.Error("listing preferences failed", zap.Error(err))
			s.errorResponse(w, "internal error", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, prefs)

	case http.MethodPut, http.MethodPost:
		var payload preferencePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		channel := models.Channel(payload.Channel)
		if payload.ClientID == "" || payload.AccountID == "" || !channel.Valid() {
			s.errorResponse(w, "clientId, channel and accountId are required", http.StatusBadRequest)
			return
		}
		if _, err := s.guard.Client(r.Context(), scope, payload.ClientID); err != nil {
			s.mapError(w, err)
			return
		}
		// The preferred account must itself be accessible to the caller.
		if _, err := s.guard.Account(r.Context(), scope, payload.AccountID); err != nil {
			s.mapError(w, err)
			return
		}
		pref := &models.Preference{
			ClientID:  payload.ClientID,
			Channel:   channel,
			AccountID: payload.AccountID,
		}
		if err := s.accounts.UpsertPreference(r.Context(), pref); err != nil {
			s.logger.Error("upserting preference failed", zap.Error(err))
			s.metrics.RecordStoreError("accounts", "upsert_preference")
			s.errorResponse(w, "internal error", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, pref)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---- Admin management ----

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	scope, ok := middleware.ScopeFromContext(r.Context())
	if !ok || scope.Kind != auth.ScopeAdmin {
		s.errorResponse(w, "admin scope required", http.StatusForbidden)
		return false
	}
	return true
}

func (s *Server) handleAdminClients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	var client models.Client
	if err := json.NewDecoder(r.Body).Decode(&client); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if client.ID == "" || client.Name == "" {
		s.errorResponse(w, "id and name are required", http.StatusBadRequest)
		return
	}
	if err := s.accounts.UpsertClient(r.Context(), &client); err != nil {
		s.logger.Error("upserting client failed", zap.Error(err))
		s.metrics.RecordStoreError("accounts", "upsert_client")
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, &client)
}

func (s *Server) handleAdminAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	var account models.ChannelAccount
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if account.ID == "" || !account.Channel.Valid() {
		s.errorResponse(w, "id and a valid channel are required", http.StatusBadRequest)
		return
	}
	if err := s.accounts.UpsertAccount(r.Context(), &account); err != nil {
		s.logger.Error("upserting account failed", zap.Error(err))
		s.metrics.RecordStoreError("accounts", "upsert_account")
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, &account)
}

func (s *Server) handleAdminBindings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	var binding models.AccountBinding
	if err := json.NewDecoder(r.Body).Decode(&binding); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if binding.ClientID == "" || binding.AccountID == "" {
		s.errorResponse(w, "clientId and accountId are required", http.StatusBadRequest)
		return
	}
	if err := s.accounts.Bind(r.Context(), binding.ClientID, binding.AccountID); err != nil {
		s.logger.Error("binding account failed", zap.Error(err))
		s.metrics.RecordStoreError("accounts", "bind")
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, &binding)
}

// ---- Helper Methods ----

func (s *Server) reportError(w http.ResponseWriter, endpoint string, err error, start time.Time) {
	status := errorStatus(err)
	s.metrics.RecordReport(endpoint, strconv.Itoa(status), time.Since(start))
	if status == http.StatusInternalServerError {
		s.logger.Error("report failed", zap.String("endpoint", endpoint), zap.Error(err))
		s.errorResponse(w, "internal error", status)
		return
	}
	s.errorResponse(w, err.Error(), status)
}

func (s *Server) mapError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
		s.errorResponse(w, "internal error", status)
		return
	}
	s.errorResponse(w, err.Error(), status)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, analytics.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrAccountNotAccessible):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
