package tracking

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thehashrocket/kirk-analytics/internal/geo"
	"github.com/thehashrocket/kirk-analytics/internal/metrics"
	"github.com/thehashrocket/kirk-analytics/internal/models"
	"github.com/thehashrocket/kirk-analytics/internal/storage"
)

// Service ingests QR scan events for direct-mail campaigns. A scan hit
// records a counter and redirects the visitor to the campaign landing page.
type Service struct {
	scans   storage.ScanStore
	geo     geo.Provider
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService creates a new scan tracking service.
func NewService(scans storage.ScanStore, geoProvider geo.Provider, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{scans: scans, geo: geoProvider, logger: logger, metrics: m}
}

// HandleScan handles GET /t/scan?account=...&campaign=...&url=...
// Recording failures are logged but never block the redirect; the visitor
// experience comes first.
func (s *Service) HandleScan(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account")
	campaignID := r.URL.Query().Get("campaign")
	target := r.URL.Query().Get("url")

	if accountID == "" || campaignID == "" {
		http.Error(w, "missing account or campaign", http.StatusBadRequest)
		return
	}

	ip := clientIP(r)
	country := ""
	if ip != "" {
		c, err := s.geo.Country(ip)
		if err != nil {
			s.logger.Debug("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		} else {
			country = c
		}
	}

	ev := &models.ScanEvent{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		CampaignID: campaignID,
		IP:         ip,
		Country:    country,
		TargetURL:  target,
		Timestamp:  time.Now().UTC(),
	}

	if err := s.scans.RecordScan(r.Context(), ev); err != nil {
		s.logger.Error("failed to record scan",
			zap.String("account_id", accountID),
			zap.String("campaign_id", campaignID),
			zap.Error(err),
		)
		s.metrics.RecordStoreError("scans", "record")
	} else {
		s.metrics.RecordScan(country)
	}

	if redirectable(target) {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// redirectable accepts absolute http(s) URLs only, so the endpoint cannot
// be used as an open redirect to arbitrary schemes.
func redirectable(target string) bool {
	if target == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}
