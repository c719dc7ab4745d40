package geo

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"
	"go.uber.org/zap"
)

// Provider resolves an IP address to an ISO country code. Implementations
// return an empty string for addresses they cannot place.
type Provider interface {
	Country(ip string) (string, error)
	Close() error
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

type cacheEntry struct {
	country  string
	cachedAt time.Time
}

// MaxMind resolves countries from a local MaxMind database file. Lookups
// are cached per IP with a TTL since scan bursts repeat the same addresses.
type MaxMind struct {
	reader   *maxminddb.Reader
	logger   *zap.Logger
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewMaxMind opens the database at path.
func NewMaxMind(path string, cacheTTL time.Duration, logger *zap.Logger) (*MaxMind, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geo database: %w", err)
	}
	return &MaxMind{
		reader:   reader,
		logger:   logger,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cacheEntry),
	}, nil
}

func (m *MaxMind) Country(ip string) (string, error) {
	m.mu.RLock()
	entry, ok := m.cache[ip]
	m.mu.RUnlock()
	if ok && time.Since(entry.cachedAt) < m.cacheTTL {
		return entry.country, nil
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("invalid IP address: %s", ip)
	}

	var record countryRecord
	if err := m.reader.Lookup(parsed, &record); err != nil {
		return "", fmt.Errorf("geo lookup: %w", err)
	}

	m.mu.Lock()
	m.cache[ip] = cacheEntry{country: record.Country.ISOCode, cachedAt: time.Now()}
	m.mu.Unlock()

	return record.Country.ISOCode, nil
}

func (m *MaxMind) Close() error {
	return m.reader.Close()
}

// Noop is used when no geo database is configured; every lookup resolves
// to an empty country.
type Noop struct{}

func (Noop) Country(string) (string, error) { return "", nil }
func (Noop) Close() error                   { return nil }
