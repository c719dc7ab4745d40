package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/thehashrocket/kirk-analytics/internal/models"
)

// In-memory stores back the service when infra is unavailable and carry the
// unit tests. They are thread safe; values are copied on write so callers
// cannot mutate stored state.

// InMemoryAccountStore implements AccountStore with maps.
type InMemoryAccountStore struct {
	mu       sync.RWMutex
	clients  map[string]*models.Client
	accounts map[string]*models.ChannelAccount
	bindings map[string]map[string]bool // client_id -> account_id -> bound
	prefs    map[string][]*models.Preference
}

// NewInMemoryAccountStore creates an empty in-memory account store.
func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		clients:  make(map[string]*models.Client),
		accounts: make(map[string]*models.ChannelAccount),
		bindings: make(map[string]map[string]bool),
		prefs:    make(map[string][]*models.Preference),
	}
}

func (s *InMemoryAccountStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryAccountStore) UpsertClient(ctx context.Context, c *models.Client) error {
	if c == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.clients[c.ID] = &cp
	return nil
}

func (s *InMemoryAccountStore) GetAccount(ctx context.Context, id string) (*models.ChannelAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *InMemoryAccountStore) UpsertAccount(ctx context.Context, a *models.ChannelAccount) error {
	if a == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *InMemoryAccountStore) Bind(ctx context.Context, clientID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bindings[clientID] == nil {
		s.bindings[clientID] = make(map[string]bool)
	}
	s.bindings[clientID][accountID] = true
	return nil
}

func (s *InMemoryAccountStore) IsBound(ctx context.Context, clientID, accountID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bindings[clientID][accountID], nil
}

func (s *InMemoryAccountStore) AccountsForClient(ctx context.Context, clientID string) ([]*models.ChannelAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.bindings[clientID]))
	for id := range s.bindings[clientID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]*models.ChannelAccount, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.accounts[id]; ok {
			cp := *a
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *InMemoryAccountStore) AccountVisibleToRep(ctx context.Context, repID, accountID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for clientID, bound := range s.bindings {
		if !bound[accountID] {
			continue
		}
		if c, ok := s.clients[clientID]; ok && c.RepID != "" && c.RepID == repID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryAccountStore) Preferences(ctx context.Context, clientID string) ([]*models.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.Preference, 0, len(s.prefs[clientID]))
	for _, p := range s.prefs[clientID] {
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

func (s *InMemoryAccountStore) UpsertPreference(ctx context.Context, p *models.Preference) error {
	if p == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	for i, existing := range s.prefs[p.ClientID] {
		if existing.Channel == p.Channel {
			s.prefs[p.ClientID][i] = &cp
			return nil
		}
	}
	s.prefs[p.ClientID] = append(s.prefs[p.ClientID], &cp)
	return nil
}

// InMemoryFactStore implements FactStore over slices. Seed methods load
// rows; reads filter by account and inclusive window.
type InMemoryFactStore struct {
	mu     sync.RWMutex
	email  []*models.EmailFact
	social []*models.SocialFact
	search []*models.SearchFact
}

// NewInMemoryFactStore creates an empty in-memory fact store.
func NewInMemoryFactStore() *InMemoryFactStore {
	return &InMemoryFactStore{}
}

// AddEmailFacts seeds email fact rows.
func (s *InMemoryFactStore) AddEmailFacts(rows ...*models.EmailFact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = append(s.email, rows...)
}

// AddSocialFacts seeds paid-social fact rows.
func (s *InMemoryFactStore) AddSocialFacts(rows ...*models.SocialFact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.social = append(s.social, rows...)
}

// AddSearchFacts seeds paid-search fact rows.
func (s *InMemoryFactStore) AddSearchFacts(rows ...*models.SearchFact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = append(s.search, rows...)
}

func (s *InMemoryFactStore) EmailFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.EmailFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.EmailFact
	for _, row := range s.email {
		if row.AccountID == accountID && inWindow(row.Date, start, end) {
			cp := *row
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (s *InMemoryFactStore) SocialFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.SocialFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.SocialFact
	for _, row := range s.social {
		if row.AccountID == accountID && inWindow(row.Date, start, end) {
			cp := *row
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (s *InMemoryFactStore) SearchFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.SearchFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.SearchFact
	for _, row := range s.search {
		if row.AccountID == accountID && inWindow(row.Date, start, end) {
			cp := *row
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// InMemoryScanStore implements ScanStore with per-day counters.
type InMemoryScanStore struct {
	mu     sync.RWMutex
	counts map[string]map[string]map[string]int64 // account -> campaign -> date -> scans
	geo    map[string]map[string]int64            // account -> country -> scans
}

// NewInMemoryScanStore creates an empty in-memory scan store.
func NewInMemoryScanStore() *InMemoryScanStore {
	return &InMemoryScanStore{
		counts: make(map[string]map[string]map[string]int64),
		geo:    make(map[string]map[string]int64),
	}
}

func (s *InMemoryScanStore) RecordScan(ctx context.Context, ev *models.ScanEvent) error {
	if ev == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	date := ev.Timestamp.UTC().Format("2006-01-02")
	if s.counts[ev.AccountID] == nil {
		s.counts[ev.AccountID] = make(map[string]map[string]int64)
	}
	if s.counts[ev.AccountID][ev.CampaignID] == nil {
		s.counts[ev.AccountID][ev.CampaignID] = make(map[string]int64)
	}
	s.counts[ev.AccountID][ev.CampaignID][date]++

	if ev.Country != "" {
		if s.geo[ev.AccountID] == nil {
			s.geo[ev.AccountID] = make(map[string]int64)
		}
		s.geo[ev.AccountID][ev.Country]++
	}
	return nil
}

func (s *InMemoryScanStore) MailFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.MailFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.MailFact
	for campaignID, days := range s.counts[accountID] {
		for dateStr, scans := range days {
			date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
			if err != nil || !inWindow(date, start, end) {
				continue
			}
			result = append(result, &models.MailFact{
				Date:       date,
				AccountID:  accountID,
				CampaignID: campaignID,
				Scans:      scans,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].CampaignID < result[j].CampaignID
	})
	return result, nil
}

func (s *InMemoryScanStore) GeoBreakdown(ctx context.Context, accountID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]int64, len(s.geo[accountID]))
	for country, n := range s.geo[accountID] {
		result[country] = n
	}
	return result, nil
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
