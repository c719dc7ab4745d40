package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/thehashrocket/kirk-analytics/internal/auth"
	"github.com/thehashrocket/kirk-analytics/internal/config"
	"github.com/thehashrocket/kirk-analytics/internal/metrics"
	"github.com/thehashrocket/kirk-analytics/internal/models"
	"github.com/thehashrocket/kirk-analytics/internal/storage"
)

// Service computes role-scoped cross-channel reports. It is stateless and
// read-only: every call re-aggregates from fact rows, nothing is cached.
type Service struct {
	facts    storage.FactStore
	scans    storage.ScanStore
	accounts storage.AccountStore
	guard    *auth.Guard
	cfg      config.ReportingConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewService creates a new report service.
func NewService(
	facts storage.FactStore,
	scans storage.ScanStore,
	accounts storage.AccountStore,
	guard *auth.Guard,
	cfg config.ReportingConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		facts:    facts,
		scans:    scans,
		accounts: accounts,
		guard:    guard,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// ChannelRequest asks for a single-channel report.
type ChannelRequest struct {
	AccountID string
	From      string
	To        string
}

// OverviewRequest asks for the merged cross-channel report for one client.
type OverviewRequest struct {
	ClientID string
	From     string
	To       string
}

// ChannelReport builds a single-channel report. The account must pass the
// access guard and must belong to the requested channel; a wrong-channel
// account is reported as not accessible rather than as a distinct error.
func (s *Service) ChannelReport(ctx context.Context, scope auth.Scope, channel models.Channel, req ChannelRequest) (*ChannelReport, error) {
	account, err := s.guard.Account(ctx, scope, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account.Channel != channel {
		return nil, auth.ErrAccountNotAccessible
	}

	r, err := ResolveRange(req.From, req.To, s.cfg.DefaultWindowDays)
	if err != nil {
		return nil, err
	}

	return s.buildChannelReport(ctx, channel, account.ID, r)
}

// Overview builds the merged cross-channel report for one client. Channel
// aggregations fan out concurrently; a failed branch degrades that channel
// to null instead of failing the request.
func (s *Service) Overview(ctx context.Context, scope auth.Scope, req OverviewRequest) (*OverviewReport, error) {
	if _, err := s.guard.Client(ctx, scope, req.ClientID); err != nil {
		return nil, err
	}

	r, err := ResolveRange(req.From, req.To, s.cfg.DefaultWindowDays)
	if err != nil {
		return nil, err
	}

	selected, err := s.selectAccounts(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	channels := models.AllChannels()
	results := make([]*ChannelReport, len(channels))

	var wg sync.WaitGroup
	for i, ch := range channels {
		account, ok := selected[ch]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, ch models.Channel, accountID string) {
			defer wg.Done()
			rep, err := s.buildChannelReport(ctx, ch, accountID, r)
			if err != nil {
				s.logger.Warn("channel aggregation failed",
					zap.String("channel", string(ch)),
					zap.String("account_id", accountID),
					zap.Error(err),
				)
				s.metrics.RecordChannelFailure(string(ch))
				return
			}
			results[i] = rep
		}(i, ch, account.ID)
	}
	wg.Wait()

	out := &OverviewReport{
		ClientID:   req.ClientID,
		From:       r.Start.Format(DateLayout),
		To:         r.End.Format(DateLayout),
		Email:      results[0],
		DirectMail: results[1],
		PaidSocial: results[2],
		PaidSearch: results[3],
		Channels:   make(map[string]bool, len(channels)),
	}
	for i, rep := range results {
		out.Channels[string(channels[i])] = rep != nil
		if rep == nil {
			continue
		}
		out.TotalSpend += rep.Metrics.Current["spend"]
		out.TotalCampaigns += rep.TotalCampaigns
	}
	return out, nil
}

// selectAccounts picks one bound account per channel for the client: the
// preference record when one names a bound account, otherwise the first
// bound account in ID order for determinism.
func (s *Service) selectAccounts(ctx context.Context, clientID string) (map[models.Channel]*models.ChannelAccount, error) {
	accounts, err := s.accounts.AccountsForClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing client accounts: %w", err)
	}
	prefs, err := s.accounts.Preferences(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("reading preferences: %w", err)
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	preferred := make(map[models.Channel]string, len(prefs))
	for _, p := range prefs {
		preferred[p.Channel] = p.AccountID
	}

	selected := make(map[models.Channel]*models.ChannelAccount)
	for _, a := range accounts {
		if want, ok := preferred[a.Channel]; ok && want == a.ID {
			selected[a.Channel] = a
			continue
		}
		if _, ok := selected[a.Channel]; !ok {
			selected[a.Channel] = a
		}
	}
	// A preference naming an unbound account falls back to the first bound
	// account, which the loop above already selected.
	return selected, nil
}

func (s *Service) buildChannelReport(ctx context.Context, channel models.Channel, accountID string, r Range) (*ChannelReport, error) {
	current, err := s.aggregateWindow(ctx, channel, accountID, r)
	if err != nil {
		return nil, err
	}
	prior, err := s.aggregateWindow(ctx, channel, accountID, r.PriorYear())
	if err != nil {
		return nil, err
	}

	return &ChannelReport{
		Channel:   channel,
		AccountID: accountID,
		Metrics: PeriodMetrics{
			Current:      current.Totals,
			PreviousYear: prior.Totals,
			YearOverYear: ComparePeriods(current.Totals, prior.Totals),
		},
		TimeSeriesData: current.Series,
		TopCampaigns:   current.TopCampaigns,
		TotalCampaigns: current.TotalCampaigns,
	}, nil
}

func (s *Service) aggregateWindow(ctx context.Context, channel models.Channel, accountID string, r Range) (Aggregate, error) {
	opts := Options{
		TopLimit: s.cfg.TopCampaignLimit,
		Monthly:  r.Days() > s.cfg.MonthlyBucketDays,
	}

	switch channel {
	case models.ChannelEmail:
		rows, err := s.facts.EmailFacts(ctx, accountID, r.Start, r.End)
		if err != nil {
			return Aggregate{}, fmt.Errorf("fetching email facts: %w", err)
		}
		return AggregateEmail(rows, r, opts), nil

	case models.ChannelPaidSocial:
		rows, err := s.facts.SocialFacts(ctx, accountID, r.Start, r.End)
		if err != nil {
			return Aggregate{}, fmt.Errorf("fetching social facts: %w", err)
		}
		return AggregateSocial(rows, r, opts), nil

	case models.ChannelPaidSearch:
		rows, err := s.facts.SearchFacts(ctx, accountID, r.Start, r.End)
		if err != nil {
			return Aggregate{}, fmt.Errorf("fetching search facts: %w", err)
		}
		return AggregateSearch(rows, r, opts), nil

	case models.ChannelDirectMail:
		rows, err := s.scans.MailFacts(ctx, accountID, r.Start, r.End)
		if err != nil {
			return Aggregate{}, fmt.Errorf("fetching mail facts: %w", err)
		}
		return AggregateMail(rows, r, opts), nil
	}

	return Aggregate{}, fmt.Errorf("unknown channel %q", channel)
}
