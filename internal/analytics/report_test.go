package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thehashrocket/kirk-analytics/internal/auth"
	"github.com/thehashrocket/kirk-analytics/internal/config"
	"github.com/thehashrocket/kirk-analytics/internal/models"
	"github.com/thehashrocket/kirk-analytics/internal/storage"
)

var testReportingCfg = config.ReportingConfig{
	TopCampaignLimit:  50,
	DefaultWindowDays: 30,
	MonthlyBucketDays: 92,
}

type reportFixture struct {
	accounts *storage.InMemoryAccountStore
	facts    *storage.InMemoryFactStore
	scans    *storage.InMemoryScanStore
	svc      *Service
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	accounts := storage.NewInMemoryAccountStore()
	facts := storage.NewInMemoryFactStore()
	scans := storage.NewInMemoryScanStore()
	logger := zap.NewNop()
	guard := auth.NewGuard(accounts, logger)
	svc := NewService(facts, scans, accounts, guard, testReportingCfg, logger, nil)
	return &reportFixture{accounts: accounts, facts: facts, scans: scans, svc: svc}
}

func (f *reportFixture) seedClient(t *testing.T, clientID, repID string) {
	t.Helper()
	err := f.accounts.UpsertClient(context.Background(), &models.Client{ID: clientID, Name: clientID, RepID: repID})
	require.NoError(t, err)
}

func (f *reportFixture) seedAccount(t *testing.T, clientID, accountID string, channel models.Channel) {
	t.Helper()
	ctx := context.Background()
	err := f.accounts.UpsertAccount(ctx, &models.ChannelAccount{ID: accountID, Channel: channel, Name: accountID})
	require.NoError(t, err)
	require.NoError(t, f.accounts.Bind(ctx, clientID, accountID))
}

func TestChannelReportScoping(t *testing.T) {
	f := newReportFixture(t)
	f.seedClient(t, "client-1", "rep-1")
	f.seedAccount(t, "client-1", "acc-email", models.ChannelEmail)

	req := ChannelRequest{AccountID: "acc-email", From: "2025-06-01", To: "2025-06-30"}
	ctx := context.Background()

	_, err := f.svc.ChannelReport(ctx, auth.Admin(), models.ChannelEmail, req)
	assert.NoError(t, err)

	_, err = f.svc.ChannelReport(ctx, auth.Client("client-1"), models.ChannelEmail, req)
	assert.NoError(t, err)

	_, err = f.svc.ChannelReport(ctx, auth.AccountRep("rep-1"), models.ChannelEmail, req)
	assert.NoError(t, err)

	// Unrelated client and rep get the same sentinel as a missing account.
	_, err = f.svc.ChannelReport(ctx, auth.Client("client-2"), models.ChannelEmail, req)
	assert.ErrorIs(t, err, auth.ErrAccountNotAccessible)

	_, err = f.svc.ChannelReport(ctx, auth.AccountRep("rep-2"), models.ChannelEmail, req)
	assert.ErrorIs(t, err, auth.ErrAccountNotAccessible)

	missing := ChannelRequest{AccountID: "acc-nope", From: "2025-06-01", To: "2025-06-30"}
	_, err = f.svc.ChannelReport(ctx, auth.Admin(), models.ChannelEmail, missing)
	assert.ErrorIs(t, err, auth.ErrAccountNotAccessible)
}

func TestChannelReportWrongChannel(t *testing.T) {
	f := newReportFixture(t)
	f.seedClient(t, "client-1", "rep-1")
	f.seedAccount(t, "client-1", "acc-email", models.ChannelEmail)

	req := ChannelRequest{AccountID: "acc-email", From: "2025-06-01", To: "2025-06-30"}
	_, err := f.svc.ChannelReport(context.Background(), auth.Admin(), models.ChannelPaidSocial, req)
	assert.ErrorIs(t, err, auth.ErrAccountNotAccessible)
}

func TestChannelReportInvalidRange(t *testing.T) {
	f := newReportFixture(t)
	f.seedClient(t, "client-1", "rep-1")
	f.seedAccount(t, "client-1", "acc-email", models.ChannelEmail)

	req := ChannelRequest{AccountID: "acc-email", From: "2025-06-01"}
	_, err := f.svc.ChannelReport(context.Background(), auth.Admin(), models.ChannelEmail, req)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestChannelReportYearOverYear(t *testing.T) {
	f := newReportFixture(t)
	f.seedClient(t, "client-1", "rep-1")
	f.seedAccount(t, "client-1", "acc-email", models.ChannelEmail)

	f.facts.AddEmailFacts(
		&models.EmailFact{Date: day("2025-06-10"), AccountID: "acc-email", CampaignID: "c-1", Delivered: 1000, Opens: 400, Clicks: 40},
		&models.EmailFact{Date: day("2024-06-10"), AccountID: "acc-email", CampaignID: "c-1", Delivered: 1000, Opens: 200, Clicks: 20},
	)

	req := ChannelRequest{AccountID: "acc-email", From: "2025-06-01", To: "2025-06-30"}
	report, err := f.svc.ChannelReport(context.Background(), auth.Admin(), models.ChannelEmail, req)
	require.NoError(t, err)

	assert.InDelta(t, 400, report.Metrics.Current["opens"], 1e-9)
	assert.InDelta(t, 200, report.Metrics.PreviousYear["opens"], 1e-9)
	assert.InDelta(t, 100, report.Metrics.YearOverYear["opens"].PercentChange, 1e-9)
}

func TestOverviewFixedOrderAndTotals(t *testing.T) {
	f := newReportFixture(t)
	f.seedClient(t, "client-1", "rep-1")
	f.seedAccount(t, "client-1", "acc-email", models.ChannelEmail)
	f.seedAccount(t, "client-1", "acc-search", models.ChannelPaidSearch)

	f.facts.AddEmailFacts(
		&models.EmailFact{Date: day("2025-06-10"), AccountID: "acc-email", CampaignID: "c-1", Delivered: 1000, Opens: 400},
	)
	f.facts.AddSearchFacts(
		&models.SearchFact{Date: day("2025-06-12"), AccountID: "acc-search", CampaignID: "c-2", Impressions: 5000, Clicks: 250, Spend: 123.45},
	)

	req := OverviewRequest{ClientID: "client-1", From: "2025-06-01", To: "2025-06-30"}
	report, err := f.svc.Overview(context.Background(), auth.Client("client-1"), req)
	require.NoError(t, err)

	require.NotNil(t, report.Email)
	assert.Nil(t, report.DirectMail)
	assert.Nil(t, report.PaidSocial)
	require.NotNil(t, report.PaidSearch)

	assert.Equal(t, models.ChannelEmail, report.Email.Channel)
	assert.Equal(t, models.ChannelPaidSearch, report.PaidSearch.Channel)
	assert.Equal(t, map[string]bool{
		"email": true, "direct-mail": false, "paid-social": false, "paid-search": true,
	}, report.Channels)
	assert.InDelta(t, 123.45, report.TotalSpend, 1e-9)
	assert.Equal(t, 2, report.TotalCampaigns)
	assert.Equal(t, "2025-06-01", report.From)
	assert.Equal(t, "2025-06-30", report.To)
}

func TestOverviewScopeDenied(t *testing.T) {
	f := newReportFixture(t)
	f.seedClient(t, "client-1", "rep-1")

	req := OverviewRequest{ClientID: "client-1", From: "2025-06-01", To: "2025-06-30"}
	ctx := context.Background()

	_, err := f.svc.Overview(ctx, auth.Client("client-2"), req)
	assert.ErrorIs(t, err, auth.ErrAccountNotAccessible)

	_, err = f.svc.Overview(ctx, auth.AccountRep("rep-2"), req)
	assert.ErrorIs(t, err, auth.ErrAccountNotAccessible)

	_, err = f.svc.Overview(ctx, auth.AccountRep("rep-1"), req)
	assert.NoError(t, err)
}

// failingFactStore breaks one channel to exercise partial degradation.
type failingFactStore struct {
	*storage.InMemoryFactStore
}

func (f *failingFactStore) SocialFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.SocialFact, error) {
	return nil, errors.New("warehouse unavailable")
}

func TestOverviewPartialChannelFailure(t *testing.T) {
	accounts := storage.NewInMemoryAccountStore()
	facts := &failingFactStore{InMemoryFactStore: storage.NewInMemoryFactStore()}
	scans := storage.NewInMemoryScanStore()
	logger := zap.NewNop()
	guard := auth.NewGuard(accounts, logger)
	svc := NewService(facts, scans, accounts, guard, testReportingCfg, logger, nil)

	ctx := context.Background()
	require.NoError(t, accounts.UpsertClient(ctx, &models.Client{ID: "client-1", Name: "client-1"}))
	require.NoError(t, accounts.UpsertAccount(ctx, &models.ChannelAccount{ID: "acc-email", Channel: models.ChannelEmail}))
	require.NoError(t, accounts.UpsertAccount(ctx, &models.ChannelAccount{ID: "acc-social", Channel: models.ChannelPaidSocial}))
	require.NoError(t, accounts.Bind(ctx, "client-1", "acc-email"))
	require.NoError(t, accounts.Bind(ctx, "client-1", "acc-social"))

	facts.AddEmailFacts(
		&models.EmailFact{Date: day("2025-06-10"), AccountID: "acc-email", CampaignID: "c-1", Delivered: 100, Opens: 40},
	)

	req := OverviewRequest{ClientID: "client-1", From: "2025-06-01", To: "2025-06-30"}
	report, err := svc.Overview(ctx, auth.Admin(), req)
	require.NoError(t, err)

	// The broken channel degrades to null; the healthy one still reports.
	assert.Nil(t, report.PaidSocial)
	require.NotNil(t, report.Email)
	assert.InDelta(t, 40, report.Email.Metrics.Current["opens"], 1e-9)
}

func TestOverviewPreferenceSelectsAccount(t *testing.T) {
	f := newReportFixture(t)
	f.seedClient(t, "client-1", "rep-1")
	f.seedAccount(t, "client-1", "acc-email-a", models.ChannelEmail)
	f.seedAccount(t, "client-1", "acc-email-b", models.ChannelEmail)

	req := OverviewRequest{ClientID: "client-1", From: "2025-06-01", To: "2025-06-30"}
	ctx := context.Background()

	// Without a preference the first bound account in ID order wins.
	report, err := f.svc.Overview(ctx, auth.Admin(), req)
	require.NoError(t, err)
	require.NotNil(t, report.Email)
	assert.Equal(t, "acc-email-a", report.Email.AccountID)

	err = f.accounts.UpsertPreference(ctx, &models.Preference{
		ClientID: "client-1", Channel: models.ChannelEmail, AccountID: "acc-email-b",
	})
	require.NoError(t, err)

	report, err = f.svc.Overview(ctx, auth.Admin(), req)
	require.NoError(t, err)
	require.NotNil(t, report.Email)
	assert.Equal(t, "acc-email-b", report.Email.AccountID)
}

func TestOverviewPreferenceUnboundFallsBack(t *testing.T) {
	f := newReportFixture(t)
	f.seedClient(t, "client-1", "rep-1")
	f.seedAccount(t, "client-1", "acc-email-a", models.ChannelEmail)

	ctx := context.Background()
	err := f.accounts.UpsertPreference(ctx, &models.Preference{
		ClientID: "client-1", Channel: models.ChannelEmail, AccountID: "acc-unbound",
	})
	require.NoError(t, err)

	req := OverviewRequest{ClientID: "client-1", From: "2025-06-01", To: "2025-06-30"}
	report, err := f.svc.Overview(ctx, auth.Admin(), req)
	require.NoError(t, err)
	require.NotNil(t, report.Email)
	assert.Equal(t, "acc-email-a", report.Email.AccountID)
}
