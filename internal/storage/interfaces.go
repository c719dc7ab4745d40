package storage

import (
	"context"
	"time"

	"github.com/thehashrocket/kirk-analytics/internal/models"
)

// AccountStore defines operations over clients, channel accounts and the
// bindings between them. Implementations back the access-scoping guard, so
// every lookup here is on the authorization path.
type AccountStore interface {
	// Clients
	GetClient(ctx context.Context, id string) (*models.Client, error)
	UpsertClient(ctx context.Context, c *models.Client) error

	// Channel accounts
	GetAccount(ctx context.Context, id string) (*models.ChannelAccount, error)
	UpsertAccount(ctx context.Context, a *models.ChannelAccount) error

	// Bindings
	Bind(ctx context.Context, clientID, accountID string) error
	IsBound(ctx context.Context, clientID, accountID string) (bool, error)
	AccountsForClient(ctx context.Context, clientID string) ([]*models.ChannelAccount, error)
	// AccountVisibleToRep reports whether any client bound to the account is
	// assigned to the given representative.
	AccountVisibleToRep(ctx context.Context, repID, accountID string) (bool, error)

	// Preferences
	Preferences(ctx context.Context, clientID string) ([]*models.Preference, error)
	UpsertPreference(ctx context.Context, p *models.Preference) error
}

// FactStore reads per-day fact rows from the warehouse. Windows are
// inclusive on both bounds. Implementations return raw rows ordered by date
// ascending; all aggregation happens in the analytics layer.
type FactStore interface {
	EmailFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.EmailFact, error)
	SocialFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.SocialFact, error)
	SearchFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.SearchFact, error)
}

// ScanStore records direct-mail scan events and serves them back as daily
// fact rows for the direct-mail channel.
type ScanStore interface {
	RecordScan(ctx context.Context, ev *models.ScanEvent) error
	MailFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.MailFact, error)
	GeoBreakdown(ctx context.Context, accountID string) (map[string]int64, error)
}
