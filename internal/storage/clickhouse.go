package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/thehashrocket/kirk-analytics/internal/models"
)

// ClickHouseFactStore implements FactStore on the fact warehouse. Daily
// rollups land in ClickHouse from the channel ingest jobs; this store only
// reads them.
type ClickHouseFactStore struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewClickHouseFactStore creates a ClickHouse-backed fact store.
func NewClickHouseFactStore(conn driver.Conn, logger *zap.Logger) *ClickHouseFactStore {
	return &ClickHouseFactStore{conn: conn, logger: logger}
}

func (s *ClickHouseFactStore) EmailFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.EmailFact, error) {
	query := `
		SELECT date, account_id, campaign_id, campaign_name,
		       delivered, opens, clicks, unsubscribes, bounces
		FROM email_facts
		WHERE account_id = ? AND date >= ? AND date <= ?
		ORDER BY date, campaign_id`

	rows, err := s.conn.Query(ctx, query, accountID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying email facts: %w", err)
	}
	defer rows.Close()

	var facts []*models.EmailFact
	for rows.Next() {
		var f models.EmailFact
		if err := rows.Scan(
			&f.Date, &f.AccountID, &f.CampaignID, &f.CampaignName,
			&f.Delivered, &f.Opens, &f.Clicks, &f.Unsubscribes, &f.Bounces,
		); err != nil {
			return nil, fmt.Errorf("scanning email fact row: %w", err)
		}
		facts = append(facts, &f)
	}
	return facts, rows.Err()
}

func (s *ClickHouseFactStore) SocialFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.SocialFact, error) {
	query := `
		SELECT date, account_id, campaign_id, campaign_name,
		       impressions, reach, link_clicks, spend
		FROM social_facts
		WHERE account_id = ? AND date >= ? AND date <= ?
		ORDER BY date, campaign_id`

	rows, err := s.conn.Query(ctx, query, accountID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying social facts: %w", err)
	}
	defer rows.Close()

	var facts []*models.SocialFact
	for rows.Next() {
		var f models.SocialFact
		if err := rows.Scan(
			&f.Date, &f.AccountID, &f.CampaignID, &f.CampaignName,
			&f.Impressions, &f.Reach, &f.LinkClicks, &f.Spend,
		); err != nil {
			return nil, fmt.Errorf("scanning social fact row: %w", err)
		}
		facts = append(facts, &f)
	}
	return facts, rows.Err()
}

func (s *ClickHouseFactStore) SearchFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.SearchFact, error) {
	query := `
		SELECT date, account_id, campaign_id, campaign_name,
		       impressions, clicks, conversions, spend
		FROM search_facts
		WHERE account_id = ? AND date >= ? AND date <= ?
		ORDER BY date, campaign_id`

	rows, err := s.conn.Query(ctx, query, accountID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying search facts: %w", err)
	}
	defer rows.Close()

	var facts []*models.SearchFact
	for rows.Next() {
		var f models.SearchFact
		if err := rows.Scan(
			&f.Date, &f.AccountID, &f.CampaignID, &f.CampaignName,
			&f.Impressions, &f.Clicks, &f.Conversions, &f.Spend,
		); err != nil {
			return nil, fmt.Errorf("scanning search fact row: %w", err)
		}
		facts = append(facts, &f)
	}
	return facts, rows.Err()
}
