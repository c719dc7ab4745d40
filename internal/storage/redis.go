package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/thehashrocket/kirk-analytics/internal/models"
)

// Counters are retained long enough to cover a trailing window plus its
// prior-year comparison window.
const scanRetention = 25 * 31 * 24 * time.Hour

// RedisScanStore implements ScanStore on Redis. Scans increment per-day
// counters keyed scans:<account>:<campaign>:<date>; campaign membership and
// country tallies live in a set and a hash per account.
type RedisScanStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisScanStore creates a Redis-backed scan store.
func NewRedisScanStore(client *redis.Client, logger *zap.Logger) *RedisScanStore {
	return &RedisScanStore{client: client, logger: logger}
}

func scanKey(accountID, campaignID, date string) string {
	return fmt.Sprintf("scans:%s:%s:%s", accountID, campaignID, date)
}

func campaignSetKey(accountID string) string {
	return fmt.Sprintf("scans:campaigns:%s", accountID)
}

func geoKey(accountID string) string {
	return fmt.Sprintf("scans:geo:%s", accountID)
}

func (s *RedisScanStore) RecordScan(ctx context.Context, ev *models.ScanEvent) error {
	date := ev.Timestamp.UTC().Format("2006-01-02")
	key := scanKey(ev.AccountID, ev.CampaignID, date)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, scanRetention)
	pipe.SAdd(ctx, campaignSetKey(ev.AccountID), ev.CampaignID)
	if ev.Country != "" {
		pipe.HIncrBy(ctx, geoKey(ev.AccountID), ev.Country, 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording scan: %w", err)
	}
	return nil
}

func (s *RedisScanStore) MailFacts(ctx context.Context, accountID string, start, end time.Time) ([]*models.MailFact, error) {
	campaigns, err := s.client.SMembers(ctx, campaignSetKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing scan campaigns: %w", err)
	}
	sort.Strings(campaigns)

	var facts []*models.MailFact
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		for _, campaignID := range campaigns {
			val, err := s.client.Get(ctx, scanKey(accountID, campaignID, date)).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("reading scan counter: %w", err)
			}
			scans, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				s.logger.Warn("malformed scan counter",
					zap.String("account_id", accountID),
					zap.String("campaign_id", campaignID),
					zap.String("date", date),
				)
				continue
			}
			facts = append(facts, &models.MailFact{
				Date:       day,
				AccountID:  accountID,
				CampaignID: campaignID,
				Scans:      scans,
			})
		}
	}
	return facts, nil
}

func (s *RedisScanStore) GeoBreakdown(ctx context.Context, accountID string) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, geoKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading geo breakdown: %w", err)
	}
	result := make(map[string]int64, len(raw))
	for country, val := range raw {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		result[country] = n
	}
	return result, nil
}
