package models

import "time"

// Fact rows are immutable per-day, per-campaign counter records written by
// upstream ingestion. This layer only ever reads them.

// EmailFact is one day of email campaign activity for one account.
type EmailFact struct {
	Date         time.Time `json:"date"`
	AccountID    string    `json:"account_id"`
	CampaignID   string    `json:"campaign_id"`
	CampaignName string    `json:"campaign_name,omitempty"`
	Delivered    int64     `json:"delivered"`
	Opens        int64     `json:"opens"`
	Clicks       int64     `json:"clicks"`
	Unsubscribes int64     `json:"unsubscribes"`
	Bounces      int64     `json:"bounces"`
}

// SocialFact is one day of paid social activity for one account.
type SocialFact struct {
	Date         time.Time `json:"date"`
	AccountID    string    `json:"account_id"`
	CampaignID   string    `json:"campaign_id"`
	CampaignName string    `json:"campaign_name,omitempty"`
	Impressions  int64     `json:"impressions"`
	Reach        int64     `json:"reach"`
	LinkClicks   int64     `json:"link_clicks"`
	Spend        float64   `json:"spend"`
}

// SearchFact is one day of paid search activity for one account.
type SearchFact struct {
	Date         time.Time `json:"date"`
	AccountID    string    `json:"account_id"`
	CampaignID   string    `json:"campaign_id"`
	CampaignName string    `json:"campaign_name,omitempty"`
	Impressions  int64     `json:"impressions"`
	Clicks       int64     `json:"clicks"`
	Conversions  int64     `json:"conversions"`
	Spend        float64   `json:"spend"`
}

// MailFact is one day of direct-mail scan counts for one account. Unlike the
// other channels it is derived from scan events this service ingests itself.
type MailFact struct {
	Date         time.Time `json:"date"`
	AccountID    string    `json:"account_id"`
	CampaignID   string    `json:"campaign_id"`
	CampaignName string    `json:"campaign_name,omitempty"`
	Scans        int64     `json:"scans"`
}

// ScanEvent is a single direct-mail piece scan (QR code or IMB redirect).
type ScanEvent struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	CampaignID string    `json:"campaign_id"`
	IP         string    `json:"-"`
	Country    string    `json:"country,omitempty"`
	TargetURL  string    `json:"target_url,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
