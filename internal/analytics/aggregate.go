package analytics

import (
	"sort"
	"time"

	"github.com/thehashrocket/kirk-analytics/internal/models"
)

// Options tune a single aggregation pass.
type Options struct {
	// TopLimit caps the top-N campaign ranking.
	TopLimit int
	// Monthly buckets the time series by month instead of day.
	Monthly bool
}

const monthLayout = "2006-01"

// Primary ranking metric per channel.
const (
	emailPrimary  = "opens"
	socialPrimary = "impressions"
	searchPrimary = "clicks"
	mailPrimary   = "scans"
)

var (
	emailSeriesKeys  = []string{"delivered", "opens", "clicks"}
	socialSeriesKeys = []string{"impressions", "linkClicks", "spend"}
	searchSeriesKeys = []string{"impressions", "clicks", "spend"}
	mailSeriesKeys   = []string{"scans"}
)

// AggregateEmail rolls up email fact rows over the window. Rows outside the
// window are ignored. Zero rows produce a zero-valued result, not an error;
// callers distinguish "no data" from "not found" through the access guard.
func AggregateEmail(rows []*models.EmailFact, r Range, opts Options) Aggregate {
	var delivered, opens, clicks, unsubs, bounces float64
	camps := make(map[string]*CampaignTotals)
	buckets := make(map[string]MetricSet)

	for _, row := range rows {
		if !r.Contains(row.Date) {
			continue
		}
		delivered += float64(row.Delivered)
		opens += float64(row.Opens)
		clicks += float64(row.Clicks)
		unsubs += float64(row.Unsubscribes)
		bounces += float64(row.Bounces)

		ct := campaignEntry(camps, row.CampaignID, row.CampaignName)
		ct.Values["delivered"] += float64(row.Delivered)
		ct.Values["opens"] += float64(row.Opens)
		ct.Values["clicks"] += float64(row.Clicks)

		b := bucketEntry(buckets, row.Date, opts.Monthly, emailSeriesKeys)
		b["delivered"] += float64(row.Delivered)
		b["opens"] += float64(row.Opens)
		b["clicks"] += float64(row.Clicks)
	}

	for _, ct := range camps {
		ct.Values["openRate"] = pct(ct.Values["opens"], ct.Values["delivered"])
	}

	totals := MetricSet{
		"delivered":        delivered,
		"opens":            opens,
		"clicks":           clicks,
		"unsubscribes":     unsubs,
		"bounces":          bounces,
		"openRate":         pct(opens, delivered),
		"clickThroughRate": pct(clicks, opens),
		"bounceRate":       pct(bounces, delivered),
		"unsubscribeRate":  pct(unsubs, delivered),
	}

	return Aggregate{
		Totals:         totals,
		TopCampaigns:   rankCampaigns(camps, emailPrimary, opts.TopLimit),
		Series:         buildSeries(buckets, r, opts.Monthly, emailSeriesKeys),
		TotalCampaigns: len(camps),
	}
}

// AggregateSocial rolls up paid-social fact rows over the window.
func AggregateSocial(rows []*models.SocialFact, r Range, opts Options) Aggregate {
	var impressions, reach, linkClicks, spend float64
	camps := make(map[string]*CampaignTotals)
	buckets := make(map[string]MetricSet)

	for _, row := range rows {
		if !r.Contains(row.Date) {
			continue
		}
		impressions += float64(row.Impressions)
		reach += float64(row.Reach)
		linkClicks += float64(row.LinkClicks)
		spend += row.Spend

		ct := campaignEntry(camps, row.CampaignID, row.CampaignName)
		ct.Values["impressions"] += float64(row.Impressions)
		ct.Values["linkClicks"] += float64(row.LinkClicks)
		ct.Values["spend"] += row.Spend

		b := bucketEntry(buckets, row.Date, opts.Monthly, socialSeriesKeys)
		b["impressions"] += float64(row.Impressions)
		b["linkClicks"] += float64(row.LinkClicks)
		b["spend"] += row.Spend
	}

	for _, ct := range camps {
		ct.Values["ctr"] = pct(ct.Values["linkClicks"], ct.Values["impressions"])
	}

	totals := MetricSet{
		"impressions":    impressions,
		"reach":          reach,
		"linkClicks":     linkClicks,
		"spend":          spend,
		"ctr":            pct(linkClicks, impressions),
		"cpc":            ratio(spend, linkClicks),
		"cpm":            ratio(spend, impressions) * 1000,
		"engagementRate": pct(linkClicks, reach),
	}

	return Aggregate{
		Totals:         totals,
		TopCampaigns:   rankCampaigns(camps, socialPrimary, opts.TopLimit),
		Series:         buildSeries(buckets, r, opts.Monthly, socialSeriesKeys),
		TotalCampaigns: len(camps),
	}
}

// AggregateSearch rolls up paid-search fact rows over the window.
func AggregateSearch(rows []*models.SearchFact, r Range, opts Options) Aggregate {
	var impressions, clicks, conversions, spend float64
	camps := make(map[string]*CampaignTotals)
	buckets := make(map[string]MetricSet)

	for _, row := range rows {
		if !r.Contains(row.Date) {
			continue
		}
		impressions += float64(row.Impressions)
		clicks += float64(row.Clicks)
		conversions += float64(row.Conversions)
		spend += row.Spend

		ct := campaignEntry(camps, row.CampaignID, row.CampaignName)
		ct.Values["impressions"] += float64(row.Impressions)
		ct.Values["clicks"] += float64(row.Clicks)
		ct.Values["conversions"] += float64(row.Conversions)
		ct.Values["spend"] += row.Spend

		b := bucketEntry(buckets, row.Date, opts.Monthly, searchSeriesKeys)
		b["impressions"] += float64(row.Impressions)
		b["clicks"] += float64(row.Clicks)
		b["spend"] += row.Spend
	}

	for _, ct := range camps {
		ct.Values["ctr"] = pct(ct.Values["clicks"], ct.Values["impressions"])
	}

	totals := MetricSet{
		"impressions": impressions,
		"clicks":      clicks,
		"conversions": conversions,
		"spend":       spend,
		"ctr":         pct(clicks, impressions),
		"cvr":         pct(conversions, clicks),
		"cpc":         ratio(spend, clicks),
	}

	return Aggregate{
		Totals:         totals,
		TopCampaigns:   rankCampaigns(camps, searchPrimary, opts.TopLimit),
		Series:         buildSeries(buckets, r, opts.Monthly, searchSeriesKeys),
		TotalCampaigns: len(camps),
	}
}

// AggregateMail rolls up direct-mail scan fact rows over the window.
func AggregateMail(rows []*models.MailFact, r Range, opts Options) Aggregate {
	var scans float64
	camps := make(map[string]*CampaignTotals)
	buckets := make(map[string]MetricSet)

	for _, row := range rows {
		if !r.Contains(row.Date) {
			continue
		}
		scans += float64(row.Scans)

		ct := campaignEntry(camps, row.CampaignID, row.CampaignName)
		ct.Values["scans"] += float64(row.Scans)

		b := bucketEntry(buckets, row.Date, opts.Monthly, mailSeriesKeys)
		b["scans"] += float64(row.Scans)
	}

	totals := MetricSet{"scans": scans}

	return Aggregate{
		Totals:         totals,
		TopCampaigns:   rankCampaigns(camps, mailPrimary, opts.TopLimit),
		Series:         buildSeries(buckets, r, opts.Monthly, mailSeriesKeys),
		TotalCampaigns: len(camps),
	}
}

// ratio guards division by zero: a zero denominator yields 0, never NaN or
// infinity.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// pct is ratio expressed as a percentage.
func pct(num, den float64) float64 {
	return ratio(num, den) * 100
}

func campaignEntry(m map[string]*CampaignTotals, id, name string) *CampaignTotals {
	ct, ok := m[id]
	if !ok {
		ct = &CampaignTotals{CampaignID: id, CampaignName: name, Values: make(MetricSet)}
		m[id] = ct
	}
	if ct.CampaignName == "" {
		ct.CampaignName = name
	}
	return ct
}

func bucketEntry(m map[string]MetricSet, t time.Time, monthly bool, keys []string) MetricSet {
	label := bucketLabel(t, monthly)
	b, ok := m[label]
	if !ok {
		b = zeroSet(keys)
		m[label] = b
	}
	return b
}

func bucketLabel(t time.Time, monthly bool) string {
	if monthly {
		return t.Format(monthLayout)
	}
	return t.Format(DateLayout)
}

func zeroSet(keys []string) MetricSet {
	m := make(MetricSet, len(keys))
	for _, k := range keys {
		m[k] = 0
	}
	return m
}

// rankCampaigns orders campaigns by the primary metric descending with ties
// broken by campaign ID ascending, so the ranking is deterministic regardless
// of input row order. The result is capped at limit entries.
func rankCampaigns(m map[string]*CampaignTotals, primary string, limit int) []CampaignTotals {
	list := make([]CampaignTotals, 0, len(m))
	for _, ct := range m {
		list = append(list, *ct)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].Values[primary], list[j].Values[primary]
		if a != b {
			return a > b
		}
		return list[i].CampaignID < list[j].CampaignID
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

// buildSeries zero-fills every bucket in the window and returns points in
// ascending date order.
func buildSeries(buckets map[string]MetricSet, r Range, monthly bool, keys []string) []TimeSeriesPoint {
	var labels []string
	if monthly {
		d := time.Date(r.Start.Year(), r.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
		last := time.Date(r.End.Year(), r.End.Month(), 1, 0, 0, 0, 0, time.UTC)
		for !d.After(last) {
			labels = append(labels, d.Format(monthLayout))
			d = d.AddDate(0, 1, 0)
		}
	} else {
		r.EachDay(func(d time.Time) {
			labels = append(labels, d.Format(DateLayout))
		})
	}

	points := make([]TimeSeriesPoint, 0, len(labels))
	for _, label := range labels {
		b, ok := buckets[label]
		if !ok {
			b = zeroSet(keys)
		}
		points = append(points, TimeSeriesPoint{Date: label, Values: b})
	}
	return points
}
