package analytics

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/thehashrocket/kirk-analytics/internal/models"
)

// MetricSet maps metric names to values. Counters are whole numbers, rates
// are percentages (0-100), money metrics are in dollars.
type MetricSet map[string]float64

// Delta is the year-over-year movement of a single metric.
type Delta struct {
	Delta         float64 `json:"delta"`
	PercentChange float64 `json:"percentChange"`
}

// PeriodMetrics carries the current window, the prior-year window and the
// per-metric comparison between the two.
type PeriodMetrics struct {
	Current      MetricSet        `json:"current"`
	PreviousYear MetricSet        `json:"previousYear"`
	YearOverYear map[string]Delta `json:"yearOverYear"`
}

// TimeSeriesPoint is one calendar bucket (day or month) of a fixed metric
// subset, used to drive chart rendering.
type TimeSeriesPoint struct {
	Date   string
	Values MetricSet
}

// MarshalJSON flattens the point into {date, <metric fields>} with metric
// keys in sorted order so payloads are byte-stable.
func (p TimeSeriesPoint) MarshalJSON() ([]byte, error) {
	return flattenJSON([]jsonField{{"date", p.Date}}, p.Values)
}

// CampaignTotals is one campaign's summed metrics within a window.
type CampaignTotals struct {
	CampaignID   string
	CampaignName string
	Values       MetricSet
}

// MarshalJSON flattens the campaign into {campaignId, campaignName,
// <metric fields>} with metric keys in sorted order.
func (c CampaignTotals) MarshalJSON() ([]byte, error) {
	return flattenJSON([]jsonField{
		{"campaignId", c.CampaignID},
		{"campaignName", c.CampaignName},
	}, c.Values)
}

// Aggregate is the result of rolling up one channel's fact rows over one
// window. Derived on each request, never persisted.
type Aggregate struct {
	Totals         MetricSet
	TopCampaigns   []CampaignTotals
	Series         []TimeSeriesPoint
	TotalCampaigns int
}

// ChannelReport is the full single-channel response payload.
type ChannelReport struct {
	Channel        models.Channel    `json:"channel"`
	AccountID      string            `json:"accountId"`
	Metrics        PeriodMetrics     `json:"metrics"`
	TimeSeriesData []TimeSeriesPoint `json:"timeSeriesData"`
	TopCampaigns   []CampaignTotals  `json:"topCampaigns"`
	TotalCampaigns int               `json:"totalCampaigns"`
}

// OverviewReport merges per-channel reports for one client. Channels appear
// in a fixed order; a channel that failed or has no bound account is null.
// Channels flags which channels carry data so clients need not null-check
// each entry.
type OverviewReport struct {
	ClientID       string          `json:"clientId"`
	From           string          `json:"from"`
	To             string          `json:"to"`
	Email          *ChannelReport  `json:"email"`
	DirectMail     *ChannelReport  `json:"directMail"`
	PaidSocial     *ChannelReport  `json:"paidSocial"`
	PaidSearch     *ChannelReport  `json:"paidSearch"`
	Channels       map[string]bool `json:"channels"`
	TotalSpend     float64         `json:"totalSpend"`
	TotalCampaigns int             `json:"totalCampaigns"`
}

type jsonField struct {
	key   string
	value string
}

func flattenJSON(fixed []jsonField, values MetricSet) ([]byte, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fixed {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONKey(&buf, f.key)
		s, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(s)
	}
	for _, k := range keys {
		buf.WriteByte(',')
		writeJSONKey(&buf, k)
		v, err := json.Marshal(values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONKey(buf *bytes.Buffer, key string) {
	k, _ := json.Marshal(key)
	buf.Write(k)
	buf.WriteByte(':')
}
