package analytics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSeriesPointJSONShape(t *testing.T) {
	p := TimeSeriesPoint{
		Date:   "2025-06-01",
		Values: MetricSet{"opens": 40, "delivered": 100, "clicks": 4},
	}

	b, err := json.Marshal(p)
	require.NoError(t, err)

	// Metric keys are flattened next to the date, in sorted order.
	assert.Equal(t, `{"date":"2025-06-01","clicks":4,"delivered":100,"opens":40}`, string(b))
}

func TestCampaignTotalsJSONShape(t *testing.T) {
	c := CampaignTotals{
		CampaignID:   "c-1",
		CampaignName: "June Promo",
		Values:       MetricSet{"opens": 5655, "openRate": 37.5},
	}

	b, err := json.Marshal(c)
	require.NoError(t, err)

	assert.Equal(t, `{"campaignId":"c-1","campaignName":"June Promo","openRate":37.5,"opens":5655}`, string(b))
}

func TestOverviewReportNullChannels(t *testing.T) {
	report := OverviewReport{
		ClientID: "client-1",
		From:     "2025-06-01",
		To:       "2025-06-30",
		Email:    &ChannelReport{Channel: "email", AccountID: "acc-1"},
	}

	b, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &decoded))

	// Failed or unbound channels serialize as explicit nulls, not omissions.
	for _, key := range []string{"directMail", "paidSocial", "paidSearch"} {
		raw, ok := decoded[key]
		require.True(t, ok, key)
		assert.Equal(t, "null", string(raw))
	}
	assert.NotEqual(t, "null", string(decoded["email"]))
}
