package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		prior   float64
		want    float64
	}{
		{"growth", 150, 100, 50},
		{"decline", 50, 100, -50},
		{"flat", 100, 100, 0},
		{"both zero", 0, 0, 0},
		{"from zero", 50, 0, 100},
		{"to zero", 0, 50, -100},
		{"fractional", 1, 3, -66.66666666666666},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PercentChange(tt.current, tt.prior), 1e-9)
		})
	}
}

func TestComparePeriodsUnionOfKeys(t *testing.T) {
	current := MetricSet{"opens": 200, "clicks": 20}
	prior := MetricSet{"opens": 100, "bounces": 5}

	deltas := ComparePeriods(current, prior)

	assert.Len(t, deltas, 3)
	assert.InDelta(t, 100.0, deltas["opens"].PercentChange, 1e-9)
	assert.InDelta(t, 100.0, deltas["opens"].Delta, 1e-9)

	// clicks only in current: prior is treated as zero
	assert.InDelta(t, 100.0, deltas["clicks"].PercentChange, 1e-9)
	assert.InDelta(t, 20.0, deltas["clicks"].Delta, 1e-9)

	// bounces only in prior: dropped to zero
	assert.InDelta(t, -100.0, deltas["bounces"].PercentChange, 1e-9)
	assert.InDelta(t, -5.0, deltas["bounces"].Delta, 1e-9)
}

func TestComparePeriodsEmpty(t *testing.T) {
	deltas := ComparePeriods(MetricSet{}, MetricSet{})
	assert.Empty(t, deltas)
}
