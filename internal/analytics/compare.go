package analytics

// PercentChange computes the year-over-year movement of one metric. A zero
// prior is special-cased so the result is never NaN or infinity: 0 -> 0 is
// no change, 0 -> N is reported as a full 100% increase.
func PercentChange(current, prior float64) float64 {
	if prior == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (current - prior) / prior * 100
}

// ComparePeriods produces the per-metric delta between two aggregation
// outputs over the same metric set. Metrics present in only one period are
// compared against zero.
func ComparePeriods(current, prior MetricSet) map[string]Delta {
	out := make(map[string]Delta, len(current))
	for name, cur := range current {
		prev := prior[name]
		out[name] = Delta{
			Delta:         cur - prev,
			PercentChange: PercentChange(cur, prev),
		}
	}
	for name, prev := range prior {
		if _, ok := current[name]; ok {
			continue
		}
		out[name] = Delta{
			Delta:         -prev,
			PercentChange: PercentChange(0, prev),
		}
	}
	return out
}
