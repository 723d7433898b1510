package pattern

import (
	"sort"
	"time"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// Readings needed for full energy confidence.
const fullConfidenceReadings = 10.0

// Hours within this fraction of the best hourly average count as peak hours.
const peakEnergyRatio = 0.9

type energyResult struct {
	hourlyAverage map[int]float64
	peakHours     []int
	confidence    float64
}

func analyzeEnergy(events []behavior.HistoryEvent, current behavior.Energy, now time.Time) energyResult {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	readings := 0

	record := func(hour int, e behavior.Energy) {
		level, ok := e.Level()
		if !ok {
			return
		}
		sums[hour] += level
		counts[hour]++
		readings++
	}
	for _, e := range events {
		record(e.Timestamp.Hour(), e.Energy)
	}
	record(now.Hour(), current)

	res := energyResult{hourlyAverage: make(map[int]float64, len(sums))}
	if readings == 0 {
		return res
	}

	best := 0.0
	for hour, sum := range sums {
		avg := sum / float64(counts[hour])
		res.hourlyAverage[hour] = avg
		best = max(best, avg)
	}
	for hour, avg := range res.hourlyAverage {
		if avg >= best*peakEnergyRatio {
			res.peakHours = append(res.peakHours, hour)
		}
	}
	sort.Ints(res.peakHours)

	res.confidence = behavior.Clamp01(float64(readings) / fullConfidenceReadings)
	return res
}
