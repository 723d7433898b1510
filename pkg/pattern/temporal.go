package pattern

import (
	"sort"
	"time"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// Minimum compliance spread across buckets before a temporal pattern is reported.
const (
	hourSpreadThreshold    = 0.2
	weekdaySpreadThreshold = 0.15
	maxReportedBuckets     = 3
	fullConfidenceEvents   = 20.0
)

type temporalResult struct {
	activity         map[int]int
	hourlyCompliance map[int]float64
	domainHours      map[behavior.Domain][]int
	bestDays         []time.Weekday
	confidence       float64
}

func (a *Analyzer) analyzeTemporal(events []behavior.HistoryEvent) temporalResult {
	res := temporalResult{
		activity:         make(map[int]int),
		hourlyCompliance: make(map[int]float64),
		domainHours:      make(map[behavior.Domain][]int),
	}

	hourly := make(map[int]*bucket)
	daily := make(map[int]*bucket)
	perDomain := make(map[behavior.Domain]map[int]*bucket)

	for _, e := range events {
		hour := e.Timestamp.Hour()
		res.activity[hour]++
		if !e.Rated() {
			continue
		}
		tally(hourly, hour).add(*e.Complied)
		tally(daily, int(e.Timestamp.Weekday())).add(*e.Complied)
		if perDomain[e.Domain] == nil {
			perDomain[e.Domain] = make(map[int]*bucket)
		}
		tally(perDomain[e.Domain], hour).add(*e.Complied)
	}

	for hour, b := range hourly {
		if b.total >= a.minSamples {
			res.hourlyCompliance[hour] = b.rate()
		}
	}

	for domain, buckets := range perDomain {
		if hours := a.significant(buckets, hourSpreadThreshold); len(hours) > 0 {
			res.domainHours[domain] = hours
		}
	}

	for _, day := range a.significant(daily, weekdaySpreadThreshold) {
		res.bestDays = append(res.bestDays, time.Weekday(day))
	}

	res.confidence = behavior.Clamp01(float64(len(events)) / fullConfidenceEvents)
	return res
}

// significant returns the best-performing bucket keys, highest compliance first,
// when at least two buckets clear the sample floor and their spread exceeds threshold.
func (a *Analyzer) significant(buckets map[int]*bucket, threshold float64) []int {
	var keys []int
	lo, hi := 1.0, 0.0
	for k, b := range buckets {
		if b.total < a.minSamples {
			continue
		}
		keys = append(keys, k)
		r := b.rate()
		lo = min(lo, r)
		hi = max(hi, r)
	}
	if len(keys) < 2 || hi-lo <= threshold {
		return nil
	}

	sort.Slice(keys, func(i, j int) bool {
		ri, rj := buckets[keys[i]].rate(), buckets[keys[j]].rate()
		if ri != rj {
			return ri > rj
		}
		return keys[i] < keys[j]
	})
	if len(keys) > maxReportedBuckets {
		keys = keys[:maxReportedBuckets]
	}
	return keys
}

func tally(m map[int]*bucket, key int) *bucket {
	b, ok := m[key]
	if !ok {
		b = &bucket{}
		m[key] = b
	}
	return b
}
