package pattern

import "sort"

// AvoidHours returns hours whose activity is at most 20% of the average
// non-zero hourly activity. Hours missing from the map count as idle.
func AvoidHours(hourCounts map[int]int) []int {
	total := 0
	nonZeroHours := 0
	for _, count := range hourCounts {
		if count > 0 {
			total += count
			nonZeroHours++
		}
	}
	if nonZeroHours == 0 {
		return nil
	}

	quietThreshold := float64(total) / float64(nonZeroHours) * 0.2

	var quiet []int
	for hour := range 24 {
		if float64(hourCounts[hour]) <= quietThreshold {
			quiet = append(quiet, hour)
		}
	}
	return quiet
}

// PeakHours returns up to n hours with the most activity. Ties go to the earlier hour.
func PeakHours(hourCounts map[int]int, n int) []int {
	hours := make([]int, 0, len(hourCounts))
	for hour, count := range hourCounts {
		if count > 0 {
			hours = append(hours, hour)
		}
	}
	sort.Slice(hours, func(i, j int) bool {
		if hourCounts[hours[i]] != hourCounts[hours[j]] {
			return hourCounts[hours[i]] > hourCounts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}
