package analysis

import "math"

// EventStats summarizes a sequence of event times.
type EventStats struct {
	Count         int
	Rate          float64 // events per unit time over the observed span
	MeanInterval  float64
	MinInterval   float64
	ShrinkRatio   float64 // geometric ratio of successive intervals
	ZenoSuspected bool
}

// AnalyzeEvents computes interval statistics for the event times of a
// run spanning the given duration. A shrink ratio well below one over
// several events marks a geometrically accumulating (Zeno-like)
// sequence.
func AnalyzeEvents(times []float64, duration float64) EventStats {
	stats := EventStats{Count: len(times), MinInterval: math.Inf(1)}
	if duration > 0 {
		stats.Rate = float64(len(times)) / duration
	}
	if len(times) < 2 {
		stats.MinInterval = 0
		return stats
	}

	intervals := make([]float64, 0, len(times)-1)
	sum := 0.0
	for i := 1; i < len(times); i++ {
		dt := times[i] - times[i-1]
		intervals = append(intervals, dt)
		sum += dt
		if dt < stats.MinInterval {
			stats.MinInterval = dt
		}
	}
	stats.MeanInterval = sum / float64(len(intervals))

	// Geometric mean of successive interval ratios.
	if len(intervals) >= 2 {
		logSum := 0.0
		n := 0
		for i := 1; i < len(intervals); i++ {
			if intervals[i-1] > 0 && intervals[i] > 0 {
				logSum += math.Log(intervals[i] / intervals[i-1])
				n++
			}
		}
		if n > 0 {
			stats.ShrinkRatio = math.Exp(logSum / float64(n))
			stats.ZenoSuspected = n >= 3 && stats.ShrinkRatio < 0.9
		}
	}
	return stats
}
