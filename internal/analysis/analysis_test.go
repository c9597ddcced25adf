package analysis

import (
	"math"
	"testing"
)

func TestPowerSpectrumSinusoid(t *testing.T) {
	n := 256
	cycles := 8.0
	data := make([]float64, n)
	for i := range data {
		// Offset checks the detrending: a constant must not bury the
		// oscillation in the zero bin's neighborhood.
		data[i] = 3.5 + math.Sin(2*math.Pi*cycles*float64(i)/float64(n))
	}

	ps := PowerSpectrum(data)
	if len(ps) != n/2 {
		t.Fatalf("spectrum has %d bins, want %d", len(ps), n/2)
	}

	peak := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > ps[peak] {
			peak = i
		}
	}
	if peak != int(cycles) {
		t.Errorf("spectral peak at bin %d, want %d", peak, int(cycles))
	}
}

func TestPowerSpectrumPadsOddLength(t *testing.T) {
	data := make([]float64, 300)
	for i := range data {
		data[i] = math.Cos(float64(i) / 7)
	}

	ps := PowerSpectrum(data)
	// 300 samples pad to 512.
	if len(ps) != 256 {
		t.Fatalf("spectrum has %d bins, want 256", len(ps))
	}
	for i, v := range ps {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("bin %d is not finite: %v", i, v)
		}
	}

	if PowerSpectrum(nil) != nil {
		t.Error("empty input should yield nil spectrum")
	}
}

func TestDominantFrequency(t *testing.T) {
	n := 256
	dt := 0.01
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 5.0 * float64(i) * dt)
	}

	ps := PowerSpectrum(data)
	freq := DominantFrequency(ps, dt)
	// Bin resolution is 1/(n*dt) cycles per unit.
	if math.Abs(freq-5.0) > 1.0/(float64(n)*dt) {
		t.Errorf("dominant frequency = %f, want about 5", freq)
	}

	if DominantFrequency(nil, dt) != 0 || DominantFrequency(ps, 0) != 0 {
		t.Error("degenerate inputs should yield 0")
	}
}

func TestAnalyzeEvents_Periodic(t *testing.T) {
	times := []float64{1, 2, 3, 4, 5}
	stats := AnalyzeEvents(times, 5)

	if stats.Count != 5 {
		t.Errorf("count = %d", stats.Count)
	}
	if math.Abs(stats.Rate-1.0) > 1e-12 {
		t.Errorf("rate = %f, want 1", stats.Rate)
	}
	if math.Abs(stats.MeanInterval-1.0) > 1e-12 || math.Abs(stats.MinInterval-1.0) > 1e-12 {
		t.Errorf("intervals: mean=%f min=%f", stats.MeanInterval, stats.MinInterval)
	}
	if stats.ZenoSuspected {
		t.Error("periodic events flagged as Zeno")
	}
}

func TestAnalyzeEvents_Geometric(t *testing.T) {
	// Intervals halving each time, as with a restitution-damped bounce.
	times := []float64{0}
	dt := 0.8
	for i := 0; i < 8; i++ {
		times = append(times, times[len(times)-1]+dt)
		dt *= 0.5
	}

	stats := AnalyzeEvents(times, 2)
	if !stats.ZenoSuspected {
		t.Error("geometric accumulation not flagged")
	}
	if math.Abs(stats.ShrinkRatio-0.5) > 1e-6 {
		t.Errorf("shrink ratio = %f, want 0.5", stats.ShrinkRatio)
	}
}

func TestAnalyzeEvents_Sparse(t *testing.T) {
	stats := AnalyzeEvents(nil, 10)
	if stats.Count != 0 || stats.ZenoSuspected {
		t.Errorf("empty sequence: %+v", stats)
	}

	stats = AnalyzeEvents([]float64{3.2}, 10)
	if stats.Count != 1 || stats.MeanInterval != 0 {
		t.Errorf("single event: %+v", stats)
	}
}
