package analysis

import (
	"math"
	"math/cmplx"
)

// PowerSpectrum computes the magnitude spectrum of one state component
// of a run trace. The samples are mean-detrended and zero-padded to
// the next power of two, so a raw trajectory column can be passed
// directly. The result holds the non-negative frequency bins.
func PowerSpectrum(samples []float64) []float64 {
	n := nextPow2(len(samples))
	if n < 2 {
		return nil
	}

	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(len(samples))

	buf := make([]complex128, n)
	for i, v := range samples {
		buf[i] = complex(v-mean, 0)
	}
	fft(buf)

	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(buf[i])
	}
	return ps
}

// DominantFrequency returns the frequency, in cycles per time unit, of
// the strongest bin in a spectrum produced by PowerSpectrum, given the
// sample spacing dt. The zero bin is skipped since the input was
// detrended. Returns 0 when no meaningful peak exists.
func DominantFrequency(ps []float64, dt float64) float64 {
	if len(ps) < 2 || dt <= 0 {
		return 0
	}
	peak := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[peak] {
			peak = i
		}
	}
	if ps[peak] == 0 {
		return 0
	}
	return float64(peak) / (float64(2*len(ps)) * dt)
}

// fft is an in-place iterative radix-2 transform. len(buf) must be a
// power of two.
func fft(buf []complex128) {
	n := len(buf)

	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j |= bit
		if i < j {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		step := cmplx.Exp(complex(0, -2*math.Pi/float64(size)))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := start; k < start+size/2; k++ {
				u, v := buf[k], buf[k+size/2]*w
				buf[k] = u + v
				buf[k+size/2] = u - v
				w *= step
			}
		}
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
