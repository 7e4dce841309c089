// Package threshold implements Otsu's between-class variance threshold over
// 8-bit quantized samples.
package threshold

import "math"

// Bins is the histogram resolution.
const Bins = 256

// Histogram counts samples into 256 bins. Samples are expected on the 0..255
// scale; each is floored and clamped.
func Histogram(samples []float64) [Bins]int {
	var h [Bins]int
	for _, v := range samples {
		h[quantize(v)]++
	}
	return h
}

func quantize(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= Bins-1 {
		return Bins - 1
	}
	return int(v)
}

// FromHistogram returns the cut k maximizing w_b*w_f*(m_b-m_f)^2, where the
// background holds bins <= k. Ties keep the smallest k. ok is false when no k
// splits the histogram into two non-empty classes.
func FromHistogram(h [Bins]int) (k int, ok bool) {
	var total, sumAll float64
	for i, c := range h {
		total += float64(c)
		sumAll += float64(i) * float64(c)
	}

	var wB, sumB float64
	best := -1.0
	for t := range Bins {
		wB += float64(h[t])
		sumB += float64(t) * float64(h[t])
		wF := total - wB
		if wB == 0 || wF == 0 {
			continue
		}
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		criteria := wB * wF * (mB - mF) * (mB - mF)
		if criteria > best {
			best = criteria
			k = t
			ok = true
		}
	}
	return k, ok
}

// Otsu computes the threshold of samples. Constant or empty input has no
// valid split and yields 0.
func Otsu(samples []float64) int {
	k, _ := FromHistogram(Histogram(samples))
	return k
}

// Binarize maps samples whose bin lies strictly above t to 1 and the rest to
// 0, matching the class split FromHistogram scores.
func Binarize(samples []float64, t int) []uint8 {
	out := make([]uint8, len(samples))
	for i, v := range samples {
		if quantize(v) > t {
			out[i] = 1
		}
	}
	return out
}
