package smoothing

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Spline smooths a series by fitting a natural cubic spline through a reduced
// set of evenly spaced knots, each knot taking the average of the samples in
// its bucket. Fewer knots give a smoother curve.
type Spline struct {
	// Knots is the number of control points the spline passes through.
	Knots int
}

// NewSpline returns a Spline smoother with 25 knots.
func NewSpline() *Spline {
	return &Spline{Knots: 25}
}

// Smooth fits the spline and re-evaluates it at the original xs. The xs must
// be in ascending order.
func (s *Spline) Smooth(xs, ys []float64) ([]float64, error) {
	n := len(xs)
	if len(ys) != n {
		return nil, fmt.Errorf("%w: %d xs vs %d ys", ErrLengthMismatch, n, len(ys))
	}
	if n < 3 {
		return nil, fmt.Errorf("%w: at least 3 points required, got %d", ErrInvalidInput, n)
	}
	if xs[n-1] <= xs[0] {
		return nil, fmt.Errorf("%w: xs must span an increasing range", ErrInvalidInput)
	}

	knots := s.Knots
	if knots < 3 {
		knots = 3
	}
	if knots > n {
		knots = n
	}

	knotXs, knotYs := averagedKnots(xs, ys, knots)

	var cubic interp.NaturalCubic
	if err := cubic.Fit(knotXs, knotYs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	smoothed := make([]float64, n)
	for i, x := range xs {
		smoothed[i] = cubic.Predict(x)
	}
	return smoothed, nil
}

// averagedKnots divides the x range into evenly sized buckets and collapses
// each bucket to a single knot at the mean of its samples. Anchoring the knot
// at the bucket's mean x keeps a sloped series free of systematic offset.
// Empty buckets sit at their nominal center with a y interpolated from the
// nearest populated neighbors so the fit stays defined.
func averagedKnots(xs, ys []float64, knots int) ([]float64, []float64) {
	lo, hi := xs[0], xs[len(xs)-1]
	step := (hi - lo) / float64(knots)

	knotXs := make([]float64, knots)
	knotYs := make([]float64, knots)
	counts := make([]int, knots)

	for i, x := range xs {
		k := int((x - lo) / step)
		if k < 0 {
			k = 0
		}
		if k >= knots {
			k = knots - 1
		}
		knotXs[k] += x
		knotYs[k] += ys[i]
		counts[k]++
	}

	for k := range knotYs {
		if counts[k] > 0 {
			knotXs[k] /= float64(counts[k])
			knotYs[k] /= float64(counts[k])
		} else {
			knotXs[k] = lo + (float64(k)+0.5)*step
		}
	}

	// Fill empty buckets by linear interpolation between the nearest
	// populated neighbors.
	for k := range knotYs {
		if counts[k] > 0 {
			continue
		}
		prev := k - 1
		for prev >= 0 && counts[prev] == 0 {
			prev--
		}
		next := k + 1
		for next < knots && counts[next] == 0 {
			next++
		}
		switch {
		case prev >= 0 && next < knots:
			t := (knotXs[k] - knotXs[prev]) / (knotXs[next] - knotXs[prev])
			knotYs[k] = knotYs[prev] + t*(knotYs[next]-knotYs[prev])
		case prev >= 0:
			knotYs[k] = knotYs[prev]
		case next < knots:
			knotYs[k] = knotYs[next]
		}
	}

	return knotXs, knotYs
}
