package smoothing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Loess implements locally weighted scatterplot smoothing: a quadratic
// polynomial is fit to a tricube-weighted neighborhood of each point, with
// Tukey-biweight robustness iterations to damp outliers.
type Loess struct {
	// Window is the fraction of the series used as each point's neighborhood.
	Window float64
	// Iterations is the number of robustness passes.
	Iterations int
}

// NewLoess returns a Loess smoother with the standard window fraction (0.1)
// and two robustness iterations.
func NewLoess() *Loess {
	return &Loess{Window: 0.1, Iterations: 2}
}

// Smooth applies LOESS to ys sampled at xs.
func (l *Loess) Smooth(xs, ys []float64) ([]float64, error) {
	n := len(xs)
	if len(ys) != n {
		return nil, fmt.Errorf("%w: %d xs vs %d ys", ErrLengthMismatch, n, len(ys))
	}
	if n < 3 {
		return nil, fmt.Errorf("%w: at least 3 points required, got %d", ErrInvalidInput, n)
	}
	if l.Window <= 0 || l.Window > 1 {
		return nil, fmt.Errorf("%w: window fraction must be in (0, 1], got %f", ErrInvalidInput, l.Window)
	}

	windowSize := int(l.Window * float64(n))
	if windowSize < 3 {
		windowSize = 3
	}

	iterations := l.Iterations
	if iterations < 1 {
		iterations = 1
	}

	robust := make([]float64, n)
	for i := range robust {
		robust[i] = 1
	}

	smoothed := make([]float64, n)
	for pass := 0; pass < iterations; pass++ {
		for i := range xs {
			indices := neighborhood(xs, i, windowSize)
			weights := tricubeWeights(xs[i], xs, indices)
			for w, idx := range indices {
				weights[w] *= robust[idx]
			}
			smoothed[i] = fitQuadratic(xs[i], xs, ys, indices, weights)
		}

		if pass < iterations-1 {
			residuals := make([]float64, n)
			for i := range residuals {
				residuals[i] = ys[i] - smoothed[i]
			}
			robust = tukeyBiweights(residuals)
		}
	}

	return smoothed, nil
}

// neighborhood returns the indices of the windowSize points nearest to
// xs[center] along the x axis, in ascending index order.
func neighborhood(xs []float64, center, windowSize int) []int {
	indices := make([]int, len(xs))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool {
		da := math.Abs(xs[indices[a]] - xs[center])
		db := math.Abs(xs[indices[b]] - xs[center])
		if da == db {
			return indices[a] < indices[b]
		}
		return da < db
	})
	selected := indices[:windowSize]
	sort.Ints(selected)
	return selected
}

// tricubeWeights computes (1 - u^3)^3 with u the x distance normalized by the
// farthest neighbor. A degenerate window of identical x values weighs all
// points equally.
func tricubeWeights(x float64, xs []float64, indices []int) []float64 {
	weights := make([]float64, len(indices))
	var maxDist float64
	for _, idx := range indices {
		if d := math.Abs(x - xs[idx]); d > maxDist {
			maxDist = d
		}
	}
	if maxDist == 0 {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}
	for i, idx := range indices {
		u := math.Abs(x-xs[idx]) / maxDist
		w := 1 - u*u*u
		weights[i] = w * w * w
	}
	return weights
}

// tukeyBiweights maps residuals to robustness weights via Tukey's biweight
// function scaled by six median absolute deviations.
func tukeyBiweights(residuals []float64) []float64 {
	weights := make([]float64, len(residuals))

	absDev := make([]float64, len(residuals))
	med := median(residuals)
	for i, r := range residuals {
		absDev[i] = math.Abs(r - med)
	}
	mad := median(absDev)
	if mad == 0 {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}

	for i, r := range residuals {
		u := r / (6 * mad)
		if math.Abs(u) >= 1 {
			weights[i] = 0
			continue
		}
		w := 1 - u*u
		weights[i] = w * w
	}
	return weights
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// fitQuadratic solves the weighted least-squares fit of a second-degree
// polynomial over the selected neighborhood and evaluates it at x. A singular
// system (e.g. a vertical stack of identical x values) falls back to the
// weighted mean.
func fitQuadratic(x float64, xs, ys []float64, indices []int, weights []float64) float64 {
	// Accumulate the 3x3 normal equations X'WX b = X'Wy directly.
	var a [3][3]float64
	var b [3]float64
	for w, idx := range indices {
		xi := xs[idx]
		wi := weights[w]
		basis := [3]float64{1, xi, xi * xi}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				a[r][c] += wi * basis[r] * basis[c]
			}
			b[r] += wi * basis[r] * ys[idx]
		}
	}

	lhs := mat.NewDense(3, 3, []float64{
		a[0][0], a[0][1], a[0][2],
		a[1][0], a[1][1], a[1][2],
		a[2][0], a[2][1], a[2][2],
	})
	rhs := mat.NewVecDense(3, []float64{b[0], b[1], b[2]})

	var beta mat.VecDense
	if err := beta.SolveVec(lhs, rhs); err != nil {
		return weightedMean(ys, indices, weights)
	}

	return beta.AtVec(0) + beta.AtVec(1)*x + beta.AtVec(2)*x*x
}

func weightedMean(ys []float64, indices []int, weights []float64) float64 {
	var sum, total float64
	for w, idx := range indices {
		sum += weights[w] * ys[idx]
		total += weights[w]
	}
	if total == 0 {
		return ys[indices[0]]
	}
	return sum / total
}
