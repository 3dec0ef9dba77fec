// Package smoothing denoises elevation series before comparison. Concrete
// smoothers implement a single capability: transform an ordered series into
// an equally long, smoother series. Callers select a variant by explicit
// configuration.
package smoothing

import "errors"

var (
	// ErrInvalidInput indicates a series too short or malformed to smooth.
	ErrInvalidInput = errors.New("smoothing: invalid input")
	// ErrLengthMismatch indicates xs and ys have different lengths.
	ErrLengthMismatch = errors.New("smoothing: length mismatch")
)

// Smoother produces a smoothed copy of ys sampled at xs. Implementations
// must return a series of the same length as the input and must not mutate
// either argument.
type Smoother interface {
	Smooth(xs, ys []float64) ([]float64, error)
}
