package compare

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/trailpeak/trackmatch/internal/lib/profile"
	"github.com/trailpeak/trackmatch/internal/lib/smoothing"
	"github.com/trailpeak/trackmatch/internal/lib/tolerance"
	"github.com/trailpeak/trackmatch/internal/lib/track"
)

// Options configures a comparison run.
type Options struct {
	// ToleranceKm is the conformance threshold in kilometers.
	ToleranceKm float64
	// Method selects the tolerance matcher.
	Method tolerance.Method
	// IncludeElevation folds elevation deltas into tolerance distances.
	IncludeElevation bool
	// Sync selects the synchronization strategy.
	Sync SyncMethod
	// Smoother, when set, is applied to each track's elevation series before
	// synchronization.
	Smoother smoothing.Smoother
}

func (o Options) validate() error {
	if o.ToleranceKm < 0 {
		return fmt.Errorf("%w: tolerance must be non-negative, got %f", profile.ErrInvalidInput, o.ToleranceKm)
	}
	switch o.Sync {
	case SyncElevation, SyncStart, SyncInterpolate, SyncAlign:
	default:
		return fmt.Errorf("%w: unknown sync method %q", profile.ErrInvalidInput, o.Sync)
	}
	switch o.Method {
	case tolerance.MethodDirect, tolerance.MethodKDTree:
	default:
		return fmt.Errorf("%w: unknown tolerance method %q", profile.ErrInvalidInput, o.Method)
	}
	return nil
}

// Report summarizes a comparison run. Base and Comparison carry the
// synchronized profiles so callers can render or export them.
type Report struct {
	BasePoints           int
	ComparisonPoints     int
	BaseDistanceKm       float64
	ComparisonDistanceKm float64

	// ShiftKm is the distance-axis offset applied by elevation sync; zero for
	// the other sync methods.
	ShiftKm float64

	// Conformance is one entry per comparison point; true when the point lies
	// within tolerance of the base track.
	Conformance     []bool
	WithinTolerance int
	ConformanceRate float64

	BaseElevation       *profile.Stats
	ComparisonElevation *profile.Stats
	BaseAscent          profile.AscentStats

	Base       *profile.ElevationProfile
	Comparison *profile.ElevationProfile
}

// Service runs track comparisons.
type Service struct {
	opts   Options
	logger zerolog.Logger
}

// NewService creates a comparison service with the given options.
func NewService(opts Options, logger zerolog.Logger) (*Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Service{opts: opts, logger: logger}, nil
}

// Compare synchronizes the comparison track against the base track, matches
// the synchronized profiles with the configured tolerance method, and
// summarizes the outcome.
func (s *Service) Compare(ctx context.Context, base, comparison *track.Track) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := s.smoothed(base)
	if err != nil {
		return nil, fmt.Errorf("failed to smooth base track: %w", err)
	}
	comparison, err = s.smoothed(comparison)
	if err != nil {
		return nil, fmt.Errorf("failed to smooth comparison track: %w", err)
	}

	s.logger.Debug().
		Str("sync", string(s.opts.Sync)).
		Str("method", string(s.opts.Method)).
		Float64("tolerance_km", s.opts.ToleranceKm).
		Int("base_points", base.Len()).
		Int("comparison_points", comparison.Len()).
		Msg("comparing tracks")

	baseProfile, comparisonProfile, shiftKm, err := s.synchronize(base, comparison)
	if err != nil {
		return nil, err
	}

	vector, err := s.match(baseProfile, comparisonProfile)
	if err != nil {
		return nil, err
	}

	report := &Report{
		BasePoints:           baseProfile.Len(),
		ComparisonPoints:     comparisonProfile.Len(),
		BaseDistanceKm:       baseProfile.TotalDistance(),
		ComparisonDistanceKm: comparisonProfile.TotalDistance(),
		ShiftKm:              shiftKm,
		Conformance:          vector,
		Base:                 baseProfile,
		Comparison:           comparisonProfile,
		BaseAscent:           baseProfile.ElevationDeltas(),
	}
	for _, within := range vector {
		if within {
			report.WithinTolerance++
		}
	}
	if len(vector) > 0 {
		report.ConformanceRate = float64(report.WithinTolerance) / float64(len(vector))
	}

	if stats, err := baseProfile.ElevationStats(); err == nil {
		report.BaseElevation = &stats
	} else if !errors.Is(err, profile.ErrNoElevationData) {
		return nil, err
	}
	if stats, err := comparisonProfile.ElevationStats(); err == nil {
		report.ComparisonElevation = &stats
	} else if !errors.Is(err, profile.ErrNoElevationData) {
		return nil, err
	}

	s.logger.Info().
		Int("within_tolerance", report.WithinTolerance).
		Int("comparison_points", report.ComparisonPoints).
		Float64("conformance_rate", report.ConformanceRate).
		Float64("shift_km", report.ShiftKm).
		Msg("comparison complete")

	return report, nil
}

// smoothed returns a copy of the track with its elevation series smoothed
// against the cumulative distance axis, or the track unchanged when no
// smoother is configured.
func (s *Service) smoothed(t *track.Track) (*track.Track, error) {
	if s.opts.Smoother == nil {
		return t, nil
	}

	p, err := t.Profile()
	if err != nil {
		return nil, err
	}
	elevations := p.Elevations()
	for i, e := range elevations {
		if math.IsNaN(e) {
			return nil, fmt.Errorf("%w: point %d has no elevation", profile.ErrNoElevationData, i)
		}
	}

	smoothedElevs, err := s.opts.Smoother.Smooth(p.Distances(), elevations)
	if err != nil {
		return nil, err
	}

	smoothedTrack := t.Copy()
	if err := smoothedTrack.SetElevations(smoothedElevs); err != nil {
		return nil, err
	}
	return smoothedTrack, nil
}

// synchronize dispatches to the configured sync strategy and returns the
// profiles to match, plus the distance-axis shift when one was applied.
func (s *Service) synchronize(base, comparison *track.Track) (*profile.ElevationProfile, *profile.ElevationProfile, float64, error) {
	switch s.opts.Sync {
	case SyncElevation:
		return ElevationSync(base, comparison)

	case SyncStart:
		trimmedBase, trimmedComparison, err := StartSync(base, comparison, s.opts.ToleranceKm)
		if err != nil {
			return nil, nil, 0, err
		}
		baseProfile, err := trimmedBase.Profile()
		if err != nil {
			return nil, nil, 0, err
		}
		comparisonProfile, err := trimmedComparison.Profile()
		if err != nil {
			return nil, nil, 0, err
		}
		return baseProfile, comparisonProfile, 0, nil

	case SyncInterpolate:
		baseProfile, comparisonProfile, err := InterpolateElevations(base, comparison)
		if err != nil {
			return nil, nil, 0, err
		}
		return baseProfile, comparisonProfile, 0, nil

	case SyncAlign:
		alignedBase, alignedComparison, err := track.AlignEndpoints(base, comparison, s.opts.ToleranceKm)
		if err != nil {
			return nil, nil, 0, err
		}
		resampled, err := track.InterpolateToMatchPoints(alignedComparison, alignedBase)
		if err != nil {
			return nil, nil, 0, err
		}
		baseProfile, err := alignedBase.Profile()
		if err != nil {
			return nil, nil, 0, err
		}
		comparisonProfile, err := resampled.Profile()
		if err != nil {
			return nil, nil, 0, err
		}
		return baseProfile, comparisonProfile, 0, nil

	default:
		return nil, nil, 0, fmt.Errorf("%w: unknown sync method %q", profile.ErrInvalidInput, s.opts.Sync)
	}
}

// match produces the conformance vector for the synchronized profiles. The
// aligned sync strategy yields index-correspondent profiles, so the direct
// method compares pairwise; the other strategies fall back to
// nearest-on-axis correspondence.
func (s *Service) match(base, comparison *profile.ElevationProfile) ([]bool, error) {
	opts := tolerance.Options{
		ToleranceKm:      s.opts.ToleranceKm,
		IncludeElevation: s.opts.IncludeElevation,
	}

	switch s.opts.Method {
	case tolerance.MethodKDTree:
		// Tree over the base profile, one answer per comparison point.
		return tolerance.MatchKDTree(comparison, base, opts)
	default:
		if s.opts.Sync == SyncAlign {
			return tolerance.MatchAligned(base, comparison, opts)
		}
		return tolerance.MatchNearestOnAxis(base, comparison, opts.ToleranceKm)
	}
}
