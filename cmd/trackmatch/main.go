package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/trailpeak/trackmatch/internal/clients/elevation"
	"github.com/trailpeak/trackmatch/internal/compare"
	"github.com/trailpeak/trackmatch/internal/config"
	"github.com/trailpeak/trackmatch/internal/lib/kmlreport"
	"github.com/trailpeak/trackmatch/internal/lib/smoothing"
	"github.com/trailpeak/trackmatch/internal/lib/tolerance"
	"github.com/trailpeak/trackmatch/internal/lib/track"
	"github.com/trailpeak/trackmatch/internal/trackio"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML configuration file")
		basePath    = flag.String("base", "", "path to the base track (.gpx or .kml)")
		comparePath = flag.String("comparison", "", "path to the comparison track (.gpx or .kml)")
		useAPI      = flag.Bool("use-api", false, "compare against API elevations for the base track instead of a second file")
		tolKm       = flag.Float64("tolerance", -1, "tolerance in km (overrides config)")
		syncMethod  = flag.String("sync", "", "sync method (overrides config)")
		kmlOut      = flag.String("kml", "", "write a KML report to this path (overrides config)")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}

	if err := run(logger, *configPath, *basePath, *comparePath, *useAPI, *tolKm, *syncMethod, *kmlOut); err != nil {
		logger.Fatal().Err(err).Msg("comparison failed")
	}
}

func run(logger zerolog.Logger, configPath, basePath, comparePath string, useAPI bool, tolKm float64, syncMethod, kmlOut string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if tolKm >= 0 {
		cfg.Comparison.ToleranceKm = tolKm
	}
	if syncMethod != "" {
		cfg.Comparison.Sync = syncMethod
	}
	if kmlOut != "" {
		cfg.Output.KMLPath = kmlOut
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if basePath == "" {
		return fmt.Errorf("a base track is required (-base)")
	}
	if comparePath == "" && !useAPI {
		return fmt.Errorf("a comparison source is required (-comparison or -use-api)")
	}

	ctx := context.Background()

	base, err := trackio.FromFile(basePath)
	if err != nil {
		return fmt.Errorf("failed to load base track: %w", err)
	}
	logger.Info().Str("path", basePath).Int("points", base.Len()).Msg("loaded base track")

	comparison, err := loadComparison(ctx, logger, cfg, base, comparePath, useAPI)
	if err != nil {
		return err
	}

	smoother, err := buildSmoother(cfg.Smoothing)
	if err != nil {
		return err
	}

	svc, err := compare.NewService(compare.Options{
		ToleranceKm:      cfg.Comparison.ToleranceKm,
		Method:           tolerance.Method(cfg.Comparison.Method),
		IncludeElevation: cfg.Comparison.IncludeElevation,
		Sync:             compare.SyncMethod(cfg.Comparison.Sync),
		Smoother:         smoother,
	}, logger)
	if err != nil {
		return err
	}

	report, err := svc.Compare(ctx, base, comparison)
	if err != nil {
		return err
	}

	printReport(report)

	if cfg.Output.KMLPath != "" {
		if err := writeKMLReport(cfg.Output.KMLPath, report); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.Output.KMLPath).Msg("wrote KML report")
	}
	return nil
}

// loadComparison loads the second track from a file, or derives it from the
// base track with API elevations when -use-api is set.
func loadComparison(ctx context.Context, logger zerolog.Logger, cfg config.Config, base *track.Track, comparePath string, useAPI bool) (*track.Track, error) {
	if !useAPI {
		comparison, err := trackio.FromFile(comparePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load comparison track: %w", err)
		}
		logger.Info().Str("path", comparePath).Int("points", comparison.Len()).Msg("loaded comparison track")
		return comparison, nil
	}

	client, err := elevation.NewClient(elevation.Provider(cfg.Elevation.Provider))
	if err != nil {
		return nil, err
	}
	comparison, err := base.WithElevations(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch API elevations: %w", err)
	}
	logger.Info().Str("provider", cfg.Elevation.Provider).Int("points", comparison.Len()).Msg("fetched API elevations")
	return comparison, nil
}

func buildSmoother(cfg config.SmoothingConfig) (smoothing.Smoother, error) {
	switch cfg.Kind {
	case "none", "":
		return nil, nil
	case "loess":
		return &smoothing.Loess{Window: cfg.Window, Iterations: cfg.Iterations}, nil
	case "spline":
		return &smoothing.Spline{Knots: cfg.Knots}, nil
	default:
		return nil, fmt.Errorf("unknown smoother %q", cfg.Kind)
	}
}

func printReport(report *compare.Report) {
	fmt.Printf("base:       %d points, %.3f km\n", report.BasePoints, report.BaseDistanceKm)
	fmt.Printf("comparison: %d points, %.3f km\n", report.ComparisonPoints, report.ComparisonDistanceKm)
	if report.ShiftKm != 0 {
		fmt.Printf("axis shift: %.3f km\n", report.ShiftKm)
	}
	fmt.Printf("within tolerance: %d/%d (%.1f%%)\n", report.WithinTolerance, report.ComparisonPoints, report.ConformanceRate*100)
	if report.BaseElevation != nil {
		fmt.Printf("base elevation:       min %.1fm max %.1fm mean %.1fm\n",
			report.BaseElevation.Min, report.BaseElevation.Max, report.BaseElevation.Mean)
		fmt.Printf("base ascent/descent:  +%.1fm / -%.1fm\n",
			report.BaseAscent.Ascent, report.BaseAscent.Descent)
	}
	if report.ComparisonElevation != nil {
		fmt.Printf("comparison elevation: min %.1fm max %.1fm mean %.1fm\n",
			report.ComparisonElevation.Min, report.ComparisonElevation.Max, report.ComparisonElevation.Mean)
	}
}

func writeKMLReport(path string, report *compare.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create KML report file: %w", err)
	}
	defer f.Close()

	if err := kmlreport.Write(f, report.Base, report.Comparison, report.Conformance); err != nil {
		return err
	}
	return f.Sync()
}
