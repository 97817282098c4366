// Hybrid image synthesizer
//
// Usage: hybrid [flags] INPUT1 INPUT2 [OUTPUT]
//
// INPUT1 supplies the low frequencies seen from afar, INPUT2 the high
// frequencies seen up close.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"hybrid-images/internal/config"
	"hybrid-images/internal/core"
	"hybrid-images/internal/errs"
	"hybrid-images/internal/gui"
	"hybrid-images/internal/io"
	"hybrid-images/internal/logging"
	"hybrid-images/internal/metrics"
)

const (
	AppName    = "hybrid"
	AppID      = "io.github.hybrid-images"
	AppVersion = "1.0.0"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s: %v\n", AppName, errs.Kind(err), err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps error kinds to distinct non-zero statuses.
func exitCode(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidParameter):
		return 2
	case errors.Is(err, errs.ErrIOFailure):
		return 3
	default:
		return 1
	}
}

type flags struct {
	configPath    string
	sigma         float64
	left, top     int
	verbose       bool
	preview       bool
	maxSide       int
	align         string
	noExtrapolate bool
	matchSize     bool
}

func newRootCommand() *cobra.Command {
	defaults := config.Default()
	var f flags

	cmd := &cobra.Command{
		Use:           AppName + " [flags] INPUT1 INPUT2 [OUTPUT]",
		Short:         "Blend the low frequencies of one image with the high frequencies of another",
		Version:       AppVersion,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, f, args)
			if err != nil {
				return err
			}
			return run(cmd, cfg, args[0], args[1], f.preview)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "config file (default "+config.DefaultPath+" if present)")
	fs.Float64VarP(&f.sigma, "sigma", "s", defaults.Sigma, "blend strength; larger keeps more of INPUT1")
	fs.IntVarP(&f.left, "left", "x", defaults.Left, "horizontal offset of INPUT2 relative to INPUT1")
	fs.IntVarP(&f.top, "top", "y", defaults.Top, "vertical offset of INPUT2 relative to INPUT1")
	fs.BoolVarP(&f.verbose, "verbose", "v", defaults.Verbose, "log timing and quality diagnostics")
	fs.BoolVarP(&f.preview, "preview", "p", false, "show the result in a window with a sigma slider")
	fs.IntVar(&f.maxSide, "max-side", defaults.MaxSide, "limit the longer side of the inputs (0 disables)")
	fs.StringVar(&f.align, "align", defaults.Align, "canvas layout: union or intersection")
	fs.BoolVar(&f.noExtrapolate, "no-extrapolate", !defaults.Extrapolate, "fill uncovered canvas with flat grey instead of edge pixels")
	fs.BoolVar(&f.matchSize, "match-size", defaults.MatchSize, "resize INPUT2 to the size of INPUT1")

	return cmd
}

// resolveConfig layers explicitly set flags and the positional output path
// over the config file.
func resolveConfig(cmd *cobra.Command, f flags, args []string) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("sigma") {
		cfg.Sigma = f.sigma
	}
	if changed("left") {
		cfg.Left = f.left
	}
	if changed("top") {
		cfg.Top = f.top
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if changed("max-side") {
		cfg.MaxSide = f.maxSide
	}
	if changed("align") {
		cfg.Align = f.align
	}
	if changed("no-extrapolate") {
		cfg.Extrapolate = !f.noExtrapolate
	}
	if changed("match-size") {
		cfg.MatchSize = f.matchSize
	}
	if len(args) == 3 {
		cfg.Output = args[2]
	}

	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, cfg config.Config, input1, input2 string, preview bool) error {
	logger := logging.NewWithOutput(cmd.ErrOrStderr(), cfg.Verbose)
	slogger := logging.Slog(logger)
	logger.WithFields(logrus.Fields{
		"version": AppVersion,
		"sigma":   cfg.Sigma,
		"offset":  cfg.Offset(),
		"align":   cfg.Align,
	}).Debug("Starting hybrid image synthesis")

	loader := io.NewImageLoader(slogger)

	start := time.Now()
	first, err := loader.LoadImage(input1)
	if err != nil {
		return err
	}
	defer first.Close()
	second, err := loader.LoadImage(input2)
	if err != nil {
		return err
	}
	defer second.Close()

	resized1, resized2, err := cfg.ResizePolicy().Apply(first, second)
	if err != nil {
		return err
	}
	defer resized1.Close()
	defer resized2.Close()
	loadTime := time.Since(start)

	logger.WithFields(logrus.Fields{
		"first":          core.MetadataOf(first).String(),
		"second":         core.MetadataOf(second).String(),
		"first_resized":  core.MetadataOf(resized1).String(),
		"second_resized": core.MetadataOf(resized2).String(),
	}).Debug("Inputs loaded")

	aligner, err := cfg.Aligner()
	if err != nil {
		return err
	}
	pair, err := aligner.Align(resized1, resized2, cfg.Offset())
	if err != nil {
		return err
	}
	defer pair.Close()

	session, err := core.NewSession(pair, core.Options{Parallel: cfg.Parallel, Logger: slogger})
	if err != nil {
		return err
	}
	defer session.Close()

	start = time.Now()
	composite, err := session.Composite(cfg.Sigma)
	if err != nil {
		return err
	}
	compositeTime := time.Since(start)

	if err := loader.SaveImage(composite, cfg.Output); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"output":         cfg.Output,
		"canvas":         fmt.Sprintf("%dx%d", session.Canvas().X, session.Canvas().Y),
		"load_ms":        loadTime.Milliseconds(),
		"composite_ms":   compositeTime.Milliseconds(),
		"transform_size": fmt.Sprintf("%dx%d", session.TransformSize().X, session.TransformSize().Y),
	}).Info("Hybrid image written")

	if cfg.Verbose {
		logQuality(logger, cfg.Sigma, composite, pair.First, pair.Second)
	}

	if preview {
		showPreview(logger, loader, session, cfg)
	}

	return nil
}

func logQuality(logger *logrus.Logger, sigma float64, composite, first, second gocv.Mat) {
	report, err := metrics.NewEvaluator().CompareSources(sigma, composite, first, second)
	if err != nil {
		logger.WithError(err).Warn("Quality diagnostics unavailable")
		return
	}

	views := []struct {
		name   string
		values map[string]float64
	}{
		{"near_first", report.NearFirst},
		{"near_second", report.NearSecond},
		{"far_first", report.FarFirst},
		{"far_second", report.FarSecond},
	}
	for _, view := range views {
		fields := logrus.Fields{"view": view.name, "sigma": sigma}
		for name, value := range view.values {
			fields[name] = value
		}
		logger.WithFields(fields).Debug("Quality")
	}
}

func showPreview(logger *logrus.Logger, loader *io.ImageLoader, session *core.Session, cfg config.Config) {
	previewApp := app.NewWithID(AppID)
	previewApp.Settings().SetTheme(theme.DefaultTheme())

	p := gui.NewPreview(previewApp, session, cfg.Sigma, logging.Slog(logger))
	p.SetSaveHandler(func(_ float64, composite gocv.Mat) error {
		return loader.SaveImage(composite, cfg.Output)
	})
	p.ShowAndRun()

	stats := session.Stats()
	logger.WithFields(logrus.Fields{
		"sigmas":           len(session.Sigmas()),
		"kernel_builds":    stats.KernelBuilds,
		"composite_builds": stats.CompositeBuilds,
		"cache_hits":       stats.CacheHits,
		"failures":         stats.Failures,
	}).Info("Preview closed")
}
