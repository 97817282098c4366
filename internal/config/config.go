// Run configuration loaded from hybrid.toml
package config

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"hybrid-images/internal/algorithms"
	"hybrid-images/internal/core"
	"hybrid-images/internal/errs"
	"hybrid-images/internal/layers"
)

// DefaultPath is read when no explicit config path is given. A missing
// default file is not an error.
const DefaultPath = "hybrid.toml"

const DefaultOutput = "hybrid.png"

// Config holds every tunable of one run.
type Config struct {
	Sigma  float64 `toml:"sigma"`
	Left   int     `toml:"left"`
	Top    int     `toml:"top"`
	Output string  `toml:"output"`

	MaxSide   int  `toml:"max_side"`
	MatchSize bool `toml:"match_size"`

	Align       string  `toml:"align"`
	Extrapolate bool    `toml:"extrapolate"`
	Background  float64 `toml:"background"`

	Parallel bool `toml:"parallel"`
	Verbose  bool `toml:"verbose"`
}

func Default() Config {
	return Config{
		Sigma:       core.DefaultSigma,
		Output:      DefaultOutput,
		MaxSide:     algorithms.DefaultMaxSide,
		Align:       layers.AlignUnion.String(),
		Extrapolate: true,
		Background:  layers.DefaultBackground,
		Parallel:    true,
	}
}

// Load returns the defaults overlaid with the TOML file at path. An empty
// path means DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %v: %w", path, err, errs.ErrIOFailure)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %v: %w", path, err, errs.ErrInvalidParameter)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("config %s: unknown keys %s: %w",
			filepath.Base(path), strings.Join(keys, ", "), errs.ErrInvalidParameter)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if math.IsNaN(c.Sigma) || c.Sigma <= 0 {
		return fmt.Errorf("sigma must be > 0, got %v: %w", c.Sigma, errs.ErrInvalidParameter)
	}
	if c.MaxSide < 0 {
		return fmt.Errorf("max_side must be >= 0, got %d: %w", c.MaxSide, errs.ErrInvalidParameter)
	}
	if c.Background < 0 || c.Background > 255 {
		return fmt.Errorf("background must be in [0, 255], got %v: %w", c.Background, errs.ErrInvalidParameter)
	}
	if c.Output == "" {
		return fmt.Errorf("output path is empty: %w", errs.ErrInvalidParameter)
	}
	if _, err := layers.ParseAlignMode(c.Align); err != nil {
		return err
	}
	return nil
}

// Offset is the placement of the second image relative to the first.
func (c Config) Offset() image.Point {
	return image.Pt(c.Left, c.Top)
}

func (c Config) Aligner() (*layers.Aligner, error) {
	mode, err := layers.ParseAlignMode(c.Align)
	if err != nil {
		return nil, err
	}
	return &layers.Aligner{
		Mode:        mode,
		Extrapolate: c.Extrapolate,
		Background:  c.Background,
	}, nil
}

func (c Config) ResizePolicy() algorithms.ResizePolicy {
	return algorithms.ResizePolicy{MaxSide: c.MaxSide, MatchFirst: c.MatchSize}
}
