// Package config - Tunable parameters of the counting pipeline.
//
// Values are resolved in order: built-in defaults, an optional YAML file, an optional .env
// file, then COUNT_* environment variables. The result is validated before use.
package config

import (
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/nvr-ai/go-count/reconcile"
	"github.com/nvr-ai/go-count/segment"
	"github.com/nvr-ai/go-count/stabilizer"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for out-of-range configuration values.
var ErrInvalid = errors.New("invalid configuration")

// ReconcileConfig selects and tunes the size reconciler.
type ReconcileConfig struct {
	Strategy         reconcile.Strategy `json:"strategy" yaml:"strategy"`
	reconcile.Config `yaml:",inline"`
}

// StabilizerConfig tunes the streaming count stabilizer.
type StabilizerConfig struct {
	// Window is the number of raw counts kept.
	Window int `json:"window" yaml:"window"`
	// MinSamples is the number of counts needed before majority voting starts.
	MinSamples int `json:"min_samples" yaml:"min_samples"`
}

// Config is the full pipeline configuration.
type Config struct {
	// BackgroundPolicy selects the background model.
	BackgroundPolicy segment.BackgroundPolicy `json:"background_policy" yaml:"background_policy"`
	// Tolerance holds the foreground mask thresholds.
	Tolerance segment.MaskTolerance `json:"tolerance" yaml:"tolerance"`
	// Morphology holds the refinement kernels.
	Morphology segment.MorphologyConfig `json:"morphology" yaml:"morphology"`
	// Markers holds the seed generation parameters.
	Markers segment.MarkerConfig `json:"markers" yaml:"markers"`
	// Topography selects the watershed surface.
	Topography segment.Topography `json:"topography" yaml:"topography"`
	// MinArea is the minimum pixel count of a region.
	MinArea int `json:"min_area" yaml:"min_area"`
	// Reconcile selects the size reconciler.
	Reconcile ReconcileConfig `json:"reconcile" yaml:"reconcile"`
	// Stabilizer tunes streaming stabilization.
	Stabilizer StabilizerConfig `json:"stabilizer" yaml:"stabilizer"`
	// MaxDimension bounds the longest side of decoded gallery images; 0 keeps their size.
	MaxDimension int `json:"max_dimension" yaml:"max_dimension"`
	// LogLevel is the zap level name.
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		BackgroundPolicy: segment.PolicyAdaptiveColor,
		Tolerance:        segment.DefaultMaskTolerance(),
		Morphology:       segment.DefaultMorphologyConfig(),
		Markers:          segment.DefaultMarkerConfig(),
		Topography:       segment.TopographyImage,
		MinArea:          100,
		Reconcile: ReconcileConfig{
			Strategy: reconcile.StrategyModeSplit,
			Config:   reconcile.DefaultConfig(),
		},
		Stabilizer: StabilizerConfig{
			Window:     stabilizer.DefaultCapacity,
			MinSamples: stabilizer.DefaultMinSamples,
		},
		MaxDimension: 1024,
		LogLevel:     "info",
	}
}

// Load resolves the configuration from path (skipped when empty), the given .env files (or
// ./.env when none are given; missing files are skipped) and the environment.
//
// Arguments:
//   - path: An optional YAML file overlaying the defaults.
//   - envFiles: Optional .env files.
//
// Returns:
//   - Config: The validated configuration.
//   - error: An error if a file cannot be read or parsed, or a value is out of range.
//
// @example
// cfg, err := config.Load("count.yaml")
//
//	if err != nil {
//	    log.Fatal(err)
//	}
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Wrapf(err, "load %s", f)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BackgroundPolicy = segment.BackgroundPolicy(getEnv("COUNT_BACKGROUND_POLICY", string(c.BackgroundPolicy)))
	c.Topography = segment.Topography(getEnv("COUNT_TOPOGRAPHY", string(c.Topography)))
	c.MinArea = getEnvAsInt("COUNT_MIN_AREA", c.MinArea)
	c.Morphology.CloseKernel = getEnvAsInt("COUNT_CLOSE_KERNEL", c.Morphology.CloseKernel)
	c.Morphology.CloseIterations = getEnvAsInt("COUNT_CLOSE_ITERATIONS", c.Morphology.CloseIterations)
	c.Morphology.OpenKernel = getEnvAsInt("COUNT_OPEN_KERNEL", c.Morphology.OpenKernel)
	c.Morphology.OpenIterations = getEnvAsInt("COUNT_OPEN_ITERATIONS", c.Morphology.OpenIterations)
	c.Markers.PeakKernel = getEnvAsInt("COUNT_PEAK_KERNEL", c.Markers.PeakKernel)
	c.Markers.MinDistance = float32(getEnvAsFloat("COUNT_MIN_DISTANCE", float64(c.Markers.MinDistance)))
	c.Markers.PeakMergeKernel = getEnvAsInt("COUNT_PEAK_MERGE_KERNEL", c.Markers.PeakMergeKernel)
	c.Markers.BackgroundDilations = getEnvAsInt("COUNT_BACKGROUND_DILATIONS", c.Markers.BackgroundDilations)
	c.Reconcile.Strategy = reconcile.Strategy(getEnv("COUNT_RECONCILE_STRATEGY", string(c.Reconcile.Strategy)))
	c.Reconcile.ModalBand = getEnvAsFloat("COUNT_MODAL_BAND", c.Reconcile.ModalBand)
	c.Reconcile.MergeIoU = float32(getEnvAsFloat("COUNT_MERGE_IOU", float64(c.Reconcile.MergeIoU)))
	c.Stabilizer.Window = getEnvAsInt("COUNT_WINDOW", c.Stabilizer.Window)
	c.Stabilizer.MinSamples = getEnvAsInt("COUNT_MIN_SAMPLES", c.Stabilizer.MinSamples)
	c.MaxDimension = getEnvAsInt("COUNT_MAX_DIMENSION", c.MaxDimension)
	c.LogLevel = getEnv("COUNT_LOG_LEVEL", c.LogLevel)
}

// Validate reports an out-of-range value, wrapping ErrInvalid.
func (c Config) Validate() error {
	switch c.BackgroundPolicy {
	case segment.PolicyAdaptiveColor, segment.PolicyGlobalThreshold:
	default:
		return errors.Wrapf(ErrInvalid, "background_policy %q", c.BackgroundPolicy)
	}
	switch c.Topography {
	case segment.TopographyImage, segment.TopographyDistance:
	default:
		return errors.Wrapf(ErrInvalid, "topography %q", c.Topography)
	}
	switch c.Reconcile.Strategy {
	case reconcile.StrategyNone, reconcile.StrategyModeSplit, reconcile.StrategyOverlapMerge:
	default:
		return errors.Wrapf(ErrInvalid, "reconcile strategy %q", c.Reconcile.Strategy)
	}

	t := c.Tolerance
	for name, v := range map[string]float64{
		"saturation_floor":  t.SaturationFloor,
		"value_floor":       t.ValueFloor,
		"hue_window":        t.HueWindow,
		"saturation_window": t.SaturationWindow,
		"value_window":      t.ValueWindow,
	} {
		if v < 0 || v > 255 {
			return errors.Wrapf(ErrInvalid, "tolerance %s %v out of [0, 255]", name, v)
		}
	}

	for name, v := range map[string]int{
		"min_area":                     c.MinArea,
		"morphology.close_kernel":      c.Morphology.CloseKernel,
		"morphology.close_iterations":  c.Morphology.CloseIterations,
		"morphology.open_kernel":       c.Morphology.OpenKernel,
		"morphology.open_iterations":   c.Morphology.OpenIterations,
		"markers.peak_merge_kernel":    c.Markers.PeakMergeKernel,
		"markers.background_dilations": c.Markers.BackgroundDilations,
		"max_dimension":                c.MaxDimension,
	} {
		if v < 0 {
			return errors.Wrapf(ErrInvalid, "%s %d is negative", name, v)
		}
	}

	if c.Markers.PeakKernel < 1 {
		return errors.Wrapf(ErrInvalid, "markers.peak_kernel %d must be positive", c.Markers.PeakKernel)
	}
	if c.Markers.MinDistance < 0 || c.Markers.MinDistance >= 255 {
		return errors.Wrapf(ErrInvalid, "markers.min_distance %v out of [0, 255)", c.Markers.MinDistance)
	}
	if c.Reconcile.ModalBand <= 0 || c.Reconcile.ModalBand >= 1 {
		return errors.Wrapf(ErrInvalid, "reconcile modal_band %v out of (0, 1)", c.Reconcile.ModalBand)
	}
	if c.Reconcile.MergeIoU <= 0 || c.Reconcile.MergeIoU > 1 {
		return errors.Wrapf(ErrInvalid, "reconcile merge_iou %v out of (0, 1]", c.Reconcile.MergeIoU)
	}
	if c.Stabilizer.Window < 1 {
		return errors.Wrapf(ErrInvalid, "stabilizer window %d must be positive", c.Stabilizer.Window)
	}
	if c.Stabilizer.MinSamples < 1 || c.Stabilizer.MinSamples > c.Stabilizer.Window {
		return errors.Wrapf(ErrInvalid, "stabilizer min_samples %d out of [1, %d]", c.Stabilizer.MinSamples, c.Stabilizer.Window)
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return errors.Wrapf(ErrInvalid, "log_level %q", c.LogLevel)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
