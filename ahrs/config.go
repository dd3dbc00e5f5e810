package ahrs

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yin1008/paparazzi/fixed"
)

// Default tuning, matching the values the filter was flown with.
const (
	DefaultReinjectionGain    = 2 << fixed.HighResFrac // 2 rad at high resolution
	DefaultPropagateFrequency = 512 // Hz
	DefaultRateCutThreshold   = 1.0 // rad/s
	DefaultAccelCutThreshold  = 20  // m/s²
	DefaultSmoothingWeight    = 50
	DefaultMinAccelNorm       = 1.0 // m/s²
	DefaultMinMagNorm         = 0.05
)

// DefaultJSONConfig is DefaultConfig in its file form.
const DefaultJSONConfig = `{
  "reinjection_gain": 524288,
  "magnetic_offset_deg": 0,
  "propagate_frequency_hz": 512,
  "noise": {
    "outlier_cut": false,
    "rate_cut_threshold": 1.0,
    "accel_cut_threshold": 20,
    "smoothing": false,
    "smoothing_weight": 50
  },
  "min_accel_norm": 1.0,
  "min_mag_norm": 0.05
}
`

// NoiseConfig selects the optional noise rejection applied to gyro rates (in
// Propagate) and accelerometer vectors (in UpdateAccel).
type NoiseConfig struct {
	OutlierCut        bool    `json:"outlier_cut"`         // drop samples that jump by more than a threshold
	RateCutThreshold  float64 `json:"rate_cut_threshold"`  // rad/s, per axis
	AccelCutThreshold float64 `json:"accel_cut_threshold"` // m/s², per axis
	Smoothing         bool    `json:"smoothing"`           // exponential smoothing with SmoothingWeight
	SmoothingWeight   int32   `json:"smoothing_weight"`    // y = (w*y + x) / (w+1)
}

// Config holds the runtime tuning of a Filter.
type Config struct {
	ReinjectionGain    int32       `json:"reinjection_gain"`       // residual divisor per tick; larger trusts the gyro longer
	MagneticOffsetDeg  float64     `json:"magnetic_offset_deg"`    // declination and installation offset, degrees
	PropagateFrequency int32       `json:"propagate_frequency_hz"` // rate at which Propagate is called
	Noise              NoiseConfig `json:"noise"`
	MinAccelNorm       float64     `json:"min_accel_norm"` // used by ValidateSample only, m/s²
	MinMagNorm         float64     `json:"min_mag_norm"`   // used by ValidateSample only
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		ReinjectionGain:    DefaultReinjectionGain,
		PropagateFrequency: DefaultPropagateFrequency,
		Noise: NoiseConfig{
			RateCutThreshold:  DefaultRateCutThreshold,
			AccelCutThreshold: DefaultAccelCutThreshold,
			SmoothingWeight:   DefaultSmoothingWeight,
		},
		MinAccelNorm: DefaultMinAccelNorm,
		MinMagNorm:   DefaultMinMagNorm,
	}
}

// LoadConfig reads a JSON config from path. Fields missing from the file keep
// their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading ahrs config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing ahrs config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("ahrs config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.ReinjectionGain < 1:
		return fmt.Errorf("%w: reinjection_gain must be >= 1, got %d", ErrInvalidConfig, c.ReinjectionGain)
	case c.PropagateFrequency < 1:
		return fmt.Errorf("%w: propagate_frequency_hz must be >= 1, got %d", ErrInvalidConfig, c.PropagateFrequency)
	case c.Noise.SmoothingWeight < 0:
		return fmt.Errorf("%w: smoothing_weight must be >= 0, got %d", ErrInvalidConfig, c.Noise.SmoothingWeight)
	case c.Noise.OutlierCut && (c.Noise.RateCutThreshold <= 0 || c.Noise.AccelCutThreshold <= 0):
		return fmt.Errorf("%w: cut thresholds must be positive when outlier_cut is set", ErrInvalidConfig)
	case c.MinAccelNorm < 0 || c.MinMagNorm < 0:
		return fmt.Errorf("%w: minimum norms must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) magneticOffset() fixed.Angle {
	return fixed.AngleOfReal(c.MagneticOffsetDeg * Deg)
}

// rateWeight is the smoothing weight for gyro rates: the configured weight
// when smoothing is on, otherwise 1 (a plain two-sample average).
func (c Config) rateWeight() int32 {
	if c.Noise.Smoothing {
		return c.Noise.SmoothingWeight
	}
	return 1
}

// accelWeight is the smoothing weight for accelerometer vectors; without
// smoothing the vector passes through unchanged.
func (c Config) accelWeight() int32 {
	if c.Noise.Smoothing {
		return c.Noise.SmoothingWeight
	}
	return 0
}
