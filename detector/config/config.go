package config

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-veraz/algorithms/common"
	"github.com/RyanBlaney/sonido-veraz/algorithms/windowing"
	"github.com/RyanBlaney/sonido-veraz/transcode"
)

// Config holds every tunable of the analysis pipeline
type Config struct {
	LogLevel string `json:"log_level" mapstructure:"log_level" yaml:"log_level"`

	Decoder  transcode.DecoderConfig `json:"decoder" mapstructure:"decoder" yaml:"decoder"`
	Prep     PrepConfig              `json:"prep" mapstructure:"prep" yaml:"prep"`
	Frames   FrameConfig             `json:"frames" mapstructure:"frames" yaml:"frames"`
	Spectral SpectralConfig          `json:"spectral" mapstructure:"spectral" yaml:"spectral"`
	MFCC     MFCCConfig              `json:"mfcc" mapstructure:"mfcc" yaml:"mfcc"`
	Temporal TemporalConfig          `json:"temporal" mapstructure:"temporal" yaml:"temporal"`
	Pitch    PitchConfig             `json:"pitch" mapstructure:"pitch" yaml:"pitch"`
	Artifact ArtifactConfig          `json:"artifact" mapstructure:"artifact" yaml:"artifact"`
	Fusion   FusionConfig            `json:"fusion" mapstructure:"fusion" yaml:"fusion"`
}

// PrepConfig controls signal preparation
type PrepConfig struct {
	TargetSampleRate   int     `json:"target_sample_rate" mapstructure:"target_sample_rate" yaml:"target_sample_rate"`
	TrimFrameSize      int     `json:"trim_frame_size" mapstructure:"trim_frame_size" yaml:"trim_frame_size"`
	TrimHopSize        int     `json:"trim_hop_size" mapstructure:"trim_hop_size" yaml:"trim_hop_size"`
	SilenceThresholdDB float64 `json:"silence_threshold_db" mapstructure:"silence_threshold_db" yaml:"silence_threshold_db"` // relative to the loudest frame
	SilenceFloor       float64 `json:"silence_floor" mapstructure:"silence_floor" yaml:"silence_floor"`                      // absolute RMS floor
	MinDuration        float64 `json:"min_duration" mapstructure:"min_duration" yaml:"min_duration"`                        // seconds, after trimming
	Normalization      string  `json:"normalization" mapstructure:"normalization" yaml:"normalization"`                     // "peak" or "rms"
	TargetPeak         float64 `json:"target_peak" mapstructure:"target_peak" yaml:"target_peak"`
	TargetRMS          float64 `json:"target_rms" mapstructure:"target_rms" yaml:"target_rms"`
}

// FrameConfig controls framing and the shared STFT
type FrameConfig struct {
	FrameSize int    `json:"frame_size" mapstructure:"frame_size" yaml:"frame_size"`
	HopSize   int    `json:"hop_size" mapstructure:"hop_size" yaml:"hop_size"`
	FFTSize   int    `json:"fft_size" mapstructure:"fft_size" yaml:"fft_size"`
	Window    string `json:"window" mapstructure:"window" yaml:"window"`
}

// SpectralConfig controls the spectral shape analyzer
type SpectralConfig struct {
	RolloffThreshold float64 `json:"rolloff_threshold" mapstructure:"rolloff_threshold" yaml:"rolloff_threshold"`
	FlatnessEpsilon  float64 `json:"flatness_epsilon" mapstructure:"flatness_epsilon" yaml:"flatness_epsilon"`
	FlatnessSentinel float64 `json:"flatness_sentinel" mapstructure:"flatness_sentinel" yaml:"flatness_sentinel"`
	ContrastBands    int     `json:"contrast_bands" mapstructure:"contrast_bands" yaml:"contrast_bands"`
	ContrastMinFreq  float64 `json:"contrast_min_freq" mapstructure:"contrast_min_freq" yaml:"contrast_min_freq"`
	ContrastQuantile float64 `json:"contrast_quantile" mapstructure:"contrast_quantile" yaml:"contrast_quantile"`
	ChromaTuning     float64 `json:"chroma_tuning" mapstructure:"chroma_tuning" yaml:"chroma_tuning"` // A4 in Hz
}

// MFCCConfig controls the cepstral analyzer
type MFCCConfig struct {
	NumCoefficients     int     `json:"num_coefficients" mapstructure:"num_coefficients" yaml:"num_coefficients"`
	NumMelFilters       int     `json:"num_mel_filters" mapstructure:"num_mel_filters" yaml:"num_mel_filters"`
	LowFreq             float64 `json:"low_freq" mapstructure:"low_freq" yaml:"low_freq"`
	HighFreq            float64 `json:"high_freq" mapstructure:"high_freq" yaml:"high_freq"` // 0 = Nyquist
	DynamicRangeDB      float64 `json:"dynamic_range_db" mapstructure:"dynamic_range_db" yaml:"dynamic_range_db"`
	UseLiftering        bool    `json:"use_liftering" mapstructure:"use_liftering" yaml:"use_liftering"`
	LifterCoeff         float64 `json:"lifter_coeff" mapstructure:"lifter_coeff" yaml:"lifter_coeff"`
	ZeroEnergyThreshold float64 `json:"zero_energy_threshold" mapstructure:"zero_energy_threshold" yaml:"zero_energy_threshold"`
}

// TemporalConfig controls the temporal analyzer
type TemporalConfig struct {
	PauseRatioDB float64 `json:"pause_ratio_db" mapstructure:"pause_ratio_db" yaml:"pause_ratio_db"`
}

// PitchConfig controls pitch and formant tracking
type PitchConfig struct {
	PitchFrameSize        int     `json:"pitch_frame_size" mapstructure:"pitch_frame_size" yaml:"pitch_frame_size"`
	MinF0                 float64 `json:"min_f0" mapstructure:"min_f0" yaml:"min_f0"`
	MaxF0                 float64 `json:"max_f0" mapstructure:"max_f0" yaml:"max_f0"`
	YinThreshold          float64 `json:"yin_threshold" mapstructure:"yin_threshold" yaml:"yin_threshold"`
	VoicedEnergyThreshold float64 `json:"voiced_energy_threshold" mapstructure:"voiced_energy_threshold" yaml:"voiced_energy_threshold"`
	MinVoicedFrames       int     `json:"min_voiced_frames" mapstructure:"min_voiced_frames" yaml:"min_voiced_frames"`
	LPCOrder              int     `json:"lpc_order" mapstructure:"lpc_order" yaml:"lpc_order"` // 0 = 2 + sr/1000
	PreEmphasis           float64 `json:"pre_emphasis" mapstructure:"pre_emphasis" yaml:"pre_emphasis"`
	MinFormantHz          float64 `json:"min_formant_hz" mapstructure:"min_formant_hz" yaml:"min_formant_hz"`
	FormantRateScale      float64 `json:"formant_rate_scale" mapstructure:"formant_rate_scale" yaml:"formant_rate_scale"` // Hz/frame
}

// ArtifactConfig controls the synthesis artifact detector
type ArtifactConfig struct {
	PhaseFloorDB float64 `json:"phase_floor_db" mapstructure:"phase_floor_db" yaml:"phase_floor_db"`
	CombMinLag   int     `json:"comb_min_lag" mapstructure:"comb_min_lag" yaml:"comb_min_lag"`
	CombMaxLag   int     `json:"comb_max_lag" mapstructure:"comb_max_lag" yaml:"comb_max_lag"`
	HighBandHz   float64 `json:"high_band_hz" mapstructure:"high_band_hz" yaml:"high_band_hz"`
	EnergyFloor  float64 `json:"energy_floor" mapstructure:"energy_floor" yaml:"energy_floor"`    // frame RMS below this is skipped
	HighBandRel  float64 `json:"high_band_rel" mapstructure:"high_band_rel" yaml:"high_band_rel"` // band share below this counts as empty
	PhaseWeight  float64 `json:"phase_weight" mapstructure:"phase_weight" yaml:"phase_weight"`
	CombWeight   float64 `json:"comb_weight" mapstructure:"comb_weight" yaml:"comb_weight"`
}

// FusionConfig controls score fusion
type FusionConfig struct {
	Rules               []FeatureRule `json:"rules" mapstructure:"rules" yaml:"rules"`
	Gain                float64       `json:"gain" mapstructure:"gain" yaml:"gain"`
	Offset              float64       `json:"offset" mapstructure:"offset" yaml:"offset"`
	Threshold           float64       `json:"threshold" mapstructure:"threshold" yaml:"threshold"`
	ConfidencePrecision int           `json:"confidence_precision" mapstructure:"confidence_precision" yaml:"confidence_precision"` // decimals, 0 = no rounding
}

// FeatureRule turns one feature into evidence. Values inside [Low, High]
// give no evidence; outside, evidence is the distance to the range divided
// by Scale, capped at Cap. A nil bound is unbounded.
type FeatureRule struct {
	Feature   string   `json:"feature" mapstructure:"feature" yaml:"feature"`
	Direction int      `json:"direction" mapstructure:"direction" yaml:"direction"` // +1 toward AI, -1 toward human
	Weight    float64  `json:"weight" mapstructure:"weight" yaml:"weight"`
	Low       *float64 `json:"low,omitempty" mapstructure:"low" yaml:"low,omitempty"`
	High      *float64 `json:"high,omitempty" mapstructure:"high" yaml:"high,omitempty"`
	Scale     float64  `json:"scale" mapstructure:"scale" yaml:"scale"` // 0 = 1
	Cap       float64  `json:"cap" mapstructure:"cap" yaml:"cap"`       // 0 = no cap
}

// Bound returns a pointer to v for FeatureRule literals
func Bound(v float64) *float64 {
	return &v
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Decoder:  *transcode.DefaultDecoderConfig(),
		Prep: PrepConfig{
			TargetSampleRate:   16000,
			TrimFrameSize:      320,
			TrimHopSize:        160,
			SilenceThresholdDB: -40,
			SilenceFloor:       1e-4,
			MinDuration:        0.2,
			Normalization:      "peak",
			TargetPeak:         0.95,
			TargetRMS:          0.1,
		},
		Frames: FrameConfig{
			FrameSize: 400,
			HopSize:   160,
			FFTSize:   512,
			Window:    "hann",
		},
		Spectral: SpectralConfig{
			RolloffThreshold: 0.85,
			FlatnessEpsilon:  1e-10,
			FlatnessSentinel: 0,
			ContrastBands:    6,
			ContrastMinFreq:  200,
			ContrastQuantile: 0.2,
			ChromaTuning:     440,
		},
		MFCC: MFCCConfig{
			NumCoefficients:     13,
			NumMelFilters:       26,
			LowFreq:             0,
			HighFreq:            0,
			DynamicRangeDB:      60,
			UseLiftering:        false,
			LifterCoeff:         22,
			ZeroEnergyThreshold: 1e-10,
		},
		Temporal: TemporalConfig{
			PauseRatioDB: -30,
		},
		Pitch: PitchConfig{
			PitchFrameSize:        640,
			MinF0:                 70,
			MaxF0:                 500,
			YinThreshold:          0.15,
			VoicedEnergyThreshold: 0.01,
			MinVoicedFrames:       3,
			LPCOrder:              0,
			PreEmphasis:           0.97,
			MinFormantHz:          90,
			FormantRateScale:      100,
		},
		Artifact: ArtifactConfig{
			PhaseFloorDB: 40,
			CombMinLag:   3,
			CombMaxLag:   40,
			HighBandHz:   4000,
			EnergyFloor:  1e-4,
			HighBandRel:  1e-8,
			PhaseWeight:  0.7,
			CombWeight:   0.3,
		},
		Fusion: FusionConfig{
			Rules:               DefaultRules(),
			Gain:                8,
			Offset:              0.3,
			Threshold:           0.5,
			ConfidencePrecision: 4,
		},
	}
}

// DefaultRules returns the default fusion rules. artifact_score carries the
// highest weight and gives evidence equal to its value.
func DefaultRules() []FeatureRule {
	return []FeatureRule{
		{Feature: "spectral_centroid_cv", Direction: 1, Weight: 0.15, Low: Bound(0.15), Scale: 0.15, Cap: 1},
		{Feature: "spectral_flatness_mean", Direction: 1, Weight: 0.10, High: Bound(0.3), Scale: 0.3, Cap: 1},
		{Feature: "mfcc_delta_variance", Direction: 1, Weight: 0.20, Low: Bound(0.5), Scale: 0.5, Cap: 1},
		{Feature: "energy_cv", Direction: 1, Weight: 0.18, Low: Bound(0.3), Scale: 0.3, Cap: 1},
		{Feature: "zcr_cv", Direction: 1, Weight: 0.08, Low: Bound(0.2), Scale: 0.2, Cap: 1},
		{Feature: "pitch_jitter", Direction: 1, Weight: 0.15, Low: Bound(0.005), Scale: 0.005, Cap: 1},
		{Feature: "pitch_cv", Direction: 1, Weight: 0.17, Low: Bound(0.05), Scale: 0.05, Cap: 1},
		{Feature: "formant_transition_smoothness", Direction: 1, Weight: 0.10, High: Bound(0.8), Scale: 0.2, Cap: 1},
		{Feature: "hf_consistency", Direction: 1, Weight: 0.10, High: Bound(0.7), Scale: 0.3, Cap: 1},
		{Feature: "artifact_score", Direction: 1, Weight: 0.25, High: Bound(0), Scale: 1, Cap: 1},
		{Feature: "pause_ratio", Direction: -1, Weight: 0.08, High: Bound(0.05), Scale: 0.2, Cap: 1},
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	p := c.Prep
	if p.TargetSampleRate <= 0 {
		return fmt.Errorf("prep.target_sample_rate must be positive: %d", p.TargetSampleRate)
	}
	if p.TrimFrameSize <= 0 || p.TrimHopSize <= 0 || p.TrimHopSize > p.TrimFrameSize {
		return fmt.Errorf("prep trim frame/hop must be positive with hop <= frame: %d/%d", p.TrimFrameSize, p.TrimHopSize)
	}
	if p.SilenceThresholdDB >= 0 {
		return fmt.Errorf("prep.silence_threshold_db must be negative: %f", p.SilenceThresholdDB)
	}
	if p.SilenceFloor < 0 {
		return fmt.Errorf("prep.silence_floor must not be negative: %f", p.SilenceFloor)
	}
	if p.MinDuration < 0 {
		return fmt.Errorf("prep.min_duration must not be negative: %f", p.MinDuration)
	}
	mode, err := common.ParseNormalizationType(p.Normalization)
	if err != nil {
		return fmt.Errorf("prep.normalization: %w", err)
	}
	target := p.TargetPeak
	if mode == common.RMSNorm {
		target = p.TargetRMS
	}
	if target <= 0 || target > 1 {
		return fmt.Errorf("prep normalization target must be in (0, 1]: %f", target)
	}

	f := c.Frames
	if f.FrameSize <= 0 || f.HopSize <= 0 || f.HopSize >= f.FrameSize {
		return fmt.Errorf("frames: need 0 < hop_size < frame_size, got %d/%d", f.HopSize, f.FrameSize)
	}
	if f.FFTSize != 0 && f.FFTSize < f.FrameSize {
		return fmt.Errorf("frames.fft_size %d is smaller than frame_size %d", f.FFTSize, f.FrameSize)
	}
	if _, err := windowing.New(f.Window, f.FrameSize); err != nil {
		return fmt.Errorf("frames.window: %w", err)
	}

	if c.Spectral.RolloffThreshold <= 0 || c.Spectral.RolloffThreshold >= 1 {
		return fmt.Errorf("spectral.rolloff_threshold must be in (0, 1): %f", c.Spectral.RolloffThreshold)
	}
	if c.Spectral.ContrastBands <= 0 || c.Spectral.ContrastQuantile <= 0 || c.Spectral.ContrastQuantile > 0.5 {
		return fmt.Errorf("spectral: need contrast_bands > 0 and contrast_quantile in (0, 0.5], got %d/%f",
			c.Spectral.ContrastBands, c.Spectral.ContrastQuantile)
	}
	if c.Spectral.ContrastMinFreq <= 0 || c.Spectral.ContrastMinFreq >= float64(p.TargetSampleRate)/2 {
		return fmt.Errorf("spectral.contrast_min_freq must be in (0, Nyquist): %f", c.Spectral.ContrastMinFreq)
	}
	if c.Spectral.ChromaTuning <= 0 {
		return fmt.Errorf("spectral.chroma_tuning must be positive: %f", c.Spectral.ChromaTuning)
	}

	m := c.MFCC
	if m.NumCoefficients < 2 || m.NumMelFilters < m.NumCoefficients {
		return fmt.Errorf("mfcc: need 2 <= num_coefficients <= num_mel_filters, got %d/%d", m.NumCoefficients, m.NumMelFilters)
	}
	nyquist := float64(p.TargetSampleRate) / 2
	if m.LowFreq < 0 || m.HighFreq < 0 || m.HighFreq > nyquist || (m.HighFreq > 0 && m.LowFreq >= m.HighFreq) {
		return fmt.Errorf("mfcc frequency range invalid: %.1f-%.1f Hz", m.LowFreq, m.HighFreq)
	}
	if m.DynamicRangeDB < 0 {
		return fmt.Errorf("mfcc.dynamic_range_db must not be negative: %f", m.DynamicRangeDB)
	}

	if c.Temporal.PauseRatioDB >= 0 {
		return fmt.Errorf("temporal.pause_ratio_db must be negative: %f", c.Temporal.PauseRatioDB)
	}

	pc := c.Pitch
	if pc.MinF0 <= 0 || pc.MaxF0 <= pc.MinF0 || pc.MaxF0 >= nyquist {
		return fmt.Errorf("pitch range invalid: %.1f-%.1f Hz", pc.MinF0, pc.MaxF0)
	}
	if minFrame := 2*int(math.Ceil(float64(p.TargetSampleRate)/pc.MinF0)) + 2; pc.PitchFrameSize < minFrame {
		return fmt.Errorf("pitch.pitch_frame_size %d too short for min_f0 %.1f Hz (need %d)", pc.PitchFrameSize, pc.MinF0, minFrame)
	}
	if pc.YinThreshold <= 0 || pc.YinThreshold >= 1 {
		return fmt.Errorf("pitch.yin_threshold must be in (0, 1): %f", pc.YinThreshold)
	}
	if pc.MinVoicedFrames < 2 {
		return fmt.Errorf("pitch.min_voiced_frames must be at least 2: %d", pc.MinVoicedFrames)
	}
	if pc.PreEmphasis < 0 || pc.PreEmphasis >= 1 {
		return fmt.Errorf("pitch.pre_emphasis must be in [0, 1): %f", pc.PreEmphasis)
	}
	if pc.FormantRateScale <= 0 {
		return fmt.Errorf("pitch.formant_rate_scale must be positive: %f", pc.FormantRateScale)
	}

	a := c.Artifact
	if a.CombMinLag < 1 || a.CombMaxLag <= a.CombMinLag {
		return fmt.Errorf("artifact comb lag range invalid: %d-%d", a.CombMinLag, a.CombMaxLag)
	}
	if a.HighBandHz <= 0 || a.HighBandHz >= nyquist {
		return fmt.Errorf("artifact.high_band_hz must be below Nyquist: %f", a.HighBandHz)
	}
	if a.PhaseFloorDB <= 0 {
		return fmt.Errorf("artifact.phase_floor_db must be positive: %f", a.PhaseFloorDB)
	}
	if a.PhaseWeight < 0 || a.CombWeight < 0 || a.PhaseWeight+a.CombWeight == 0 {
		return fmt.Errorf("artifact weights must be non-negative and not both zero")
	}

	return c.Fusion.Validate()
}

// Validate checks the fusion rules and squashing parameters
func (fc *FusionConfig) Validate() error {
	if fc.Gain <= 0 {
		return fmt.Errorf("fusion.gain must be positive: %f", fc.Gain)
	}
	if fc.Threshold <= 0 || fc.Threshold >= 1 {
		return fmt.Errorf("fusion.threshold must be in (0, 1): %f", fc.Threshold)
	}
	if fc.ConfidencePrecision < 0 || fc.ConfidencePrecision > 12 {
		return fmt.Errorf("fusion.confidence_precision must be in [0, 12]: %d", fc.ConfidencePrecision)
	}

	seen := make(map[string]bool, len(fc.Rules))
	for i, rule := range fc.Rules {
		if rule.Feature == "" {
			return fmt.Errorf("fusion rule %d has no feature", i)
		}
		if seen[rule.Feature] {
			return fmt.Errorf("fusion rule for %q is defined twice", rule.Feature)
		}
		seen[rule.Feature] = true

		if rule.Direction != 1 && rule.Direction != -1 {
			return fmt.Errorf("fusion rule %q: direction must be +1 or -1, got %d", rule.Feature, rule.Direction)
		}
		if rule.Weight < 0 {
			return fmt.Errorf("fusion rule %q: weight must not be negative", rule.Feature)
		}
		if rule.Scale < 0 || rule.Cap < 0 {
			return fmt.Errorf("fusion rule %q: scale and cap must not be negative", rule.Feature)
		}
		if rule.Low != nil && rule.High != nil && *rule.Low > *rule.High {
			return fmt.Errorf("fusion rule %q: low %f above high %f", rule.Feature, *rule.Low, *rule.High)
		}
	}

	return nil
}
