package analyzers

import (
	"fmt"

	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/logging"
)

// Analyzer turns a FrameSet into its own fragment of the feature vector.
// Implementations must not mutate the FrameSet.
type Analyzer interface {
	Analyze(fs *FrameSet) (common.FeatureVector, error)
	Name() string
}

// Factory builds the analyzer set for a configuration
type Factory struct {
	logger logging.Logger
}

// NewFactory creates a new analyzer factory
func NewFactory() *Factory {
	return &Factory{
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer_factory",
		}),
	}
}

// CreateAll returns the spectral, cepstral, temporal, pitch and artifact
// analyzers, in that order
func (f *Factory) CreateAll(cfg *config.Config, sampleRate int) ([]Analyzer, error) {
	logger := f.logger.WithFields(logging.Fields{
		"function":    "CreateAll",
		"sample_rate": sampleRate,
	})

	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	spectralAnalyzer, err := NewSpectralAnalyzer(cfg.Spectral, sampleRate, cfg.Frames.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create spectral analyzer: %w", err)
	}

	cepstral, err := NewCepstralAnalyzer(cfg.MFCC, sampleRate, cfg.Frames.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create cepstral analyzer: %w", err)
	}

	pitch, err := NewPitchAnalyzer(cfg.Pitch, sampleRate, cfg.Frames.HopSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pitch analyzer: %w", err)
	}

	all := []Analyzer{
		spectralAnalyzer,
		cepstral,
		NewTemporalAnalyzer(cfg.Temporal, sampleRate),
		pitch,
		NewArtifactDetector(cfg.Artifact, sampleRate, cfg.Frames.FFTSize),
	}

	logger.Debug("Created analyzers", logging.Fields{
		"count": len(all),
	})

	return all, nil
}

// fragment builds a FeatureVector and rejects non-finite values so a defect
// is reported by the analyzer that produced it
func fragment(analyzer string, values map[string]float64) (common.FeatureVector, error) {
	fv := common.NewFeatureVector(values)
	if err := fv.Validate(); err != nil {
		return common.FeatureVector{}, fmt.Errorf("%s: %w", analyzer, err)
	}
	return fv, nil
}
