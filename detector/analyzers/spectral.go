package analyzers

import (
	"fmt"

	"github.com/RyanBlaney/sonido-veraz/algorithms/chroma"
	"github.com/RyanBlaney/sonido-veraz/algorithms/spectral"
	"github.com/RyanBlaney/sonido-veraz/algorithms/stats"
	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/logging"
)

// SpectralAnalyzer summarizes spectral shape descriptors across frames.
// Uniform spectra (low variance over time) lean synthetic.
type SpectralAnalyzer struct {
	config     config.SpectralConfig
	sampleRate int
	logger     logging.Logger

	centroid  *spectral.SpectralCentroid
	flatness  *spectral.SpectralFlatness
	rolloff   *spectral.SpectralRolloff
	bandwidth *spectral.SpectralBandwidth
	flux      *spectral.SpectralFlux
	crest     *spectral.SpectralCrest
	contrast  *spectral.SpectralContrast
	chroma    *chroma.ChromaSTFT
	tonnetz   *chroma.Tonnetz
}

// NewSpectralAnalyzer creates a spectral shape analyzer
func NewSpectralAnalyzer(cfg config.SpectralConfig, sampleRate, fftSize int) (*SpectralAnalyzer, error) {
	contrast, err := spectral.NewSpectralContrast(sampleRate, fftSize, spectral.SpectralContrastParams{
		NumBands: cfg.ContrastBands,
		MinFreq:  cfg.ContrastMinFreq,
		Quantile: cfg.ContrastQuantile,
	})
	if err != nil {
		return nil, fmt.Errorf("spectral contrast: %w", err)
	}

	chromagram, err := chroma.NewChromaSTFT(sampleRate, fftSize, cfg.ChromaTuning)
	if err != nil {
		return nil, fmt.Errorf("chroma: %w", err)
	}

	return &SpectralAnalyzer{
		config:     cfg,
		sampleRate: sampleRate,
		logger: logging.WithFields(logging.Fields{
			"component":   "spectral_analyzer",
			"sample_rate": sampleRate,
			"fft_size":    fftSize,
		}),

		centroid:  spectral.NewSpectralCentroid(sampleRate),
		flatness:  spectral.NewSpectralFlatnessWithSentinel(cfg.FlatnessEpsilon, cfg.FlatnessSentinel),
		rolloff:   spectral.NewSpectralRolloff(sampleRate, cfg.RolloffThreshold),
		bandwidth: spectral.NewSpectralBandwidth(sampleRate),
		flux:      spectral.NewNormalizedSpectralFlux(),
		crest:     spectral.NewSpectralCrest(),
		contrast:  contrast,
		chroma:    chromagram,
		tonnetz:   chroma.NewTonnetz(),
	}, nil
}

func (sa *SpectralAnalyzer) Name() string {
	return "spectral"
}

// Analyze emits mean and variance of centroid, flatness, rolloff, bandwidth
// and band contrast, the centroid and bandwidth coefficients of variation,
// and flux and crest summaries. Chroma and tonal centroid statistics are
// added when at least one frame has energy between 80 Hz and 8 kHz.
func (sa *SpectralAnalyzer) Analyze(fs *FrameSet) (common.FeatureVector, error) {
	magnitude := fs.Spectrum.Magnitude

	centroid := stats.Summarize(sa.centroid.ComputeFrames(magnitude))
	flatness := stats.Summarize(sa.flatness.ComputeFrames(magnitude))
	rolloff := stats.Summarize(sa.rolloff.ComputeFrames(magnitude))
	bandwidth := stats.Summarize(sa.bandwidth.ComputeFrames(magnitude))
	flux := stats.Summarize(sa.flux.Compute(magnitude))
	crest := stats.Summarize(sa.crest.ComputeFrames(magnitude))
	contrast := stats.Summarize(sa.contrast.ComputeMean(magnitude))

	sa.logger.Debug("Spectral features extracted", logging.Fields{
		"frames":         len(magnitude),
		"centroid_mean":  centroid.Mean,
		"centroid_cv":    centroid.CV,
		"flatness_mean":  flatness.Mean,
		"spectral_flux":  flux.Mean,
		"spectral_crest": crest.Mean,
		"contrast_mean":  contrast.Mean,
	})

	values := map[string]float64{
		"spectral_centroid_mean":      centroid.Mean,
		"spectral_centroid_variance":  centroid.Variance,
		"spectral_centroid_cv":        centroid.CV,
		"spectral_flatness_mean":      flatness.Mean,
		"spectral_flatness_variance":  flatness.Variance,
		"spectral_rolloff_mean":       rolloff.Mean,
		"spectral_rolloff_variance":   rolloff.Variance,
		"spectral_bandwidth_mean":     bandwidth.Mean,
		"spectral_bandwidth_variance": bandwidth.Variance,
		"spectral_bandwidth_cv":       bandwidth.CV,
		"spectral_flux_mean":          flux.Mean,
		"spectral_flux_cv":            flux.CV,
		"spectral_crest_mean":         crest.Mean,
		"spectral_contrast_mean":      contrast.Mean,
		"spectral_contrast_variance":  contrast.Variance,
	}

	if chromagram := sa.chroma.ComputeFrames(magnitude); len(chromagram) > 0 {
		var flat []float64
		for _, frame := range chromagram {
			flat = append(flat, frame...)
		}
		c := stats.Summarize(flat)
		values["chroma_mean"] = c.Mean
		values["chroma_std"] = c.StdDev
		values["chroma_consistency"] = c.CV

		var centroids []float64
		for _, centroid := range sa.tonnetz.ComputeFrames(chromagram) {
			centroids = append(centroids, centroid...)
		}
		tz := stats.Summarize(centroids)
		values["tonnetz_mean"] = tz.Mean
		values["tonnetz_std"] = tz.StdDev
	}

	return fragment(sa.Name(), values)
}
