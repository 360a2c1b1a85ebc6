package analyzers

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-veraz/algorithms/spectral"
	"github.com/RyanBlaney/sonido-veraz/algorithms/stats"
	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/logging"
)

// CepstralAnalyzer summarizes MFCC trajectories. Overly smooth frame to
// frame cepstral motion (low delta variance) leans synthetic.
type CepstralAnalyzer struct {
	config config.MFCCConfig
	mfcc   *spectral.MFCC
	logger logging.Logger
}

// NewCepstralAnalyzer creates an MFCC analyzer for spectra of fftSize/2+1 bins
func NewCepstralAnalyzer(cfg config.MFCCConfig, sampleRate, fftSize int) (*CepstralAnalyzer, error) {
	mfcc := spectral.NewMFCCWithParams(sampleRate, spectral.MFCCParams{
		NumCoefficients: cfg.NumCoefficients,
		NumMelFilters:   cfg.NumMelFilters,
		LowFreq:         cfg.LowFreq,
		HighFreq:        cfg.HighFreq,
		UseLiftering:    cfg.UseLiftering,
		LifterCoeff:     cfg.LifterCoeff,
		DynamicRangeDB:  cfg.DynamicRangeDB,
	})
	if err := mfcc.Initialize(fftSize); err != nil {
		return nil, err
	}

	return &CepstralAnalyzer{
		config: cfg,
		mfcc:   mfcc,
		logger: logging.WithFields(logging.Fields{
			"component":        "cepstral_analyzer",
			"num_coefficients": mfcc.Params().NumCoefficients,
		}),
	}, nil
}

func (ca *CepstralAnalyzer) Name() string {
	return "cepstral"
}

// melTopDB clips the mel spectrogram this far below its loudest band
const melTopDB = 80.0

// Analyze emits per-coefficient mean and variance plus pooled variance,
// delta variance and uniformity, and the mean and spread of the mel
// spectrogram in dB. Frames below the zero-energy threshold are skipped.
func (ca *CepstralAnalyzer) Analyze(fs *FrameSet) (common.FeatureVector, error) {
	logger := ca.logger.WithFields(logging.Fields{
		"function": "Analyze",
	})

	var coeffs, mel [][]float64
	skipped := 0
	for t, magnitude := range fs.Spectrum.Magnitude {
		result, err := ca.mfcc.Compute(magnitude)
		if err != nil {
			return common.FeatureVector{}, common.NewFeatureExtractionError("MFCC_FAILED",
				fmt.Sprintf("frame %d", t), err)
		}
		if result.Energy < ca.config.ZeroEnergyThreshold {
			skipped++
			continue
		}
		coeffs = append(coeffs, result.MFCC)
		mel = append(mel, result.MelSpectrum)
	}

	if len(coeffs) < 2 {
		return common.FeatureVector{}, common.NewFeatureExtractionError("TOO_FEW_FRAMES",
			fmt.Sprintf("%d frames with energy, need at least 2", len(coeffs)), nil)
	}

	numCoeffs := len(coeffs[0])
	values := make(map[string]float64, 2*numCoeffs+5)

	var varianceSum, deltaVarianceSum, stdSum, absMeanSum float64
	for i := range numCoeffs {
		track := stats.Column(coeffs, i)
		summary := stats.Summarize(track)

		values[fmt.Sprintf("mfcc_mean_%d", i)] = summary.Mean
		values[fmt.Sprintf("mfcc_variance_%d", i)] = summary.Variance

		// C0 follows loudness; texture statistics use the rest
		if i == 0 {
			continue
		}
		varianceSum += summary.Variance
		stdSum += summary.StdDev
		absMeanSum += math.Abs(summary.Mean)
		deltaVarianceSum += stats.Summarize(stats.Diff(track)).Variance
	}

	shape := float64(max(numCoeffs-1, 1))
	values["mfcc_variance"] = varianceSum / shape
	values["mfcc_delta_variance"] = deltaVarianceSum / shape
	values["mfcc_uniformity"] = 0
	if absMeanSum > 1e-12 {
		values["mfcc_uniformity"] = stdSum / absMeanSum
	}

	var melDB []float64
	for _, frame := range spectral.PowerToDB(mel, melTopDB) {
		melDB = append(melDB, frame...)
	}
	melSummary := stats.Summarize(melDB)
	values["mel_db_mean"] = melSummary.Mean
	values["mel_db_std"] = melSummary.StdDev

	logger.Debug("Cepstral features extracted", logging.Fields{
		"frames":         len(coeffs),
		"skipped_frames": skipped,
		"delta_variance": values["mfcc_delta_variance"],
	})

	return fragment(ca.Name(), values)
}
