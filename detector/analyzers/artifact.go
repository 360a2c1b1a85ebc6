package analyzers

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-veraz/algorithms/spectral"
	"github.com/RyanBlaney/sonido-veraz/algorithms/stats"
	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/logging"
)

// noPhaseEvidence is the phase consistency of a signal whose phase
// deviation is uniformly random, reported when no bin qualifies
const noPhaseEvidence = 0.5

// ArtifactDetector looks for signatures of synthesis pipelines: phase that
// evolves too coherently, comb-like periodicity across the magnitude
// spectrum, and an unnaturally steady high band
type ArtifactDetector struct {
	config     config.ArtifactConfig
	sampleRate int
	power      *spectral.PowerSpectrum
	autocorr   *stats.AutoCorrelation
	logger     logging.Logger
}

// NewArtifactDetector creates an artifact detector for spectra of
// fftSize/2+1 bins
func NewArtifactDetector(cfg config.ArtifactConfig, sampleRate, fftSize int) *ArtifactDetector {
	return &ArtifactDetector{
		config:     cfg,
		sampleRate: sampleRate,
		power:      spectral.NewPowerSpectrum(sampleRate, fftSize),
		autocorr:   stats.NewAutoCorrelation(cfg.CombMaxLag+1, true),
		logger: logging.WithFields(logging.Fields{
			"component": "artifact_detector",
		}),
	}
}

func (ad *ArtifactDetector) Name() string {
	return "artifact"
}

// Analyze emits phase_consistency_score, periodic_artifact_score,
// hf_consistency and the combined artifact_score
func (ad *ArtifactDetector) Analyze(fs *FrameSet) (common.FeatureVector, error) {
	phase := ad.PhaseConsistency(fs)
	periodic, err := ad.PeriodicArtifacts(fs)
	if err != nil {
		return common.FeatureVector{}, common.NewFeatureExtractionError("AUTOCORRELATION_FAILED",
			"spectral periodicity scan failed", err)
	}
	hf := ad.HighBandConsistency(fs)
	score := ad.Score(phase, periodic)

	ad.logger.Debug("Artifact features extracted", logging.Fields{
		"phase_consistency": phase,
		"periodic":          periodic,
		"hf_consistency":    hf,
		"artifact_score":    score,
	})

	return fragment(ad.Name(), map[string]float64{
		"phase_consistency_score": phase,
		"periodic_artifact_score": periodic,
		"hf_consistency":          hf,
		"artifact_score":          score,
	})
}

// Score combines phase consistency and comb periodicity into [0, 1]. Phase
// consistency only counts above the random-phase level.
func (ad *ArtifactDetector) Score(phaseConsistency, periodic float64) float64 {
	phaseExcess := math.Max(0, (phaseConsistency-noPhaseEvidence)/(1-noPhaseEvidence))
	return stats.Clamp01(ad.config.PhaseWeight*phaseExcess + ad.config.CombWeight*periodic)
}

// PhaseConsistency measures how steadily each strong bin's phase deviates
// from the advance expected for its center frequency. Over three
// consecutive frames the change in deviation is 0 for a stationary
// partial and uniform for noise.
func (ad *ArtifactDetector) PhaseConsistency(fs *FrameSet) float64 {
	stft := fs.Spectrum
	if stft.TimeFrames < 3 {
		return noPhaseEvidence
	}

	qualifies := make([][]bool, stft.TimeFrames)
	for t, magnitude := range stft.Magnitude {
		if fs.RMS[t] < ad.config.EnergyFloor {
			continue
		}
		floor := floats.Max(magnitude) * math.Pow(10, -ad.config.PhaseFloorDB/20)
		qualifies[t] = make([]bool, len(magnitude))
		for k, m := range magnitude {
			qualifies[t][k] = m > 0 && m >= floor
		}
	}

	advance := 2 * math.Pi * float64(stft.HopSize) / float64(stft.FFTSize)
	sum, count := 0.0, 0

	for t := 1; t+1 < stft.TimeFrames; t++ {
		prev, cur, next := qualifies[t-1], qualifies[t], qualifies[t+1]
		if prev == nil || cur == nil || next == nil {
			continue
		}
		for k := range stft.FreqBins {
			if !prev[k] || !cur[k] || !next[k] {
				continue
			}
			expected := advance * float64(k)
			d1 := wrapPhase(stft.Phase[t][k] - stft.Phase[t-1][k] - expected)
			d2 := wrapPhase(stft.Phase[t+1][k] - stft.Phase[t][k] - expected)
			sum += math.Abs(wrapPhase(d2 - d1))
			count++
		}
	}

	if count == 0 {
		return noPhaseEvidence
	}
	return stats.Clamp01(1 - sum/float64(count)/math.Pi)
}

// PeriodicArtifacts averages, over energetic frames, the strongest
// autocorrelation peak of the mean-removed magnitude spectrum within the
// configured lag range
func (ad *ArtifactDetector) PeriodicArtifacts(fs *FrameSet) (float64, error) {
	sum, frames := 0.0, 0
	for t, magnitude := range fs.Spectrum.Magnitude {
		if fs.RMS[t] < ad.config.EnergyFloor {
			continue
		}
		r, err := ad.autocorr.Compute(magnitude)
		if err != nil {
			return 0, err
		}
		peak, lag := stats.MaxPeak(r, ad.config.CombMinLag, ad.config.CombMaxLag)
		if lag > 0 {
			sum += stats.Clamp01(peak)
		}
		frames++
	}

	if frames == 0 {
		return 0, nil
	}
	return sum / float64(frames), nil
}

// HighBandConsistency is 1 minus the coefficient of variation of per-frame
// energy above HighBandHz. A band holding a negligible share of the total
// energy reports 0.
func (ad *ArtifactDetector) HighBandConsistency(fs *FrameSet) float64 {
	nyquist := float64(ad.sampleRate)/2 + 1
	high := ad.power.BandEnergyFrames(fs.Spectrum.Magnitude, ad.config.HighBandHz, nyquist)
	total := ad.power.BandEnergyFrames(fs.Spectrum.Magnitude, 0, nyquist)

	totalEnergy := floats.Sum(total)
	if totalEnergy <= 0 || floats.Sum(high)/totalEnergy < ad.config.HighBandRel {
		return 0
	}

	var energetic []float64
	for t, e := range high {
		if fs.RMS[t] >= ad.config.EnergyFloor {
			energetic = append(energetic, e)
		}
	}
	if len(energetic) < 2 {
		return 0
	}

	return stats.Clamp01(1 - stats.Summarize(energetic).CV)
}

// wrapPhase maps an angle to (-π, π]
func wrapPhase(phase float64) float64 {
	wrapped := math.Mod(phase+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}
