package analyzers

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RyanBlaney/sonido-veraz/algorithms/speech"
	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
)

const testRate = 16000

func sineSignal(freq float64, seconds float64) *common.AudioSignal {
	samples := make([]float64, int(seconds*testRate))
	for i := range samples {
		samples[i] = 0.9 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return &common.AudioSignal{Samples: samples, SampleRate: testRate}
}

func noiseSignal(seconds float64, seed int64) *common.AudioSignal {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]float64, int(seconds*testRate))
	for i := range samples {
		samples[i] = rng.Float64() - 0.5
	}
	return &common.AudioSignal{Samples: samples, SampleRate: testRate}
}

// vibratoSignal is a tone whose frequency wobbles around center
func vibratoSignal(center, depth, rate, seconds float64) *common.AudioSignal {
	samples := make([]float64, int(seconds*testRate))
	phase := 0.0
	for i := range samples {
		t := float64(i) / testRate
		f := center * (1 + depth*math.Sin(2*math.Pi*rate*t))
		phase += 2 * math.Pi * f / testRate
		samples[i] = 0.9 * math.Sin(phase)
	}
	return &common.AudioSignal{Samples: samples, SampleRate: testRate}
}

// gatedSignal alternates tone bursts with silence
func gatedSignal(seconds float64) *common.AudioSignal {
	s := sineSignal(300, seconds)
	period := testRate / 4
	for i := range s.Samples {
		if (i/period)%2 == 1 {
			s.Samples[i] = 0
		}
	}
	return s
}

type AnalyzersTestSuite struct {
	suite.Suite
	cfg *config.Config
}

func (s *AnalyzersTestSuite) SetupTest() {
	s.cfg = config.DefaultConfig()
}

func (s *AnalyzersTestSuite) frames(signal *common.AudioSignal) *FrameSet {
	fs, err := NewFrameSet(signal, s.cfg.Frames)
	s.Require().NoError(err)
	return fs
}

func (s *AnalyzersTestSuite) feature(fv common.FeatureVector, name string) float64 {
	v, ok := fv.Get(name)
	s.Require().True(ok, "missing feature %s", name)
	return v
}

func (s *AnalyzersTestSuite) TestFrameSetDropsPartialFrame() {
	signal := &common.AudioSignal{Samples: make([]float64, 1000), SampleRate: testRate}
	signal.Samples[0] = 1

	fs := s.frames(signal)
	s.Equal(4, fs.NumFrames())
	s.Equal(4, fs.Spectrum.TimeFrames)
	s.Len(fs.RMS, 4)
	s.Equal(257, fs.Spectrum.FreqBins)
	s.Equal(1.0, fs.Frames[0][0])
	s.Len(fs.Frames[3], 400)
}

func (s *AnalyzersTestSuite) TestFrameSetErrors() {
	_, err := NewFrameSet(&common.AudioSignal{Samples: make([]float64, 100), SampleRate: testRate}, s.cfg.Frames)
	s.ErrorIs(err, common.ErrEmptySignal)

	_, err = NewFrameSet(nil, s.cfg.Frames)
	s.ErrorIs(err, common.ErrEmptySignal)

	bad := s.cfg.Frames
	bad.HopSize = bad.FrameSize
	_, err = NewFrameSet(sineSignal(440, 0.5), bad)
	s.Error(err)
}

func (s *AnalyzersTestSuite) TestFactoryCreatesAllAnalyzers() {
	all, err := NewFactory().CreateAll(s.cfg, testRate)
	s.Require().NoError(err)

	var names []string
	for _, a := range all {
		names = append(names, a.Name())
	}
	s.Equal([]string{"spectral", "cepstral", "temporal", "pitch", "artifact"}, names)

	// fragments never collide
	fs := s.frames(sineSignal(440, 1))
	var fragments []common.FeatureVector
	for _, a := range all {
		fv, err := a.Analyze(fs)
		s.Require().NoError(err, a.Name())
		fragments = append(fragments, fv)
	}
	merged, err := common.Merge(fragments...)
	s.Require().NoError(err)
	s.NoError(merged.Validate())
}

func (s *AnalyzersTestSuite) TestSpectralSineIsStableAndTonal() {
	a, err := NewSpectralAnalyzer(s.cfg.Spectral, testRate, s.cfg.Frames.FFTSize)
	s.Require().NoError(err)

	tone, err := a.Analyze(s.frames(sineSignal(1000, 1)))
	s.Require().NoError(err)
	s.InDelta(1000, s.feature(tone, "spectral_centroid_mean"), 100)
	s.Less(s.feature(tone, "spectral_centroid_cv"), 0.05)
	s.Less(s.feature(tone, "spectral_flatness_mean"), 0.1)

	noise, err := a.Analyze(s.frames(noiseSignal(1, 1)))
	s.Require().NoError(err)
	s.Greater(s.feature(noise, "spectral_flatness_mean"), 0.4)
	s.Greater(s.feature(noise, "spectral_centroid_mean"), 3000.0)
	s.Greater(s.feature(noise, "spectral_flux_mean"), s.feature(tone, "spectral_flux_mean"))
}

func (s *AnalyzersTestSuite) TestSpectralSilentFramesUseSentinel() {
	s.cfg.Spectral.FlatnessSentinel = 0.25
	a, err := NewSpectralAnalyzer(s.cfg.Spectral, testRate, s.cfg.Frames.FFTSize)
	s.Require().NoError(err)

	silent := &common.AudioSignal{Samples: make([]float64, testRate/2), SampleRate: testRate}
	fv, err := a.Analyze(s.frames(silent))
	s.Require().NoError(err)
	s.Equal(0.25, s.feature(fv, "spectral_flatness_mean"))
	s.Equal(0.0, s.feature(fv, "spectral_flatness_variance"))
	s.Equal(0.0, s.feature(fv, "spectral_contrast_mean"))
	s.False(fv.Has("chroma_mean"))
	s.False(fv.Has("chroma_consistency"))
	s.False(fv.Has("tonnetz_mean"))
}

func (s *AnalyzersTestSuite) TestSpectralContrastAndChroma() {
	a, err := NewSpectralAnalyzer(s.cfg.Spectral, testRate, s.cfg.Frames.FFTSize)
	s.Require().NoError(err)

	tone, err := a.Analyze(s.frames(sineSignal(440, 1)))
	s.Require().NoError(err)
	noise, err := a.Analyze(s.frames(noiseSignal(1, 3)))
	s.Require().NoError(err)

	// a pure tone is one sharp peak per band against a deep valley
	s.Greater(s.feature(tone, "spectral_contrast_mean"), s.feature(noise, "spectral_contrast_mean"))
	s.Greater(s.feature(noise, "spectral_contrast_mean"), 0.0)
	s.GreaterOrEqual(s.feature(tone, "spectral_contrast_variance"), 0.0)

	s.Less(s.feature(tone, "spectral_bandwidth_cv"), 0.05)

	// A4 lights one pitch class; noise spreads over all twelve
	s.Less(s.feature(tone, "chroma_mean"), 0.3)
	s.Greater(s.feature(noise, "chroma_mean"), s.feature(tone, "chroma_mean"))
	s.Less(s.feature(noise, "chroma_consistency"), s.feature(tone, "chroma_consistency"))
	s.InDelta(s.feature(tone, "chroma_std")/s.feature(tone, "chroma_mean"),
		s.feature(tone, "chroma_consistency"), 1e-9)

	// a single pitch class sits on the tonal centroid rim, noise near the origin
	s.Greater(s.feature(tone, "tonnetz_std"), s.feature(noise, "tonnetz_std"))
}

func (s *AnalyzersTestSuite) TestSpectralRejectsBadContrastConfig() {
	s.cfg.Spectral.ContrastMinFreq = float64(testRate)
	_, err := NewSpectralAnalyzer(s.cfg.Spectral, testRate, s.cfg.Frames.FFTSize)
	s.Error(err)

	s.cfg = config.DefaultConfig()
	s.cfg.Spectral.ChromaTuning = 0
	_, err = NewSpectralAnalyzer(s.cfg.Spectral, testRate, s.cfg.Frames.FFTSize)
	s.Error(err)
}

func (s *AnalyzersTestSuite) TestSharedAnalyzersAcrossGoroutines() {
	cepstral, err := NewCepstralAnalyzer(s.cfg.MFCC, testRate, s.cfg.Frames.FFTSize)
	s.Require().NoError(err)
	spectralAnalyzer, err := NewSpectralAnalyzer(s.cfg.Spectral, testRate, s.cfg.Frames.FFTSize)
	s.Require().NoError(err)

	fs := s.frames(vibratoSignal(220, 0.03, 5, 1))
	all := []Analyzer{cepstral, spectralAnalyzer}

	want := make([]common.FeatureVector, len(all))
	for i, a := range all {
		want[i], err = a.Analyze(fs)
		s.Require().NoError(err)
	}

	var wg sync.WaitGroup
	got := make([][]common.FeatureVector, 4)
	errs := make([][]error, 4)
	for g := range got {
		got[g] = make([]common.FeatureVector, len(all))
		errs[g] = make([]error, len(all))
		for i, a := range all {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got[g][i], errs[g][i] = a.Analyze(fs)
			}()
		}
	}
	wg.Wait()

	for g := range got {
		for i := range all {
			s.Require().NoError(errs[g][i])
			s.Equal(want[i].Values(), got[g][i].Values())
		}
	}
}

func (s *AnalyzersTestSuite) TestCepstralSineIsSmootherThanNoise() {
	a, err := NewCepstralAnalyzer(s.cfg.MFCC, testRate, s.cfg.Frames.FFTSize)
	s.Require().NoError(err)

	tone, err := a.Analyze(s.frames(sineSignal(440, 1)))
	s.Require().NoError(err)
	noise, err := a.Analyze(s.frames(noiseSignal(1, 2)))
	s.Require().NoError(err)

	s.Equal(2*13+5, tone.Len())
	s.LessOrEqual(s.feature(tone, "mel_db_mean"), 0.0)
	s.GreaterOrEqual(s.feature(tone, "mel_db_mean"), -80.0)
	// a tone leaves most mel bands at the floor, noise fills them
	s.Greater(s.feature(noise, "mel_db_mean"), s.feature(tone, "mel_db_mean"))
	s.Less(s.feature(tone, "mfcc_delta_variance"), 0.1)
	s.Greater(s.feature(noise, "mfcc_delta_variance"), s.feature(tone, "mfcc_delta_variance"))
}

func (s *AnalyzersTestSuite) TestCepstralSkipsSilentFrames() {
	a, err := NewCepstralAnalyzer(s.cfg.MFCC, testRate, s.cfg.Frames.FFTSize)
	s.Require().NoError(err)

	withGaps, err := a.Analyze(s.frames(gatedSignal(1)))
	s.Require().NoError(err)
	s.NoError(withGaps.Validate())

	silent := &common.AudioSignal{Samples: make([]float64, testRate/2), SampleRate: testRate}
	_, err = a.Analyze(s.frames(silent))
	s.ErrorIs(err, common.ErrFeatureExtraction)
}

func (s *AnalyzersTestSuite) TestTemporalEnergyDynamics() {
	a := NewTemporalAnalyzer(s.cfg.Temporal, testRate)

	steady, err := a.Analyze(s.frames(sineSignal(440, 1)))
	s.Require().NoError(err)
	s.Less(s.feature(steady, "energy_cv"), 0.01)
	s.Equal(0.0, s.feature(steady, "pause_ratio"))
	s.InDelta(1.0, s.feature(steady, "energy_consistency"), 0.01)
	s.InDelta(22.0/399, s.feature(steady, "zcr_mean"), 0.005)

	gated, err := a.Analyze(s.frames(gatedSignal(1)))
	s.Require().NoError(err)
	s.Greater(s.feature(gated, "energy_cv"), 0.5)
	s.Greater(s.feature(gated, "pause_ratio"), 0.3)
}

func (s *AnalyzersTestSuite) TestPitchTracksSine() {
	a, err := NewPitchAnalyzer(s.cfg.Pitch, testRate, s.cfg.Frames.HopSize)
	s.Require().NoError(err)

	fv, err := a.Analyze(s.frames(sineSignal(220, 1)))
	s.Require().NoError(err)

	s.Equal(1.0, s.feature(fv, "pitch_detected"))
	s.Greater(s.feature(fv, "pitch_voiced_ratio"), 0.9)
	s.InDelta(220, s.feature(fv, "pitch_mean"), 2)
	s.Less(s.feature(fv, "pitch_jitter"), 0.001)
	s.Less(s.feature(fv, "pitch_cv"), 0.01)
}

func (s *AnalyzersTestSuite) TestPitchVibratoHasJitter() {
	a, err := NewPitchAnalyzer(s.cfg.Pitch, testRate, s.cfg.Frames.HopSize)
	s.Require().NoError(err)

	steady, err := a.Analyze(s.frames(sineSignal(200, 1)))
	s.Require().NoError(err)
	wobbly, err := a.Analyze(s.frames(vibratoSignal(200, 0.08, 5, 1)))
	s.Require().NoError(err)

	s.Greater(s.feature(wobbly, "pitch_jitter"), s.feature(steady, "pitch_jitter"))
	s.Greater(s.feature(wobbly, "pitch_cv"), 0.03)
}

func (s *AnalyzersTestSuite) TestPitchNoiseOmitsPitchFeatures() {
	a, err := NewPitchAnalyzer(s.cfg.Pitch, testRate, s.cfg.Frames.HopSize)
	s.Require().NoError(err)

	fv, err := a.Analyze(s.frames(noiseSignal(1, 3)))
	s.Require().NoError(err)

	s.Equal(0.0, s.feature(fv, "pitch_detected"))
	s.False(fv.Has("pitch_jitter"))
	s.False(fv.Has("pitch_cv"))
	s.False(fv.Has("formant_transition_smoothness"))
}

func (s *AnalyzersTestSuite) TestPitchIsolatedVoicedFramesOmitJitter() {
	a, err := NewPitchAnalyzer(s.cfg.Pitch, testRate, s.cfg.Frames.HopSize)
	s.Require().NoError(err)

	// four voiced frames, none adjacent to another
	periods := []float64{100, 0, 130, 0, 90, 0, 120}
	fv, err := a.Features(&PitchTrack{
		Periods:  periods,
		Formants: make([]*speech.FormantResult, len(periods)),
	})
	s.Require().NoError(err)

	s.Equal(1.0, s.feature(fv, "pitch_detected"))
	s.InDelta(4.0/7.0, s.feature(fv, "pitch_voiced_ratio"), 1e-12)
	s.Greater(s.feature(fv, "pitch_cv"), 0.0)
	s.False(fv.Has("pitch_jitter"))
	s.False(fv.Has("formant_transition_rate"))

	// one adjacent pair is enough to measure it
	periods[1] = 104
	fv, err = a.Features(&PitchTrack{
		Periods:  periods,
		Formants: make([]*speech.FormantResult, len(periods)),
	})
	s.Require().NoError(err)
	s.Greater(s.feature(fv, "pitch_jitter"), 0.0)
}

func (s *AnalyzersTestSuite) TestPitchRejectsShortFrame() {
	s.cfg.Pitch.PitchFrameSize = 200
	_, err := NewPitchAnalyzer(s.cfg.Pitch, testRate, s.cfg.Frames.HopSize)
	s.Error(err)
}

func (s *AnalyzersTestSuite) TestArtifactSineIsCoherent() {
	a := NewArtifactDetector(s.cfg.Artifact, testRate, s.cfg.Frames.FFTSize)

	tone, err := a.Analyze(s.frames(sineSignal(440, 1)))
	s.Require().NoError(err)
	noise, err := a.Analyze(s.frames(noiseSignal(1, 4)))
	s.Require().NoError(err)

	s.Greater(s.feature(tone, "phase_consistency_score"), 0.9)
	s.Less(s.feature(noise, "phase_consistency_score"), 0.75)
	s.Greater(s.feature(tone, "artifact_score"), s.feature(noise, "artifact_score"))
	s.Equal(0.0, s.feature(tone, "hf_consistency"))
	s.Greater(s.feature(noise, "hf_consistency"), 0.5)

	for _, fv := range []common.FeatureVector{tone, noise} {
		for _, key := range fv.Keys() {
			v := s.feature(fv, key)
			s.GreaterOrEqual(v, 0.0, key)
			s.LessOrEqual(v, 1.0, key)
		}
	}
}

func (s *AnalyzersTestSuite) TestArtifactScoreIsMonotone() {
	a := NewArtifactDetector(s.cfg.Artifact, testRate, s.cfg.Frames.FFTSize)

	s.Equal(0.0, a.Score(0.5, 0))
	s.Equal(0.0, a.Score(0.2, 0))
	s.InDelta(1.0, a.Score(1, 1), 1e-12)

	prev := -1.0
	for i := 0; i <= 10; i++ {
		score := a.Score(0.5+float64(i)/20, 0.3)
		s.Greater(score, prev)
		prev = score
	}
}

func TestAnalyzersTestSuite(t *testing.T) {
	suite.Run(t, new(AnalyzersTestSuite))
}

func TestWrapPhase(t *testing.T) {
	assert.InDelta(t, 0.0, wrapPhase(2*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, wrapPhase(math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, wrapPhase(-math.Pi), 1e-12)
	assert.InDelta(t, -math.Pi/2, wrapPhase(3*math.Pi/2), 1e-12)
	assert.InDelta(t, 0.5, wrapPhase(0.5+6*math.Pi), 1e-9)
}

func TestFormantTransitions(t *testing.T) {
	track := []*speech.FormantResult{
		{Formants: []float64{500, 1500}},
		{Formants: []float64{520, 1540, 2500}},
		nil,
		{Formants: []float64{600, 1600}},
		{Formants: []float64{600, 1700}},
		{Formants: []float64{650}},
	}
	f1, f2, rates := formantTransitions(track)
	require.Len(t, rates, 2)
	assert.InDelta(t, 30, rates[0], 1e-12)
	assert.InDelta(t, 50, rates[1], 1e-12)
	assert.Len(t, f1, 4)
	assert.Len(t, f2, 4)
}
