package prep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	algocommon "github.com/RyanBlaney/sonido-veraz/algorithms/common"
	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/transcode"
)

func sine(freq, amplitude float64, sampleRate int, seconds float64) []float64 {
	out := make([]float64, int(seconds*float64(sampleRate)))
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func interleave(channels ...[]float64) []float64 {
	out := make([]float64, 0, len(channels)*len(channels[0]))
	for i := range channels[0] {
		for _, ch := range channels {
			out = append(out, ch[i])
		}
	}
	return out
}

func newPreparer(t *testing.T, mutate ...func(*config.PrepConfig)) *Preparer {
	t.Helper()
	cfg := config.DefaultConfig().Prep
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := NewPreparer(cfg)
	require.NoError(t, err)
	return p
}

func TestPrepareMonoAtTargetRate(t *testing.T) {
	p := newPreparer(t)
	audio := transcode.NewAudioData(sine(440, 0.5, 16000, 1), 16000, 1)

	signal, err := p.Prepare(audio)
	require.NoError(t, err)

	assert.Equal(t, 16000, signal.SampleRate)
	assert.InDelta(t, 16000, len(signal.Samples), 320)
	assert.InDelta(t, 0.95, algocommon.Peak(signal.Samples), 1e-9)
}

func TestPrepareDownmixesAndResamples(t *testing.T) {
	p := newPreparer(t)
	left := sine(440, 0.6, 44100, 1)
	right := sine(440, 0.2, 44100, 1)
	audio := transcode.NewAudioData(interleave(left, right), 44100, 2)

	signal, err := p.Prepare(audio)
	require.NoError(t, err)

	assert.Equal(t, 16000, signal.SampleRate)
	assert.InDelta(t, 16000, len(signal.Samples), 400)
	assert.InDelta(t, 0.95, algocommon.Peak(signal.Samples), 1e-9)
	assert.InDelta(t, 1.0, signal.Seconds(), 0.03)
}

func TestPrepareTrimsSilence(t *testing.T) {
	p := newPreparer(t)

	var pcm []float64
	pcm = append(pcm, make([]float64, 8000)...)
	pcm = append(pcm, sine(300, 0.5, 16000, 1)...)
	pcm = append(pcm, make([]float64, 8000)...)

	signal, err := p.Prepare(transcode.NewAudioData(pcm, 16000, 1))
	require.NoError(t, err)
	assert.InDelta(t, 16000, len(signal.Samples), 700)
}

func TestPrepareRemovesDCOffset(t *testing.T) {
	p := newPreparer(t)
	pcm := sine(500, 0.3, 16000, 1)
	floats.AddConst(0.4, pcm)

	signal, err := p.Prepare(transcode.NewAudioData(pcm, 16000, 1))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, stat.Mean(signal.Samples, nil), 0.01)
}

func TestPrepareRMSNormalization(t *testing.T) {
	p := newPreparer(t, func(c *config.PrepConfig) {
		c.Normalization = "rms"
		c.TargetRMS = 0.1
	})

	signal, err := p.Prepare(transcode.NewAudioData(sine(440, 0.8, 16000, 1), 16000, 1))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, algocommon.RMS(signal.Samples), 1e-3)
}

func TestPrepareDoesNotMutateInput(t *testing.T) {
	p := newPreparer(t)
	pcm := sine(440, 0.3, 16000, 0.5)
	original := append([]float64(nil), pcm...)

	_, err := p.Prepare(transcode.NewAudioData(pcm, 16000, 1))
	require.NoError(t, err)
	assert.Equal(t, original, pcm)
}

func TestPrepareErrors(t *testing.T) {
	p := newPreparer(t)

	nonFinite := sine(440, 0.5, 16000, 0.5)
	nonFinite[100] = math.NaN()

	infinite := sine(440, 0.5, 16000, 0.5)
	infinite[5] = math.Inf(1)

	var shortTone []float64
	shortTone = append(shortTone, make([]float64, 4000)...)
	shortTone = append(shortTone, sine(440, 0.5, 16000, 0.1)...)
	shortTone = append(shortTone, make([]float64, 4000)...)

	tests := []struct {
		name  string
		audio *transcode.AudioData
		want  error
	}{
		{"nil audio", nil, common.ErrDecode},
		{"no samples", &transcode.AudioData{SampleRate: 16000, Channels: 1}, common.ErrEmptySignal},
		{"zero sample rate", &transcode.AudioData{PCM: []float64{0.1}, Channels: 1}, common.ErrDecode},
		{"zero channels", &transcode.AudioData{PCM: []float64{0.1}, SampleRate: 16000}, common.ErrDecode},
		{"ragged channels", &transcode.AudioData{PCM: []float64{0.1, 0.2, 0.3}, SampleRate: 16000, Channels: 2}, common.ErrDecode},
		{"NaN sample", transcode.NewAudioData(nonFinite, 16000, 1), common.ErrDecode},
		{"Inf sample", transcode.NewAudioData(infinite, 16000, 1), common.ErrDecode},
		{"all silence", transcode.NewAudioData(make([]float64, 16000), 16000, 1), common.ErrEmptySignal},
		{"below min duration after trim", transcode.NewAudioData(shortTone, 16000, 1), common.ErrEmptySignal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal, err := p.Prepare(tt.audio)
			require.Error(t, err)
			assert.Nil(t, signal)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewPreparerRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig().Prep
	cfg.Normalization = "loudness"
	_, err := NewPreparer(cfg)
	assert.Error(t, err)

	cfg = config.DefaultConfig().Prep
	cfg.TargetSampleRate = 0
	_, err = NewPreparer(cfg)
	assert.Error(t, err)
}
