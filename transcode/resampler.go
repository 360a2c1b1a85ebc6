package transcode

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts a mono signal between sample rates with a high quality
// polyphase resampler. The output holds round(len*to/from) samples and
// output sample i lines up with input time i*from/to.
func Resample(samples []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: %d -> %d", fromRate, toRate)
	}
	if fromRate == toRate || len(samples) == 0 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	calibration, err := newResampler(fromRate, toRate)
	if err != nil {
		return nil, err
	}
	lead := guardSamples(calibration, fromRate, toRate)

	start, err := impulseOffset(calibration, lead)
	if err != nil {
		return nil, err
	}

	// zeros on both sides keep the filter's head and tail inside the output
	padded := make([]float64, len(samples)+2*lead)
	copy(padded[lead:], samples)

	resampler, err := newResampler(fromRate, toRate)
	if err != nil {
		return nil, err
	}
	output, err := drain(resampler, padded)
	if err != nil {
		return nil, err
	}

	want := int(math.Round(float64(len(samples)) * float64(toRate) / float64(fromRate)))
	if start+want > len(output) {
		return nil, fmt.Errorf("resampler returned %d samples, need %d from offset %d", len(output), want, start)
	}

	out := make([]float64, want)
	copy(out, output[start:start+want])
	return out, nil
}

func newResampler(fromRate, toRate int) (resampling.Resampler, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	return r, nil
}

// drain runs input through r and appends whatever the filter still holds
func drain(r resampling.Resampler, input []float64) ([]float64, error) {
	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush error: %w", err)
	}
	return append(output, tail...), nil
}

// guardSamples is the zero padding, in input samples, placed before and
// after the signal: twice the reported filter latency plus 10 ms
func guardSamples(r resampling.Resampler, fromRate, toRate int) int {
	latencyIn := int(math.Ceil(float64(r.GetLatency()) * float64(fromRate) / float64(toRate)))
	return 2*latencyIn + fromRate/100
}

// impulseOffset returns the output index at which r places an impulse fed
// at input index lead. A signal padded with lead zeros starts there.
func impulseOffset(r resampling.Resampler, lead int) (int, error) {
	impulse := make([]float64, 2*lead+1)
	impulse[lead] = 1

	response, err := drain(r, impulse)
	if err != nil {
		return 0, err
	}
	if len(response) == 0 {
		return 0, fmt.Errorf("resampler produced no output for a %d sample impulse", len(impulse))
	}

	peak := 0
	for i, v := range response {
		if math.Abs(v) > math.Abs(response[peak]) {
			peak = i
		}
	}
	return peak, nil
}
