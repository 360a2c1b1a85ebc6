package transcode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// errUnsupportedWAV marks WAV payloads (float or compressed) that go-audio
// cannot turn into integer PCM; callers fall back to ffmpeg
var errUnsupportedWAV = errors.New("unsupported WAV encoding")

const wavFormatPCM = 1

// isWAV sniffs the RIFF/WAVE header
func isWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

// DecodeWAV decodes integer PCM WAV into interleaved samples in [-1, 1]
func DecodeWAV(r io.ReadSeeker) (*AudioData, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: format tag %d", errUnsupportedWAV, decoder.WavAudioFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV samples: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: bit depth %d", errUnsupportedWAV, bitDepth)
	}
	if len(buf.Data) == 0 {
		return nil, ErrNoAudio
	}

	// 8-bit WAV is unsigned
	offset := 0.0
	if bitDepth == 8 {
		offset = 128
	}

	maxVal := float64(int64(1) << (uint(bitDepth) - 1))
	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = (float64(v) - offset) / maxVal
	}

	data := NewAudioData(samples, int(decoder.SampleRate), int(decoder.NumChans))
	data.Format = "wav"
	return data, nil
}

// EncodeWAV writes interleaved samples in [-1, 1] as integer PCM WAV.
// Samples outside the range are clipped.
func EncodeWAV(w io.WriteSeeker, data *AudioData, bitDepth int) error {
	if data == nil || data.SampleRate <= 0 || data.Channels <= 0 {
		return fmt.Errorf("invalid audio data")
	}
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	maxVal := float64(int64(1)<<(uint(bitDepth)-1)) - 1
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	ints := make([]int, len(data.PCM))
	for i, s := range data.PCM {
		s = math.Max(-1, math.Min(1, s))
		ints[i] = int(math.Round(s*maxVal)) + offset
	}

	encoder := wav.NewEncoder(w, data.SampleRate, bitDepth, data.Channels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: data.Channels,
			SampleRate:  data.SampleRate,
		},
		Data:           ints,
		SourceBitDepth: bitDepth,
	}

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV samples: %w", err)
	}
	return encoder.Close()
}
