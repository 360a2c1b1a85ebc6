package transcode

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, sampleRate, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func writeWAV(t *testing.T, data *AudioData) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, EncodeWAV(f, data, 16))
	require.NoError(t, f.Close())
	return path
}

func TestWAVRoundTrip(t *testing.T) {
	// stereo: left is a tone, right is silence
	left := sine(440, 16000, 1600, 0.5)
	pcm := make([]float64, 0, 3200)
	for _, s := range left {
		pcm = append(pcm, s, 0)
	}
	path := writeWAV(t, NewAudioData(pcm, 16000, 2))

	decoded, err := NewDecoder(nil).DecodeFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 16000, decoded.SampleRate)
	assert.Equal(t, 2, decoded.Channels)
	assert.Equal(t, "wav", decoded.Format)
	assert.Equal(t, 100*time.Millisecond, decoded.Duration)
	require.Len(t, decoded.PCM, len(pcm))
	assert.InDeltaSlice(t, pcm, decoded.PCM, 1e-4)
}

func TestDecodeBytesAndBase64(t *testing.T) {
	path := writeWAV(t, NewAudioData(sine(220, 8000, 800, 0.25), 8000, 1))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	dec := NewDecoder(nil)
	ctx := context.Background()

	fromBytes, err := dec.DecodeBytes(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, 8000, fromBytes.SampleRate)
	assert.Len(t, fromBytes.PCM, 800)

	fromReader, err := dec.DecodeReader(ctx, bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, fromBytes.PCM, fromReader.PCM)

	encoded := base64.StdEncoding.EncodeToString(raw)
	fromB64, err := dec.DecodeBase64(ctx, encoded)
	require.NoError(t, err)
	assert.Equal(t, fromBytes.PCM, fromB64.PCM)

	fromDataURL, err := dec.DecodeBase64(ctx, "data:audio/wav;base64,"+encoded)
	require.NoError(t, err)
	assert.Equal(t, fromBytes.PCM, fromDataURL.PCM)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	dec := NewDecoder(nil)
	ctx := context.Background()

	_, err := dec.DecodeBytes(ctx, nil)
	assert.Error(t, err)

	_, err = dec.DecodeBase64(ctx, "not base64 !!")
	assert.Error(t, err)

	_, err = dec.DecodeFile(ctx, filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestMaxDurationTruncatesWAV(t *testing.T) {
	path := writeWAV(t, NewAudioData(sine(440, 16000, 16000, 0.5), 16000, 1))

	dec := NewDecoder(&DecoderConfig{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		MaxDuration: 250 * time.Millisecond,
	})
	require.NoError(t, dec.ValidateConfig())

	decoded, err := dec.DecodeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, decoded.PCM, 4000)
	assert.Equal(t, 250*time.Millisecond, decoded.Duration)
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, NewDecoder(nil).ValidateConfig())
	assert.Error(t, NewDecoder(&DecoderConfig{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe", Timeout: -time.Second}).ValidateConfig())
	assert.Error(t, NewDecoder(&DecoderConfig{}).ValidateConfig())
}

func TestParseFFprobeOutput(t *testing.T) {
	meta, err := parseFFprobeOutput([]byte(`{"streams":[{"codec_type":"audio","codec_name":"mp3",
		"sample_rate":"44100","channels":2,"duration":"3.5","bit_rate":"128000"}]}`))
	require.NoError(t, err)
	assert.Equal(t, &AudioMetadata{SampleRate: 44100, Channels: 2, Codec: "mp3", Duration: 3.5, Bitrate: 128000}, meta)

	_, err = parseFFprobeOutput([]byte(`{"streams":[]}`))
	assert.Error(t, err)

	_, err = parseFFprobeOutput([]byte(`{"streams":[{"codec_type":"video"}]}`))
	assert.Error(t, err)

	_, err = parseFFprobeOutput([]byte(`not json`))
	assert.Error(t, err)
}

func TestBytesToFloat64(t *testing.T) {
	buf := make([]byte, 17)
	binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(0.5))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(-0.25))

	assert.Equal(t, []float64{0.5, -0.25}, bytesToFloat64(buf))
	assert.Nil(t, bytesToFloat64(buf[:7]))
}

func TestResample(t *testing.T) {
	in := sine(440, 48000, 48000, 0.5)

	out, err := Resample(in, 48000, 16000)
	require.NoError(t, err)
	require.Len(t, out, 16000)

	// compare the level of the steady middle part
	mid := out[4000:12000]
	sum := 0.0
	for _, s := range mid {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(mid)))
	assert.InDelta(t, 0.5/math.Sqrt2, rms, 0.03)

	same, err := Resample(in[:10], 16000, 16000)
	require.NoError(t, err)
	assert.Equal(t, in[:10], same)

	_, err = Resample(in, 0, 16000)
	assert.Error(t, err)
}

func TestResampleKeepsTimingAndTail(t *testing.T) {
	for _, fromRate := range []int{8000, 44100, 48000} {
		t.Run(fmt.Sprintf("%d", fromRate), func(t *testing.T) {
			// half a second of silence, then half a second of full-scale tone
			in := make([]float64, fromRate)
			copy(in[fromRate/2:], sine(440, fromRate, fromRate/2, 1.0))

			out, err := Resample(in, fromRate, 16000)
			require.NoError(t, err)
			require.Len(t, out, 16000)

			onset := -1
			for i, s := range out {
				if math.Abs(s) > 0.25 {
					onset = i
					break
				}
			}
			assert.InDelta(t, 8000, onset, 16, "tone should start at 0.5 s")

			tailPeak := 0.0
			for _, s := range out[len(out)-100:] {
				tailPeak = math.Max(tailPeak, math.Abs(s))
			}
			assert.Greater(t, tailPeak, 0.5, "last samples must carry the tone")
		})
	}
}

func TestNewAudioDataDuration(t *testing.T) {
	data := NewAudioData(make([]float64, 32000), 16000, 2)
	assert.Equal(t, time.Second, data.Duration)

	assert.Equal(t, time.Duration(0), NewAudioData(nil, 0, 1).Duration)
}
