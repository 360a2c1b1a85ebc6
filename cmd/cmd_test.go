package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/transcode"
)

func writeSineWAV(t *testing.T, freq, seconds float64) string {
	t.Helper()
	sampleRate := 16000
	pcm := make([]float64, int(seconds*float64(sampleRate)))
	for i := range pcm {
		pcm[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, transcode.EncodeWAV(f, transcode.NewAudioData(pcm, sampleRate, 1), 16))
	require.NoError(t, f.Close())
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"decode", common.NewDecodeError("X", "bad", nil), 2},
		{"empty", common.NewEmptySignalError("X", "silent"), 3},
		{"feature", common.NewFeatureExtractionError("X", "nan", nil), 4},
		{"wrapped empty", fmt.Errorf("analysis: %w", common.NewEmptySignalError("X", "short")), 3},
		{"usage", fmt.Errorf("%w: bad flag", errUsage), 64},
		{"other", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestAnalyzeWAVAsJSON(t *testing.T) {
	path := writeSineWAV(t, 440, 2)

	out, err := run(t, "analyze", path, "--language", "English", "--output", "json", "--base64=false")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "AI_GENERATED", result["classification"])
	assert.Equal(t, "english", result["language"])
	assert.Contains(t, result, "confidence_score")
	assert.Contains(t, result, "features")
}

func TestAnalyzeWAVAsTable(t *testing.T) {
	path := writeSineWAV(t, 440, 2)

	out, err := run(t, "analyze", path, "--language", "tamil", "--output", "table", "--features", "--base64=false")
	require.NoError(t, err)

	assert.Contains(t, out, "CLASSIFICATION")
	assert.Contains(t, out, "AI_GENERATED")
	assert.Contains(t, out, "artifact_score")
	assert.Contains(t, out, "Tamil")
}

func TestAnalyzeRejectsUnknownLanguage(t *testing.T) {
	path := writeSineWAV(t, 440, 1)

	_, err := run(t, "analyze", path, "--language", "klingon", "--output", "json", "--base64=false")
	require.Error(t, err)
	assert.Equal(t, 64, ExitCode(err))
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := run(t, "analyze", filepath.Join(t.TempDir(), "missing.wav"), "--language", "english",
		"--output", "json", "--base64=false")
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
}

func TestAnalyzeSilentWAVIsEmptySignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, transcode.EncodeWAV(f, transcode.NewAudioData(make([]float64, 16000), 16000, 1), 16))
	require.NoError(t, f.Close())

	_, err = run(t, "analyze", path, "--language", "english", "--output", "json", "--base64=false")
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veraz.yaml")

	out, err := run(t, "config", "init", path, "--force=false")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = run(t, "config", "init", path, "--force=false")
	require.Error(t, err)
	assert.Equal(t, 64, ExitCode(err))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), loaded)

	out, err = run(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "fusion:"))
	assert.Contains(t, out, "artifact_score")
}
