package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RyanBlaney/sonido-veraz/detector"
	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/logging"
	"github.com/RyanBlaney/sonido-veraz/transcode"
)

var (
	analyzeLanguage     string
	analyzeBase64       bool
	analyzeOutput       string
	analyzeShowFeatures bool
	analyzeTimeout      time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Classify a voice recording as AI_GENERATED or HUMAN",
	Long: `Decode an audio file and classify the voice in it.

WAV files are decoded natively; other formats (MP3, ...) go through ffmpeg.
With --base64 the input is a base64 string (optionally a data: URL) instead
of raw audio bytes. Use "-" to read from stdin.

Examples:
  veraz analyze sample.wav --language english
  veraz analyze clip.mp3 --language tamil --output table
  cat payload.txt | veraz analyze - --base64 --language hindi`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeLanguage, "language", "l", "",
		"language of the recording ("+strings.Join(common.SupportedLanguages, ", ")+")")
	analyzeCmd.Flags().BoolVar(&analyzeBase64, "base64", false,
		"input is base64-encoded audio")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "json",
		"output format (json, table)")
	analyzeCmd.Flags().BoolVar(&analyzeShowFeatures, "features", false,
		"include the per-feature score components in table output")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", time.Minute,
		"overall timeout for decoding and analysis")

	analyzeCmd.MarkFlagRequired("language")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	lang, err := common.ParseLanguage(analyzeLanguage)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if analyzeOutput != "json" && analyzeOutput != "table" {
		return fmt.Errorf("%w: unsupported output format %q", errUsage, analyzeOutput)
	}

	logger := logging.WithFields(logging.Fields{
		"component": "cli",
		"function":  "runAnalyze",
		"input":     args[0],
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	start := time.Now()
	audio, err := decodeInput(ctx, args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	logger.Debug("Input decoded", logging.Fields{
		"sample_rate": audio.SampleRate,
		"channels":    audio.Channels,
		"duration":    audio.Duration.Seconds(),
		"format":      audio.Format,
	})

	d, err := detector.New(appConfig)
	if err != nil {
		return err
	}

	result, err := d.Analyze(ctx, audio, lang)
	if err != nil {
		return err
	}

	logger.Debug("Analysis finished", logging.Fields{
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if analyzeOutput == "table" {
		return writeTable(cmd.OutOrStdout(), result, analyzeShowFeatures)
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

func decodeInput(ctx context.Context, input string, stdin io.Reader) (*transcode.AudioData, error) {
	decoder := transcode.NewDecoder(&appConfig.Decoder)

	var (
		audio *transcode.AudioData
		err   error
	)
	switch {
	case analyzeBase64:
		var payload []byte
		if input == "-" {
			payload, err = io.ReadAll(stdin)
		} else {
			payload, err = os.ReadFile(input)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		audio, err = decoder.DecodeBase64(ctx, strings.TrimSpace(string(payload)))
	case input == "-":
		audio, err = decoder.DecodeReader(ctx, stdin)
	default:
		if _, statErr := os.Stat(input); statErr != nil {
			return nil, fmt.Errorf("failed to read input: %w", statErr)
		}
		audio, err = decoder.DecodeFile(ctx, input)
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.NewDecodeError("DECODE_FAILED", "could not decode input audio", err)
	}
	return audio, nil
}

func writeJSON(w io.Writer, result *common.ClassificationResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

var titleCaser = cases.Title(language.English)

func writeTable(w io.Writer, result *common.ClassificationResult, components bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "CLASSIFICATION\t%s\n", result.Classification)
	fmt.Fprintf(tw, "CONFIDENCE\t%.4f\n", result.ConfidenceScore)
	fmt.Fprintf(tw, "LANGUAGE\t%s\n", titleCaser.String(result.Language))
	fmt.Fprintf(tw, "AI PROBABILITY\t%.4f\n", result.AIProbability)
	fmt.Fprintf(tw, "SCORE\t%.4f\n", result.Score)
	fmt.Fprintf(tw, "ANALYSIS ID\t%s\n", result.AnalysisID)

	if components {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "FEATURE\tVALUE\tDIRECTION\tWEIGHT\tEVIDENCE\tCONTRIBUTION")
		for _, name := range result.Features.Keys() {
			c, ok := result.Components[name]
			if !ok {
				continue
			}
			fmt.Fprintf(tw, "%s\t%.4f\t%+d\t%.2f\t%.3f\t%+.4f\n",
				name, c.Value, c.Direction, c.Weight, c.Evidence, c.Contribution)
		}
	}

	return tw.Flush()
}
