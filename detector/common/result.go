package common

import (
	"fmt"
	"strings"
)

// Label is the classification outcome
type Label string

const (
	LabelAIGenerated Label = "AI_GENERATED"
	LabelHuman       Label = "HUMAN"
)

// Valid reports whether l is one of the two labels
func (l Label) Valid() bool {
	return l == LabelAIGenerated || l == LabelHuman
}

// SupportedLanguages lists the language tags accepted at the input boundary
var SupportedLanguages = []string{"tamil", "english", "hindi", "malayalam", "telugu"}

// ParseLanguage normalizes a language tag and checks it against
// SupportedLanguages
func ParseLanguage(tag string) (string, error) {
	lang := strings.ToLower(strings.TrimSpace(tag))
	for _, supported := range SupportedLanguages {
		if lang == supported {
			return lang, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q (supported: %s)", tag, strings.Join(SupportedLanguages, ", "))
}

// ScoreComponent records how one feature moved the fused score
type ScoreComponent struct {
	Direction    int     `json:"direction"` // +1 toward AI, -1 toward human
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`
	Evidence     float64 `json:"evidence"`
	Contribution float64 `json:"contribution"` // Direction * Weight * Evidence
}

// ScoreComponents maps feature name to its component
type ScoreComponents map[string]ScoreComponent

// ClassificationResult is the outcome of one analysis
type ClassificationResult struct {
	Classification  Label   `json:"classification"`
	ConfidenceScore float64 `json:"confidence_score"`
	Language        string  `json:"language"`

	// AIProbability is the squashed fused score before the label-relative
	// confidence mapping
	AIProbability float64         `json:"ai_probability"`
	Score         float64         `json:"score"` // weighted evidence before squashing
	Components    ScoreComponents `json:"components,omitempty"`
	Features      FeatureVector   `json:"features"`
	AnalysisID    string          `json:"analysis_id,omitempty"`
}
