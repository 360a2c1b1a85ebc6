// Package fusion turns a feature vector into a labelled, label-relative
// confidence using configured per-feature evidence rules and a logistic
// squash.
package fusion

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/logging"
)

// Fuser scores feature vectors. It holds no per-call state and is safe for
// concurrent use.
type Fuser struct {
	config config.FusionConfig
	logger logging.Logger
}

// NewFuser validates the fusion configuration and creates a fuser
func NewFuser(cfg config.FusionConfig) (*Fuser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rules := make([]config.FeatureRule, len(cfg.Rules))
	copy(rules, cfg.Rules)
	cfg.Rules = rules

	return &Fuser{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "score_fusion",
		}),
	}, nil
}

// Evidence returns how far value lies outside the rule's natural range,
// divided by Scale and capped at Cap. Inside the range it is 0.
func Evidence(rule config.FeatureRule, value float64) float64 {
	distance := 0.0
	switch {
	case rule.Low != nil && value < *rule.Low:
		distance = *rule.Low - value
	case rule.High != nil && value > *rule.High:
		distance = value - *rule.High
	}

	scale := rule.Scale
	if scale <= 0 {
		scale = 1
	}
	evidence := distance / scale

	if rule.Cap > 0 {
		evidence = math.Min(evidence, rule.Cap)
	}
	return evidence
}

// Logistic is the squashing function 1/(1+e^-x)
func Logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// WeightedScore returns the normalized weighted evidence and the per-rule
// components. Rules whose feature is absent carry no weight.
func (f *Fuser) WeightedScore(features common.FeatureVector) (float64, common.ScoreComponents) {
	components := make(common.ScoreComponents, len(f.config.Rules))
	var total, weight float64

	for _, rule := range f.config.Rules {
		value, ok := features.Get(rule.Feature)
		if !ok || rule.Weight == 0 {
			continue
		}

		evidence := Evidence(rule, value)
		contribution := float64(rule.Direction) * rule.Weight * evidence
		components[rule.Feature] = common.ScoreComponent{
			Direction:    rule.Direction,
			Weight:       rule.Weight,
			Value:        value,
			Evidence:     evidence,
			Contribution: contribution,
		}

		total += contribution
		weight += rule.Weight
	}

	if weight == 0 {
		return 0, components
	}
	return total / weight, components
}

// Fuse classifies a feature vector. A squashed score that, rounded to
// ConfidencePrecision, is strictly above the threshold is AI_GENERATED with
// that score as confidence; anything else, including a tie, is HUMAN with
// the complement. AIProbability stays unrounded.
func (f *Fuser) Fuse(features common.FeatureVector) (*common.ClassificationResult, error) {
	if err := features.Validate(); err != nil {
		return nil, err
	}

	score, components := f.WeightedScore(features)
	probability := Logistic(f.config.Gain * (score - f.config.Offset))
	if math.IsNaN(probability) {
		return nil, common.NewFeatureExtractionError("NON_FINITE_SCORE",
			fmt.Sprintf("fused score %v is not finite", score), nil)
	}

	// the label is decided at reported precision, so a probability that
	// rounds to the threshold is a tie
	label := common.LabelHuman
	confidence := round(1-probability, f.config.ConfidencePrecision)
	if reported := round(probability, f.config.ConfidencePrecision); reported > f.config.Threshold {
		label = common.LabelAIGenerated
		confidence = reported
	}

	f.logger.Debug("Features fused", logging.Fields{
		"score":          score,
		"ai_probability": probability,
		"classification": label,
		"rules_applied":  len(components),
	})

	return &common.ClassificationResult{
		Classification:  label,
		ConfidenceScore: confidence,
		AIProbability:   probability,
		Score:           score,
		Components:      components,
		Features:        features,
	}, nil
}

func round(v float64, decimals int) float64 {
	if decimals <= 0 {
		return v
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
