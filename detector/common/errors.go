package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies analysis failures
type ErrorKind string

const (
	KindDecode            ErrorKind = "DECODE_ERROR"
	KindEmptySignal       ErrorKind = "EMPTY_SIGNAL"
	KindFeatureExtraction ErrorKind = "FEATURE_EXTRACTION_ERROR"
)

// Sentinels for errors.Is checks against any AnalysisError of a kind
var (
	ErrDecode            = &AnalysisError{Kind: KindDecode}
	ErrEmptySignal       = &AnalysisError{Kind: KindEmptySignal}
	ErrFeatureExtraction = &AnalysisError{Kind: KindFeatureExtraction}
)

// AnalysisError is returned by every stage of the analysis pipeline
type AnalysisError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Cause   error
}

func (e *AnalysisError) Error() string {
	msg := string(e.Kind)
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Is matches any AnalysisError of the same kind
func (e *AnalysisError) Is(target error) bool {
	var t *AnalysisError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// NewDecodeError reports a malformed or undecodable input signal
func NewDecodeError(code, message string, cause error) *AnalysisError {
	return &AnalysisError{Kind: KindDecode, Code: code, Message: message, Cause: cause}
}

// NewEmptySignalError reports a signal with nothing left to analyze
func NewEmptySignalError(code, message string) *AnalysisError {
	return &AnalysisError{Kind: KindEmptySignal, Code: code, Message: message}
}

// NewFeatureExtractionError reports an analyzer failure or a non-finite
// feature
func NewFeatureExtractionError(code, message string, cause error) *AnalysisError {
	return &AnalysisError{Kind: KindFeatureExtraction, Code: code, Message: message, Cause: cause}
}

// KindOf returns the kind of the first AnalysisError in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}
