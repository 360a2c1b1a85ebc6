package common

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
)

// FeatureVector is an immutable set of named scalar features
type FeatureVector struct {
	values map[string]float64
}

// NewFeatureVector copies values into a new vector
func NewFeatureVector(values map[string]float64) FeatureVector {
	return FeatureVector{values: maps.Clone(values)}
}

// Get returns the value of a feature and whether it is present
func (fv FeatureVector) Get(name string) (float64, bool) {
	v, ok := fv.values[name]
	return v, ok
}

// Has reports whether a feature is present
func (fv FeatureVector) Has(name string) bool {
	_, ok := fv.values[name]
	return ok
}

// Keys returns the feature names in sorted order
func (fv FeatureVector) Keys() []string {
	return slices.Sorted(maps.Keys(fv.values))
}

// Len returns the number of features
func (fv FeatureVector) Len() int {
	return len(fv.values)
}

// Values returns a copy of the underlying map
func (fv FeatureVector) Values() map[string]float64 {
	if fv.values == nil {
		return map[string]float64{}
	}
	return maps.Clone(fv.values)
}

// Validate returns a FeatureExtractionError naming the first (in key
// order) non-finite feature
func (fv FeatureVector) Validate() error {
	for _, key := range fv.Keys() {
		v := fv.values[key]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewFeatureExtractionError("NON_FINITE_FEATURE",
				fmt.Sprintf("feature %q is not finite (%v)", key, v), nil)
		}
	}
	return nil
}

// MarshalJSON encodes the vector as a flat object
func (fv FeatureVector) MarshalJSON() ([]byte, error) {
	return json.Marshal(fv.Values())
}

// Merge combines fragments into one vector. Two fragments carrying the same
// key is a FeatureExtractionError.
func Merge(fragments ...FeatureVector) (FeatureVector, error) {
	merged := make(map[string]float64)
	for _, fragment := range fragments {
		for key, v := range fragment.values {
			if _, exists := merged[key]; exists {
				return FeatureVector{}, NewFeatureExtractionError("DUPLICATE_FEATURE",
					fmt.Sprintf("feature %q produced by more than one analyzer", key), nil)
			}
			merged[key] = v
		}
	}
	return FeatureVector{values: merged}, nil
}
