package ml

import "fmt"

// FeatureCount is the number of model inputs.
const FeatureCount = 5

// HouseFeatures is the ordered input schema for a single prediction.
// Bedrooms is int-like but kept as float64 so the whole vector shares
// one representation.
type HouseFeatures struct {
	Bedrooms   float64
	Bathrooms  float64
	SqftLiving float64
	Floors     float64
	Age        float64
}

// FeatureRange bounds a feature at prediction time. Training data is
// never range-checked.
type FeatureRange struct {
	Min float64
	Max float64
}

var featureNames = []string{"bedrooms", "bathrooms", "sqft_living", "floors", "age"}

var featureRanges = map[string]FeatureRange{
	"bedrooms":    {Min: 1, Max: 10},
	"bathrooms":   {Min: 0.5, Max: 10},
	"sqft_living": {Min: 100, Max: 20000},
	"floors":      {Min: 1, Max: 5},
	"age":         {Min: 0, Max: 200},
}

var rangeMessages = map[string]string{
	"bedrooms":    "Bedrooms must be between 1 and 10",
	"bathrooms":   "Bathrooms must be between 0.5 and 10",
	"sqft_living": "Square footage must be between 100 and 20,000",
	"floors":      "Floors must be between 1 and 5",
	"age":         "Age must be between 0 and 200 years",
}

var featureDescriptions = map[string]string{
	"bedrooms":    "Number of bedrooms (1-10)",
	"bathrooms":   "Number of bathrooms (0.5-10)",
	"sqft_living": "Living area in square feet (100-20,000)",
	"floors":      "Number of floors (1-5)",
	"age":         "Age of the house in years (0-200)",
}

// FeatureNames returns the feature names in declared order.
func FeatureNames() []string {
	names := make([]string, len(featureNames))
	copy(names, featureNames)
	return names
}

// FeatureDescriptions returns the static per-feature description strings.
func FeatureDescriptions() map[string]string {
	descriptions := make(map[string]string, len(featureDescriptions))
	for name, description := range featureDescriptions {
		descriptions[name] = description
	}
	return descriptions
}

// Ranges returns the prediction-time bounds for every feature.
func Ranges() map[string]FeatureRange {
	ranges := make(map[string]FeatureRange, len(featureRanges))
	for name, r := range featureRanges {
		ranges[name] = r
	}
	return ranges
}

// Vector returns the features in declared order.
func (f HouseFeatures) Vector() []float64 {
	return []float64{f.Bedrooms, f.Bathrooms, f.SqftLiving, f.Floors, f.Age}
}

// FromVector builds HouseFeatures from a declared-order vector.
func FromVector(vector []float64) (HouseFeatures, error) {
	if len(vector) != FeatureCount {
		return HouseFeatures{}, fmt.Errorf("expected %d features, got %d", FeatureCount, len(vector))
	}
	return HouseFeatures{
		Bedrooms:   vector[0],
		Bathrooms:  vector[1],
		SqftLiving: vector[2],
		Floors:     vector[3],
		Age:        vector[4],
	}, nil
}

// Map returns the features keyed by name, for response echoes.
func (f HouseFeatures) Map() map[string]float64 {
	vector := f.Vector()
	m := make(map[string]float64, FeatureCount)
	for i, name := range featureNames {
		m[name] = vector[i]
	}
	return m
}

// RangeViolation reports the first out-of-range feature in declared order.
type RangeViolation struct {
	Field   string
	Message string
}

// Validate range-checks every feature in declared order and returns the
// first violation, or nil when all features are within bounds.
func (f HouseFeatures) Validate() *RangeViolation {
	vector := f.Vector()
	for i, name := range featureNames {
		bounds := featureRanges[name]
		if vector[i] < bounds.Min || vector[i] > bounds.Max {
			return &RangeViolation{Field: name, Message: rangeMessages[name]}
		}
	}
	return nil
}
