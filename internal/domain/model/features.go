package model

import "fmt"

// FeatureDim is the agreed dimensionality of catalog feature vectors.
// The source data documents exactly these thirteen numeric columns; a vector
// of any other length is a configuration error, not something to correct.
const FeatureDim = 13

// FeatureNames lists the vector dimensions in storage order.
var FeatureNames = [FeatureDim]string{
	"balance",
	"flexibility",
	"coordination",
	"relaxation",
	"strength",
	"endurance",
	"longevity",
	"intensity",
	"setting_team",
	"setting_fun",
	"setting_duo",
	"setting_solo",
	"setting_competitive",
}

// Features is a numeric vector over the catalog's feature dimensions.
// Offers and user preferences share the same dimensionality.
type Features []float64

// Dim returns the vector's dimensionality.
func (f Features) Dim() int { return len(f) }

// IsZero reports whether every component is zero. A zero preference vector is
// valid input; scoring degrades gracefully instead of special-casing it.
func (f Features) IsZero() bool {
	for _, v := range f {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (f Features) Clone() Features {
	if f == nil {
		return nil
	}
	out := make(Features, len(f))
	copy(out, f)
	return out
}

// NewFeatures builds a catalog-dimensioned vector from named weights.
// Unknown names are rejected; missing names default to zero.
func NewFeatures(weights map[string]float64) (Features, error) {
	idx := make(map[string]int, FeatureDim)
	for i, name := range FeatureNames {
		idx[name] = i
	}
	f := make(Features, FeatureDim)
	for name, v := range weights {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
		f[i] = v
	}
	return f, nil
}
