package scrape

import "github.com/unisport/kursfinder/internal/domain/model"

// focusDims maps focus categories to their vector slot.
var focusDims = map[model.Focus]int{
	model.FocusBalance:      0,
	model.FocusFlexibility:  1,
	model.FocusCoordination: 2,
	model.FocusRelaxation:   3,
	model.FocusStrength:     4,
	model.FocusEndurance:    5,
	model.FocusLongevity:    6,
}

// settingDims maps the social settings to their vector slot. Venue settings
// (indoor, outdoor, water) carry no dimension.
var settingDims = map[model.Setting]int{
	model.SettingTeam:        8,
	model.SettingFun:         9,
	model.SettingDuo:         10,
	model.SettingSolo:        11,
	model.SettingCompetitive: 12,
}

const intensityDim = 7

// DeriveFeatures computes an offer's feature vector from its curated
// categories. The same categories always yield the same vector, so repeated
// imports are stable. Returns nil when no category is set at all; absence of
// data must stay distinguishable from a zero vector.
func DeriveFeatures(intensity model.Intensity, focus []model.Focus, settings []model.Setting) model.Features {
	if intensity == model.IntensityUnknown && len(focus) == 0 && len(settings) == 0 {
		return nil
	}
	f := make(model.Features, model.FeatureDim)
	f[intensityDim] = intensity.Feature()
	for _, fc := range focus {
		if dim, ok := focusDims[fc]; ok {
			f[dim] = 1
		}
	}
	for _, s := range settings {
		if dim, ok := settingDims[s]; ok {
			f[dim] = 1
		}
	}
	return f
}
