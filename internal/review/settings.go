package review

import "fmt"

// Strictness controls how aggressively the reviewer flags issues.
type Strictness string

const (
	StrictnessLenient Strictness = "lenient"
	StrictnessNormal  Strictness = "normal"
	StrictnessStrict  Strictness = "strict"
)

// DetailLevel controls how much explanation accompanies each issue.
type DetailLevel string

const (
	DetailBrief  DetailLevel = "brief"
	DetailNormal DetailLevel = "normal"
	DetailDeep   DetailLevel = "deep"
)

// FocusArea narrows the review to a particular concern.
type FocusArea string

const (
	FocusSecurity        FocusArea = "security"
	FocusPerformance     FocusArea = "performance"
	FocusReadability     FocusArea = "readability"
	FocusMaintainability FocusArea = "maintainability"
)

// OutputLanguage is the natural language of the generated review text.
type OutputLanguage string

const (
	OutputEnglish  OutputLanguage = "en"
	OutputJapanese OutputLanguage = "ja"
)

// Settings is the immutable bundle of review preferences. The zero value is
// not valid; use DefaultSettings or fill every field.
type Settings struct {
	Strictness     Strictness     `json:"strictness" yaml:"strictness"`
	DetailLevel    DetailLevel    `json:"detail_level" yaml:"detail_level"`
	FocusAreas     []FocusArea    `json:"focus_areas" yaml:"focus_areas"`
	OutputLanguage OutputLanguage `json:"output_language" yaml:"output_language"`
}

// DefaultSettings returns the settings used when a request supplies none.
func DefaultSettings() Settings {
	return Settings{
		Strictness:     StrictnessNormal,
		DetailLevel:    DetailNormal,
		FocusAreas:     nil,
		OutputLanguage: OutputEnglish,
	}
}

// Normalize fills zero-valued dimensions with their defaults.
func (s Settings) Normalize() Settings {
	if s.Strictness == "" {
		s.Strictness = StrictnessNormal
	}
	if s.DetailLevel == "" {
		s.DetailLevel = DetailNormal
	}
	if s.OutputLanguage == "" {
		s.OutputLanguage = OutputEnglish
	}
	return s
}

// Validate checks every dimension against its declared domain.
func (s Settings) Validate() error {
	switch s.Strictness {
	case StrictnessLenient, StrictnessNormal, StrictnessStrict:
	default:
		return fmt.Errorf("invalid strictness: %q", s.Strictness)
	}
	switch s.DetailLevel {
	case DetailBrief, DetailNormal, DetailDeep:
	default:
		return fmt.Errorf("invalid detail_level: %q", s.DetailLevel)
	}
	switch s.OutputLanguage {
	case OutputEnglish, OutputJapanese:
	default:
		return fmt.Errorf("invalid output_language: %q", s.OutputLanguage)
	}
	for _, f := range s.FocusAreas {
		switch f {
		case FocusSecurity, FocusPerformance, FocusReadability, FocusMaintainability:
		default:
			return fmt.Errorf("invalid focus area: %q", f)
		}
	}
	return nil
}
