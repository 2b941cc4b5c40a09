package review

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Preset is a named, reusable settings bundle.
type Preset struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Settings    Settings `yaml:"settings"`
}

// BuiltinPresets are available without any presets file.
func BuiltinPresets() []Preset {
	return []Preset{
		{
			Name:        "quick",
			Description: "Fast pass for obvious bugs only",
			Settings: Settings{
				Strictness:     StrictnessLenient,
				DetailLevel:    DetailBrief,
				OutputLanguage: OutputEnglish,
			},
		},
		{
			Name:        "standard",
			Description: "Balanced everyday review",
			Settings:    DefaultSettings(),
		},
		{
			Name:        "security",
			Description: "Strict review focused on security",
			Settings: Settings{
				Strictness:     StrictnessStrict,
				DetailLevel:    DetailDeep,
				FocusAreas:     []FocusArea{FocusSecurity},
				OutputLanguage: OutputEnglish,
			},
		},
	}
}

// LoadPresets reads presets from a YAML file and merges them over the
// builtin set; a file preset with a builtin's name replaces it. A missing
// file yields just the builtins.
func LoadPresets(path string) ([]Preset, error) {
	byName := make(map[string]Preset)
	for _, p := range BuiltinPresets() {
		byName[p.Name] = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sortedPresets(byName), nil
		}
		return nil, fmt.Errorf("read presets file: %w", err)
	}

	var file struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets file: %w", err)
	}

	for _, p := range file.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("presets file: preset without a name")
		}
		p.Settings = p.Settings.Normalize()
		if err := p.Settings.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		byName[p.Name] = p
	}

	return sortedPresets(byName), nil
}

// FindPreset returns the preset with the given name, or an error naming the
// available choices.
func FindPreset(presets []Preset, name string) (Preset, error) {
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return Preset{}, fmt.Errorf("unknown preset %q (available: %v)", name, names)
}

func sortedPresets(byName map[string]Preset) []Preset {
	out := make([]Preset, 0, len(byName))
	for _, p := range byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
