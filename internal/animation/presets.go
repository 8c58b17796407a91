package animation

import (
	"fmt"
	"sort"
)

var presets = map[string]SpringConfig{
	"snappy": {Damping: 15, Stiffness: 200, Mass: 0.5},
	"gentle": {Damping: 20, Stiffness: 80, Mass: 1},
	"bouncy": {Damping: 8, Stiffness: 150, Mass: 0.8},
	"smooth": {Damping: 30, Stiffness: 100, Mass: 1},
	"quick":  {Damping: 20, Stiffness: 300, Mass: 0.3},
}

// DefaultSpring is the configuration used when an element names none.
var DefaultSpring = SpringConfig{Damping: 10, Stiffness: 100, Mass: 1}

// Preset returns a named spring configuration.
func Preset(name string) (SpringConfig, error) {
	if name == "" {
		return DefaultSpring, nil
	}
	cfg, ok := presets[name]
	if !ok {
		return SpringConfig{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidSpringParameters, name)
	}
	return cfg, nil
}

// PresetNames lists the presets in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
