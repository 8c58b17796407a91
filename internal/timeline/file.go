package timeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/framereel/internal/system"
)

// WriteComposition writes a composition to a YAML file.
func WriteComposition(c *Composition, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadComposition reads and validates a composition from a YAML file.
func ReadComposition(path string) (*Composition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseComposition(data)
}

// ParseComposition decodes YAML and validates the result.
func ParseComposition(data []byte) (*Composition, error) {
	var c Composition
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidComposition, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// LatestComposition finds the most recently modified composition in dir.
func LatestComposition(dir string) (string, error) {
	return system.FindLatest(dir, ".yaml", ".yml")
}
