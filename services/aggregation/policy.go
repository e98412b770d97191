package aggregation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// WeightPolicy maps a subject name to the weight that replaces the subject's own weight.
// Names that are not listed keep their base weight.
type WeightPolicy map[string]float64

// DefaultWeightPolicy returns the built-in table: non-academic subjects weigh nothing and
// music subjects count half.
func DefaultWeightPolicy() WeightPolicy {
	return WeightPolicy{
		"Web of Things & Robotik":   0,
		"Sport":                     0,
		"Grundlagenfach Sologesang": 0.5,
		"Musik":                     0.5,
	}
}

// Resolve returns the effective weight for a subject name
func (p WeightPolicy) Resolve(name string, base float64) float64 {
	if w, ok := p[strings.TrimSpace(name)]; ok {
		return w
	}
	return base
}

type policyFile struct {
	ZeroWeight []string           `yaml:"zero_weight"`
	HalfWeight []string           `yaml:"half_weight"`
	Overrides  map[string]float64 `yaml:"overrides"`
}

// ParseWeightPolicy reads a YAML policy document:
//
//	zero_weight: [Sport]
//	half_weight: [Musik]
//	overrides:
//	  Latein: 0.25
//
// Explicit overrides win over the zero and half weight lists.
func ParseWeightPolicy(data []byte) (WeightPolicy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse weight policy: %w", err)
	}

	policy := WeightPolicy{}
	for _, name := range file.ZeroWeight {
		policy[strings.TrimSpace(name)] = 0
	}
	for _, name := range file.HalfWeight {
		policy[strings.TrimSpace(name)] = 0.5
	}
	for name, weight := range file.Overrides {
		if weight < 0 {
			return nil, fmt.Errorf("weight policy: negative weight %v for %q", weight, name)
		}
		policy[strings.TrimSpace(name)] = weight
	}
	return policy, nil
}

// LoadWeightPolicy reads the policy file at path, or returns the default table when
// path is empty
func LoadWeightPolicy(path string) (WeightPolicy, error) {
	if path == "" {
		return DefaultWeightPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weight policy: %w", err)
	}
	return ParseWeightPolicy(data)
}
