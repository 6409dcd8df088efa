package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is the operator-maintained moderation policy, loaded from a
// YAML file at startup and merged into the stores.
type Policy struct {
	// Keywords seeds the global keyword list.
	Keywords []string `yaml:"keywords"`

	// SafeWords extends the built-in false-positive allow-list.
	SafeWords []string `yaml:"safeWords"`

	// Protected participants are never subject to detection or
	// punishment, in any conversation.
	Protected []string `yaml:"protected"`

	// BotNicknames overrides the configured nickname allow-list when
	// non-empty.
	BotNicknames []string `yaml:"botNicknames"`
}

// LoadPolicy reads and parses the policy file. A missing path yields an
// empty policy, not an error.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return &Policy{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}
	return &p, nil
}
