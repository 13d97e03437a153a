package app

import (
	"fmt"

	"samadhan/internal/config"
)

// DefaultInstanceID names the instance when no samadhan.yml exists.
const DefaultInstanceID = "samadhan"

// ResolveConfig loads samadhan.yml from the workspace, falling back to
// the built-in default catalog when the file is absent. A present but
// invalid file is an error rather than a silent fallback.
func ResolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg == nil {
		cfg = config.Default(DefaultInstanceID)
	}
	return cfg, nil
}
