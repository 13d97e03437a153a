package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"samadhan/internal/domain"
)

// Config models samadhan.yml.
type Config struct {
	Instance struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"instance"`
	Departments map[string]DepartmentConfig `yaml:"departments"`
	Auth        struct {
		JWTSecret              string `yaml:"jwt_secret"`
		AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
		DevTokens              bool   `yaml:"dev_tokens"`
	} `yaml:"auth"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// DepartmentConfig customizes one routing department.
type DepartmentConfig struct {
	Label           string `yaml:"label"`
	DefaultAssignee string `yaml:"default_assignee"`
}

// WebhookConfig describes one event delivery target, typically a
// department's notification endpoint.
type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Events         []string `yaml:"events"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return fmt.Errorf("config.instance.id is required")
	}
	for key, dept := range c.Departments {
		if !domain.Department(key).Valid() {
			return fmt.Errorf("config.departments has unknown department %s", key)
		}
		if dept.Label == "" {
			return fmt.Errorf("department %s has empty label", key)
		}
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
	}
	return nil
}

// Label returns the configured label for a department, falling back to
// the built-in catalog.
func (c *Config) Label(d domain.Department) string {
	if dept, ok := c.Departments[string(d)]; ok && dept.Label != "" {
		return dept.Label
	}
	return d.Label()
}

// DefaultAssignee returns the configured default assignee for a
// department, or empty when routing is manual.
func (c *Config) DefaultAssignee(d domain.Department) string {
	if dept, ok := c.Departments[string(d)]; ok {
		return dept.DefaultAssignee
	}
	return ""
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "samadhan.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; generate one with samadhan config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for an instance.
func Default(instanceID string) *Config {
	var cfg Config
	cfg.Instance.ID = instanceID
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, instanceID))).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault(instanceID string) string {
	return fmt.Sprintf(defaultTemplate, instanceID)
}

const defaultTemplate = `instance:
  id: %s
  name: Citizen Grievance Cell

departments:
  water_supply:
    label: Water Supply Department
  electricity:
    label: Electricity Department
  sanitation:
    label: Sanitation Department
  roads:
    label: Public Works Department
  healthcare:
    label: Health Department
  education:
    label: Education Department
  law_enforcement:
    label: Police Department
  housing:
    label: Housing & Urban Development
  agriculture:
    label: Agriculture Department
  other:
    label: Other Departments

auth:
  allow_legacy_actor_header: true
  dev_tokens: false
`
