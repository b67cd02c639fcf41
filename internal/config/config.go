package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the global fool configuration.
type Config struct {
	UI      UIConfig      `yaml:"ui"`
	History HistoryConfig `yaml:"history"`
	AI      AIConfig      `yaml:"ai"`
	RC      RCConfig      `yaml:"rc"`
	Log     LogConfig     `yaml:"log"`
}

// UIConfig controls the interactive front-end.
type UIConfig struct {
	Theme string `yaml:"theme"`
}

// HistoryConfig controls the persistent command history.
type HistoryConfig struct {
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

// AIConfig controls the AI assistant reached through the trigger prefix.
type AIConfig struct {
	TriggerPrefix string  `yaml:"trigger_prefix"`
	APIBase       string  `yaml:"api_base"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	ContextLines  int     `yaml:"context_lines"`
	SystemPrompt  string  `yaml:"system_prompt"`
	Timeout       string  `yaml:"timeout"`
}

// RCConfig locates the start-up script.
type RCConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Defaults and bounds.
const (
	DefaultTriggerPrefix = "!"
	DefaultMaxEntries    = 10000
	MaxMaxEntries        = 1000000
	DefaultContextLines  = 10
	DefaultTimeout       = 60 * time.Second
	DefaultAPIBase       = "https://api.openai.com/v1"
	DefaultModel         = "gpt-4o"
	DefaultSystemPrompt  = "You are Fool, a helpful assistant running inside a command-line shell. " +
		"Be concise and provide direct answers. When suggesting commands, " +
		"provide them in a way that can be easily copied and executed."
)

// Environment variables consulted when ai.api_key is empty, in order.
var APIKeyEnv = []string{"FOOL_AI_KEY", "OPENAI_API_KEY"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		UI: UIConfig{Theme: "dracula"},
		History: HistoryConfig{
			Path:       filepath.Join(home, ".local", "share", "fool", "history"),
			MaxEntries: DefaultMaxEntries,
		},
		AI: AIConfig{
			TriggerPrefix: DefaultTriggerPrefix,
			APIBase:       DefaultAPIBase,
			Model:         DefaultModel,
			Temperature:   0.7,
			ContextLines:  DefaultContextLines,
			SystemPrompt:  DefaultSystemPrompt,
			Timeout:       "60s",
		},
		RC:  RCConfig{Path: filepath.Join(home, ".config", "fool", "init.star")},
		Log: LogConfig{Level: "warn"},
	}
}

// Load reads the config from the standard location (~/.config/fool/config.yaml).
// If the file doesn't exist, returns the default config.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.normalize()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize fills in empty values and clamps bounds so downstream code can
// rely on them.
func (c *Config) normalize() {
	if strings.TrimSpace(c.AI.TriggerPrefix) == "" {
		c.AI.TriggerPrefix = DefaultTriggerPrefix
	}
	switch {
	case c.History.MaxEntries < 1:
		c.History.MaxEntries = 1
	case c.History.MaxEntries > MaxMaxEntries:
		c.History.MaxEntries = MaxMaxEntries
	}
	if c.AI.ContextLines < 0 {
		c.AI.ContextLines = 0
	}
	if c.AI.APIBase == "" {
		c.AI.APIBase = DefaultAPIBase
	}
	c.History.Path = ExpandHome(c.History.Path)
	c.RC.Path = ExpandHome(c.RC.Path)
}

// APIKeyValue returns ai.api_key, falling back to the environment.
func (a *AIConfig) APIKeyValue() string {
	if a.APIKey != "" {
		return a.APIKey
	}
	for _, name := range APIKeyEnv {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// TimeoutDuration parses the configured timeout or returns the default.
func (a *AIConfig) TimeoutDuration() time.Duration {
	if a.Timeout != "" {
		dur, err := time.ParseDuration(a.Timeout)
		if err == nil && dur > 0 {
			return dur
		}
	}
	return DefaultTimeout
}

// ExpandHome replaces a leading ~ with the home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	if len(path) > 1 && path[1] != '/' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "fool", "config.yaml")
}

// GenerateDefault returns a commented default config file.
func GenerateDefault() string {
	return `# fool configuration

ui:
  theme: dracula          # prompt colours: dracula or plain

history:
  path: ~/.local/share/fool/history
  max_entries: 10000      # entries kept in memory and on disk

ai:
  # Lines starting with this prefix are sent to the AI assistant.
  trigger_prefix: "!"

  # OpenAI-compatible chat completions endpoint.
  api_base: https://api.openai.com/v1
  api_key: ""             # or set FOOL_AI_KEY or OPENAI_API_KEY
  model: gpt-4o
  temperature: 0.7
  timeout: 60s

  # Recent commands sent as context with each question.
  context_lines: 10

  system_prompt: >-
    You are Fool, a helpful assistant running inside a command-line shell.
    Be concise and provide direct answers. When suggesting commands,
    provide them in a way that can be easily copied and executed.

rc:
  path: ~/.config/fool/init.star

log:
  level: warn             # debug, info, warn or error
`
}

// WriteDefault writes GenerateDefault to path unless a file already exists.
// It reports whether the file was created.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(GenerateDefault()); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
