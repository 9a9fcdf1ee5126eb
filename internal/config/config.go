package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources  []Source `yaml:"sources"`
	Keywords Keywords `yaml:"keywords"`
	LLM      LLM      `yaml:"llm"`
	Telegram Telegram `yaml:"telegram"`
	Pipeline Pipeline `yaml:"pipeline"`
	Fetch    Fetch    `yaml:"fetch"`
	Output   Output   `yaml:"output"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

// Source is a single RSS feed endpoint with source-level metadata.
type Source struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Feed        string `yaml:"feed"`
	Credibility int    `yaml:"credibility"`
}

// Keywords holds the three keyword sets used by the relevance pre-filter.
type Keywords struct {
	Primary   []string `yaml:"primary"`
	Companies []string `yaml:"companies"`
	Topics    []string `yaml:"topics"`
}

type LLM struct {
	Provider     string `yaml:"provider"`
	GeminiModel  string `yaml:"gemini_model"`
	GeminiKeyEnv string `yaml:"gemini_key_env"`
	OpenAIModel  string `yaml:"openai_model"`
	OpenAIKeyEnv string `yaml:"openai_key_env"`
	OllamaModel  string `yaml:"ollama_model"`
	OllamaURL    string `yaml:"ollama_url"`
	MaxTokens    int    `yaml:"max_tokens"`
}

type Telegram struct {
	TokenEnv string `yaml:"token_env"`
}

// Pipeline holds the knobs consumed by the cycle orchestrator.
type Pipeline struct {
	PollIntervalSeconds   int `yaml:"poll_interval_seconds"`
	RelevanceThreshold    int `yaml:"relevance_threshold"`
	VerificationThreshold int `yaml:"verification_threshold"`
	MaxItemsPerCycle      int `yaml:"max_items_per_cycle"`
	ItemDelaySeconds      int `yaml:"item_delay_seconds"`
	DigestWindowHours     int `yaml:"digest_window_hours"`
	DigestLimit           int `yaml:"digest_limit"`
}

type Fetch struct {
	EnrichContent  bool `yaml:"enrich_content"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// PollInterval returns the cycle interval as a duration.
func (p Pipeline) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSeconds) * time.Second
}

// ItemDelay returns the inter-item courtesy pause as a duration.
func (p Pipeline) ItemDelay() time.Duration {
	return time.Duration(p.ItemDelaySeconds) * time.Second
}

// ConfigDir returns the XDG config directory for ainews.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "ainews")
}

// DataDir returns the XDG data directory for ainews.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "ainews")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/ainews/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'ainews init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Keywords: Keywords{
			Primary: []string{
				"artificial intelligence", "machine learning", "deep learning",
				"neural network", "LLM", "GPT", "transformer", "generative AI",
			},
			Companies: []string{"OpenAI", "Google AI", "DeepMind", "Meta AI", "Anthropic", "NVIDIA"},
			Topics:    []string{"AI model", "AI research", "computer vision", "NLP"},
		},
		LLM: LLM{
			Provider:     "gemini",
			GeminiModel:  "gemini-2.0-flash",
			GeminiKeyEnv: "GEMINI_API_KEY",
			OpenAIModel:  "gpt-4o-mini",
			OpenAIKeyEnv: "OPENAI_API_KEY",
			OllamaModel:  "qwen2.5:7b",
			OllamaURL:    "http://localhost:11434",
			MaxTokens:    512,
		},
		Telegram: Telegram{TokenEnv: "TELEGRAM_BOT_TOKEN"},
		Pipeline: Pipeline{
			PollIntervalSeconds:   1800,
			RelevanceThreshold:    85,
			VerificationThreshold: 70,
			MaxItemsPerCycle:      500,
			ItemDelaySeconds:      2,
			DigestWindowHours:     24,
			DigestLimit:           10,
		},
		Fetch:   Fetch{TimeoutSeconds: 15},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// The digest message carries at most 10 inline buttons.
	if cfg.Pipeline.DigestLimit > 10 || cfg.Pipeline.DigestLimit <= 0 {
		cfg.Pipeline.DigestLimit = 10
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
