package config

import (
	"errors"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultDaemonAddress = "127.0.0.1:7977"
	defaultGitHubBaseURL = "https://api.github.com"
	defaultDevinBaseURL  = "https://api.devin.ai/v1"
	defaultPollInterval  = 10 * time.Second
	defaultTargetBranch  = "main"
)

type Config struct {
	Daemon  DaemonConfig  `toml:"daemon"`
	GitHub  GitHubConfig  `toml:"github"`
	Devin   DevinConfig   `toml:"devin"`
	Poll    PollConfig    `toml:"poll"`
	Execute ExecuteConfig `toml:"execute"`
	Logging LoggingConfig `toml:"logging"`
	Storage StorageConfig `toml:"storage"`
}

type DaemonConfig struct {
	Address string `toml:"address"`
}

type GitHubConfig struct {
	BaseURL string `toml:"base_url"`
}

type DevinConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

type PollConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

type ExecuteConfig struct {
	// AutoApproveHighConfidence fires execute without a manual approval
	// when a blocked/completed session reports high confidence and a
	// branch suggestion. Off unless explicitly enabled.
	AutoApproveHighConfidence bool   `toml:"auto_approve_high_confidence"`
	DefaultTargetBranch       string `toml:"default_target_branch"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type StorageConfig struct {
	Backend string `toml:"backend"`
}

func Default() Config {
	return Config{
		Daemon:  DaemonConfig{Address: defaultDaemonAddress},
		GitHub:  GitHubConfig{BaseURL: defaultGitHubBaseURL},
		Devin:   DevinConfig{BaseURL: defaultDevinBaseURL},
		Poll:    PollConfig{IntervalSeconds: int(defaultPollInterval / time.Second)},
		Execute: ExecuteConfig{DefaultTargetBranch: defaultTargetBranch},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the settings file if present and applies environment
// overrides. A missing or empty file yields the defaults.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if addr := strings.TrimSpace(os.Getenv("TRIAGE_ADDR")); addr != "" {
		c.Daemon.Address = addr
	}
	if key := strings.TrimSpace(os.Getenv("DEVIN_API_KEY")); key != "" {
		c.Devin.APIKey = key
	}
}

func (c Config) DaemonAddress() string {
	addr := strings.TrimSpace(c.Daemon.Address)
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimRight(addr, "/")
	if addr == "" {
		return defaultDaemonAddress
	}
	return addr
}

func (c Config) DaemonBaseURL() string {
	return "http://" + c.DaemonAddress()
}

func (c Config) GitHubBaseURL() string {
	url := strings.TrimRight(strings.TrimSpace(c.GitHub.BaseURL), "/")
	if url == "" {
		return defaultGitHubBaseURL
	}
	return url
}

func (c Config) DevinBaseURL() string {
	url := strings.TrimRight(strings.TrimSpace(c.Devin.BaseURL), "/")
	if url == "" {
		return defaultDevinBaseURL
	}
	return url
}

func (c Config) DevinAPIKey() string {
	return strings.TrimSpace(c.Devin.APIKey)
}

func (c Config) PollInterval() time.Duration {
	if c.Poll.IntervalSeconds <= 0 {
		return defaultPollInterval
	}
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

func (c Config) DefaultTargetBranch() string {
	branch := strings.TrimSpace(c.Execute.DefaultTargetBranch)
	if branch == "" {
		return defaultTargetBranch
	}
	return branch
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) StorageBackend() string {
	return strings.ToLower(strings.TrimSpace(c.Storage.Backend))
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}
