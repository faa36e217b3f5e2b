package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultChores is the chore catalog used when none is configured.
var DefaultChores = []string{"Udělat myčku", "Prádlo", "Vynést koš", "Umýt zem", "Jít se psem"}

type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Ledger  LedgerConfig  `yaml:"ledger" json:"ledger"`
	Auth    AuthConfig    `yaml:"auth" json:"auth"`
	Chores  []string      `yaml:"chores" json:"chores"`
}

type ServerConfig struct {
	Addr               string `yaml:"addr" json:"addr"`
	ReadTimeoutSec     int    `yaml:"read_timeout_sec" json:"read_timeout_sec"`
	WriteTimeoutSec    int    `yaml:"write_timeout_sec" json:"write_timeout_sec"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec" json:"shutdown_timeout_sec"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

type LedgerConfig struct {
	// Storage is "file" (one JSON file per month) or "memory".
	Storage    string `yaml:"storage" json:"storage"`
	BestEffort bool   `yaml:"best_effort" json:"best_effort"`
}

type AuthConfig struct {
	UsersFile string `yaml:"users_file" json:"users_file"`
	// Users are merged over the users file.
	Users           map[string]string `yaml:"users" json:"-"`
	CookieName      string            `yaml:"cookie_name" json:"cookie_name"`
	CookieSecure    string            `yaml:"cookie_secure" json:"cookie_secure"`
	SessionTTLHours int               `yaml:"session_ttl_hours" json:"session_ttl_hours"`
}

func (s *ServerConfig) ApplyDefaults() {
	if strings.TrimSpace(s.Addr) == "" {
		s.Addr = ":8081"
	}
	if s.ReadTimeoutSec <= 0 {
		s.ReadTimeoutSec = 10
	}
	if s.WriteTimeoutSec <= 0 {
		s.WriteTimeoutSec = 10
	}
	if s.ShutdownTimeoutSec <= 0 {
		s.ShutdownTimeoutSec = 5
	}
}

func (l *LedgerConfig) ApplyDefaults() {
	switch strings.ToLower(strings.TrimSpace(l.Storage)) {
	case "memory":
		l.Storage = "memory"
	default:
		l.Storage = "file"
	}
}

func (a *AuthConfig) ApplyDefaults() {
	if strings.TrimSpace(a.UsersFile) == "" {
		a.UsersFile = "users.txt"
	}
	if strings.TrimSpace(a.CookieName) == "" {
		a.CookieName = "taskapp_session"
	}
	if strings.TrimSpace(a.CookieSecure) == "" {
		a.CookieSecure = "auto"
	}
	if a.SessionTTLHours <= 0 {
		a.SessionTTLHours = 24 * 7
	}
}

func (c *Config) ApplyDefaults() {
	c.Server.ApplyDefaults()
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		c.Storage.DataDir = "data"
	}
	c.Ledger.ApplyDefaults()
	c.Auth.ApplyDefaults()

	chores := make([]string, 0, len(c.Chores))
	for _, ch := range c.Chores {
		if ch = strings.TrimSpace(ch); ch != "" {
			chores = append(chores, ch)
		}
	}
	if len(chores) == 0 {
		chores = append(chores, DefaultChores...)
	}
	c.Chores = chores
}

func (c *Config) TasksDir() string {
	return filepath.Join(c.Storage.DataDir, "tasks")
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionTTLHours) * time.Hour
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSec) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSec) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSec) * time.Second
}

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	c.ApplyDefaults()
	return &c
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Config
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	r.ApplyDefaults()
	return &r, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}
