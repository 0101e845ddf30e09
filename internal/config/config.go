package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

type AnalyzerConfig struct {
	BinaryPath string   `json:"binaryPath"`
	EventsFile string   `json:"eventsFile"`
	StateFile  string   `json:"stateFile"`
	Args       []string `json:"args"`
}

type TLSConfig struct {
	Mode     string `json:"mode"`     // "self-signed", "autocert", "manual", or "" (disabled)
	Domain   string `json:"domain"`   // required for autocert
	CertFile string `json:"certFile"` // required for manual
	KeyFile  string `json:"keyFile"`  // required for manual
	CacheDir string `json:"cacheDir"` // for autocert and self-signed; defaults to ~/.audioid-web/certs
}

type WebserverConfig struct {
	Port      int       `json:"port"`
	Host      string    `json:"host"`
	Path      string    `json:"path"`      // WebSocket endpoint
	StaticDir string    `json:"staticDir"` // serve the client from disk instead of the embedded copy
	TLS       TLSConfig `json:"tls"`
}

type HistoryConfig struct {
	MaxEvents int `json:"maxEvents"`
}

type JournalConfig struct {
	Enabled       bool   `json:"enabled"`
	Path          string `json:"path"`
	RetentionDays int    `json:"retentionDays"`
}

type NotificationsConfig struct {
	Enabled bool     `json:"enabled"`
	Webhook string   `json:"webhook"`
	NtfyURL string   `json:"ntfy"`
	Labels  []string `json:"labels"`
}

type Config struct {
	Analyzer      AnalyzerConfig      `json:"analyzer"`
	Webserver     WebserverConfig     `json:"webserver"`
	History       HistoryConfig       `json:"history"`
	Journal       JournalConfig       `json:"journal"`
	Notifications NotificationsConfig `json:"notifications"`
	LogDir        string              `json:"logDir"`
	LogLevel      string              `json:"logLevel"`
	LogKeepDays   int                 `json:"logKeepDays"`
}

func Defaults() Config {
	return Config{
		Analyzer: AnalyzerConfig{
			BinaryPath: "./audioid",
			EventsFile: "events.ini",
			StateFile:  "state.ini",
		},
		Webserver: WebserverConfig{
			Port: 3001,
			Host: "0.0.0.0",
			Path: "/audioid",
			TLS:  TLSConfig{CacheDir: filepath.Join(BaseDir(), "certs")},
		},
		History: HistoryConfig{MaxEvents: 50},
		Journal: JournalConfig{
			Path:          filepath.Join(BaseDir(), "events.db"),
			RetentionDays: 7,
		},
		LogDir:      filepath.Join(BaseDir(), "logs"),
		LogLevel:    "info",
		LogKeepDays: 7,
	}
}

func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".audioid-web")
}

// DefaultPath honours AUDIOID_WEB_CONFIG before falling back to the base dir.
func DefaultPath() string {
	if p := os.Getenv("AUDIOID_WEB_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(BaseDir(), "config.json")
}

// Load overlays the file at path on Defaults. A missing file is not an error.
// Relative analyzer paths are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

func (c *Config) resolve(dir string) {
	c.Analyzer.BinaryPath = resolvePath(dir, c.Analyzer.BinaryPath)
	c.Analyzer.EventsFile = resolvePath(dir, c.Analyzer.EventsFile)
	c.Analyzer.StateFile = resolvePath(dir, c.Analyzer.StateFile)
	c.Webserver.StaticDir = resolvePath(dir, c.Webserver.StaticDir)
	if c.History.MaxEvents <= 0 {
		c.History.MaxEvents = Defaults().History.MaxEvents
	}
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
