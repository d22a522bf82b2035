package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultCacheName      = "cache.db"
	DefaultServerDBName   = "numbers.db"
	DefaultAPIPort        = 5000
	DefaultAPIHost        = "localhost"

	appDirName = "numtrack"

	EnvConfigPath = "NUMTRACK_CONFIG"
	EnvAPIURL     = "TRACKER_API_URL"
)

type Keymap struct {
	Quit        string `toml:"quit"`
	Up          string `toml:"up"`
	Down        string `toml:"down"`
	PageUp      string `toml:"page_up"`
	PageDown    string `toml:"page_down"`
	Search      string `toml:"search"`
	Filter      string `toml:"filter"`
	DateFilter  string `toml:"date_filter"`
	DateFrom    string `toml:"date_from"`
	DateTo      string `toml:"date_to"`
	Bulk        string `toml:"bulk"`
	BulkStatus  string `toml:"bulk_status"`
	Rename      string `toml:"rename"`
	EditDate    string `toml:"edit_date"`
	SubDone     string `toml:"sub_done"`
	SubNo       string `toml:"sub_no"`
	Export      string `toml:"export"`
	Confirm     string `toml:"confirm"`
	Cancel      string `toml:"cancel"`
	StatusKeys  string `toml:"status_keys"`
	ClearFilter string `toml:"clear_filter"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// Path is where the terminal UI writes its log; stderr is used when
	// empty outside the UI.
	Path string `toml:"path"`
}

type Config struct {
	APIURL         string    `toml:"api_url"`
	RequestTimeout string    `toml:"request_timeout"`
	CachePath      string    `toml:"cache_path"`
	DBPath         string    `toml:"db_path"`
	Listen         string    `toml:"listen"`
	AllowOrigins   []string  `toml:"allow_origins"`
	DefaultFilter  string    `toml:"default_filter"`
	ExportPath     string    `toml:"export_path"`
	Log            LogConfig `toml:"log"`
	Keys           Keymap    `toml:"keys"`
}

// ResolveConfigPath picks the config file: $NUMTRACK_CONFIG, else
// <user config dir>/numtrack/config.toml, else ./config.toml.
func ResolveConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, appDirName, DefaultConfigFileName)
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig(filepath.Dir(path))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg.withEnv(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join(filepath.Dir(path), DefaultCacheName)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(path), DefaultServerDBName)
	}
	return cfg.withEnv(), nil
}

func (c Config) withEnv() Config {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.APIURL = v
	}
	return c
}

// ResolvedAPIURL is the backend base URL: the configured value, or the
// local host on the default port.
func (c Config) ResolvedAPIURL() string {
	if v := strings.TrimSpace(c.APIURL); v != "" {
		return strings.TrimRight(v, "/")
	}
	return fmt.Sprintf("http://%s:%d/api", DefaultAPIHost, DefaultAPIPort)
}

// Timeout parses RequestTimeout, defaulting to ten seconds.
func (c Config) Timeout() time.Duration {
	if d, err := time.ParseDuration(c.RequestTimeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig(dir string) Config {
	return Config{
		APIURL:         "",
		RequestTimeout: "10s",
		CachePath:      filepath.Join(dir, DefaultCacheName),
		DBPath:         filepath.Join(dir, DefaultServerDBName),
		Listen:         fmt.Sprintf(":%d", DefaultAPIPort),
		AllowOrigins:   []string{"http://localhost:5173", "http://localhost:4173"},
		DefaultFilter:  "all",
		ExportPath:     "number-status-tracker.csv",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Path:   filepath.Join(dir, "numtrack.log"),
		},
		Keys: Keymap{
			Quit:        "q",
			Up:          "k",
			Down:        "j",
			PageUp:      "pgup",
			PageDown:    "pgdown",
			Search:      "/",
			Filter:      "f",
			DateFilter:  "F",
			DateFrom:    "[",
			DateTo:      "]",
			Bulk:        "b",
			BulkStatus:  "B",
			Rename:      "r",
			EditDate:    "t",
			SubDone:     "y",
			SubNo:       "n",
			Export:      "e",
			Confirm:     "enter",
			Cancel:      "esc",
			StatusKeys:  "123456",
			ClearFilter: "c",
		},
	}
}
