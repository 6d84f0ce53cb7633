// Package config handles loading and saving taxa configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/taxa/config.yaml
//   - Data:    ~/.local/share/taxa/ (default sqlite store)
//   - State:   ~/.local/state/taxa/ (log file, tree state)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// APIConfig points the browser at a listing service.
type APIConfig struct {
	BaseURL string        `yaml:"base_url,omitempty"` // e.g. http://localhost:8080 or http://host/api/library/1
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ListingConfig controls paging of the record listing.
type ListingConfig struct {
	PageSize  int           `yaml:"page_size,omitempty"`
	SlowAfter time.Duration `yaml:"slow_after,omitempty"` // "taking too long" threshold
}

// DebounceConfig holds the quiet periods for bursty inputs.
type DebounceConfig struct {
	Search     time.Duration `yaml:"search,omitempty"`
	TreeFilter time.Duration `yaml:"tree_filter,omitempty"`
	Relayout   time.Duration `yaml:"relayout,omitempty"`
}

// StoreConfig selects the SQL backend.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"` // sqlite or postgres
	DSN    string `yaml:"dsn,omitempty"`    // file path for sqlite, URL for postgres
}

// ServerConfig configures `taxa serve`.
type ServerConfig struct {
	Addr           string        `yaml:"addr,omitempty"`
	CacheTTL       time.Duration `yaml:"cache_ttl,omitempty"`
	CacheSize      int           `yaml:"cache_size,omitempty"`
	HierarchyDepth int           `yaml:"hierarchy_depth,omitempty"`
}

// RankColumn maps one rank to the CSV columns carrying its name and
// localized name.
type RankColumn struct {
	Name    string `yaml:"name"`
	Field   string `yaml:"field"`
	FieldZh string `yaml:"field_zh,omitempty"`
}

// ImportConfig describes the CSV layout consumed by `taxa import`.
type ImportConfig struct {
	Ranks         []RankColumn `yaml:"ranks,omitempty"`
	IDField       string       `yaml:"id_field,omitempty"`
	NameField     string       `yaml:"name_field,omitempty"`
	NameZhField   string       `yaml:"name_zh_field,omitempty"`
	OtherZhField  string       `yaml:"other_zh_field,omitempty"`
	StatusIDField string       `yaml:"status_id_field,omitempty"`
}

// UIConfig holds TUI preferences.
type UIConfig struct {
	DefaultView string  `yaml:"default_view,omitempty"` // table or gallery
	TreeRatio   float64 `yaml:"tree_ratio,omitempty"`   // tree pane width (0.2-0.6)
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // text or json
	File   string `yaml:"file,omitempty"`
}

// Config is the top-level configuration for taxa.
type Config struct {
	API      APIConfig      `yaml:"api,omitempty"`
	Listing  ListingConfig  `yaml:"listing,omitempty"`
	Debounce DebounceConfig `yaml:"debounce,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Import   ImportConfig   `yaml:"import,omitempty"`
	UI       UIConfig       `yaml:"ui,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

// DefaultRanks is the kingdom-to-subfamily column layout of the reference
// checklist export.
func DefaultRanks() []RankColumn {
	return []RankColumn{
		{Name: "kingdom", Field: "kingdom", FieldZh: "kingdom_c"},
		{Name: "phylum", Field: "phylum", FieldZh: "phylum_c"},
		{Name: "class", Field: "class", FieldZh: "class_c"},
		{Name: "order", Field: "order", FieldZh: "order_c"},
		{Name: "family", Field: "family", FieldZh: "family_c"},
		{Name: "subfamily", Field: "subfamily", FieldZh: "subfamily_c"},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		Listing: ListingConfig{
			PageSize:  20,
			SlowAfter: 10 * time.Second,
		},
		Debounce: DebounceConfig{
			Search:     500 * time.Millisecond,
			TreeFilter: 300 * time.Millisecond,
			Relayout:   200 * time.Millisecond,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(DataDir(), "taxa.db"),
		},
		Server: ServerConfig{
			Addr:           ":8080",
			CacheTTL:       24 * time.Hour,
			CacheSize:      512,
			HierarchyDepth: 6,
		},
		Import: ImportConfig{
			Ranks:         DefaultRanks(),
			IDField:       "taxon_id",
			NameField:     "simple_name",
			NameZhField:   "common_name_c",
			OtherZhField:  "alternative_name_c",
			StatusIDField: "status_id",
		},
		UI: UIConfig{
			DefaultView: "table",
			TreeRatio:   0.35,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, "taxa")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{home}, fallback...), "taxa")...)
}

// ConfigDir returns the XDG config directory for taxa.
func ConfigDir() string { return xdgDir("XDG_CONFIG_HOME", ".config") }

// DataDir returns the XDG data directory for taxa.
func DataDir() string { return xdgDir("XDG_DATA_HOME", ".local", "share") }

// StateDir returns the XDG state directory for taxa.
func StateDir() string { return xdgDir("XDG_STATE_HOME", ".local", "state") }

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return applyEnv(DefaultConfig()), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path, then applies TAXA_*
// environment overrides. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Store.Driver == "sqlite" {
		cfg.Store.DSN = expandHome(cfg.Store.DSN)
	}
	cfg.Log.File = expandHome(cfg.Log.File)

	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv("TAXA_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("TAXA_DSN"); v != "" {
		cfg.Store.DSN = expandHome(v)
	}
	if v := os.Getenv("TAXA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return cfg
}

// Validate checks values that would otherwise fail far from the config file.
func (c Config) Validate() error {
	if c.Listing.PageSize <= 0 {
		return fmt.Errorf("listing.page_size must be positive, got %d", c.Listing.PageSize)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	switch c.UI.DefaultView {
	case "table", "gallery":
	default:
		return fmt.Errorf("ui.default_view must be table or gallery, got %q", c.UI.DefaultView)
	}
	if c.UI.TreeRatio < 0.2 || c.UI.TreeRatio > 0.6 {
		return fmt.Errorf("ui.tree_ratio must be within [0.2, 0.6], got %v", c.UI.TreeRatio)
	}
	for i, r := range c.Import.Ranks {
		if r.Name == "" || r.Field == "" {
			return fmt.Errorf("import.ranks[%d]: name and field are required", i)
		}
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// RankNames returns the configured rank names in order.
func (c Config) RankNames() []string {
	names := make([]string, len(c.Import.Ranks))
	for i, r := range c.Import.Ranks {
		names[i] = r.Name
	}
	return names
}

// LogPath returns the configured log file, defaulting to the state dir.
func (c Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "taxa.log")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
