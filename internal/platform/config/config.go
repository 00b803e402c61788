// Package config loads the runtime configuration. Precedence, lowest to
// highest: built-in defaults, .env file, WAYRAKE_* environment variables,
// an optional YAML file, command line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"wayrake/internal/core/domain"
	"wayrake/internal/platform/errors"
)

type Config struct {
	// Run
	Inputs       []string
	InputFile    string
	Mode         string // resolve | mp3 | space
	TimeoutS     int    // global deadline in seconds (0 = none)
	PrintVersion bool

	// Discovery
	From       string
	To         string
	Limit      int
	Flat       bool
	Type       string
	BatchWidth int
	Collapse   string
	RateLimit  float64

	// Search
	Artist string
	Song   string
	Genre  string
	Query  string

	// IO
	OutputDir string
	NoTable   bool

	// Cache
	CacheDir      string
	CacheTTLHours int

	// Download
	Download    bool
	DownloadDir string

	// Probe
	ProbeURL string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Mode:          "resolve",
		TimeoutS:      0,
		Limit:         0, // 0 = per-mode default: 12 in discovery, 10000 in flat mode
		Type:          string(domain.TypeAll),
		BatchWidth:    4,
		Collapse:      "digest",
		OutputDir:     "wayrake_out",
		CacheDir:      ".wayrake-cache",
		CacheTTLHours: 24,
		DownloadDir:   "wayrake_downloads",
	}
}

// Load builds the configuration from args (flags plus positional inputs).
func Load(args []string) (Config, error) {
	cfg := DefaultConfig()

	// A .env file feeds the environment before it is read.
	_ = godotenv.Load()
	loadFromEnv(&cfg)

	if path := configFilePath(args); path != "" {
		if err := loadFromFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	if err := loadFromFlags(&cfg, args); err != nil {
		return cfg, err
	}

	normalize(&cfg)
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("WAYRAKE_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("WAYRAKE_TIMEOUT"); v != "" {
		cfg.TimeoutS = parseInt(v, cfg.TimeoutS)
	}
	if v := os.Getenv("WAYRAKE_LIMIT"); v != "" {
		cfg.Limit = parseInt(v, cfg.Limit)
	}
	if v := os.Getenv("WAYRAKE_BATCH_WIDTH"); v != "" {
		cfg.BatchWidth = parseInt(v, cfg.BatchWidth)
	}
	if v := os.Getenv("WAYRAKE_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit = f
		}
	}
	if v := os.Getenv("WAYRAKE_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("WAYRAKE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("WAYRAKE_CACHE_TTL_HOURS"); v != "" {
		cfg.CacheTTLHours = parseInt(v, cfg.CacheTTLHours)
	}
	if v := os.Getenv("WAYRAKE_DOWNLOAD_DIR"); v != "" {
		cfg.DownloadDir = v
	}
}

// fileConfig mirrors the YAML schema. Only set fields override.
type fileConfig struct {
	Mode          *string  `yaml:"mode"`
	TimeoutS      *int     `yaml:"timeout_s"`
	From          *string  `yaml:"from"`
	To            *string  `yaml:"to"`
	Limit         *int     `yaml:"limit"`
	Flat          *bool    `yaml:"flat"`
	Type          *string  `yaml:"type"`
	BatchWidth    *int     `yaml:"batch_width"`
	Collapse      *string  `yaml:"collapse"`
	RateLimit     *float64 `yaml:"rate_limit"`
	OutputDir     *string  `yaml:"output_dir"`
	NoTable       *bool    `yaml:"no_table"`
	CacheDir      *string  `yaml:"cache_dir"`
	CacheTTLHours *int     `yaml:"cache_ttl_hours"`
	DownloadDir   *string  `yaml:"download_dir"`
}

func loadFromFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "cannot read config file %s", path)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return errors.Wrapf(err, "invalid config file %s", path)
	}

	setString(&cfg.Mode, fc.Mode)
	setInt(&cfg.TimeoutS, fc.TimeoutS)
	setString(&cfg.From, fc.From)
	setString(&cfg.To, fc.To)
	setInt(&cfg.Limit, fc.Limit)
	setBool(&cfg.Flat, fc.Flat)
	setString(&cfg.Type, fc.Type)
	setInt(&cfg.BatchWidth, fc.BatchWidth)
	setString(&cfg.Collapse, fc.Collapse)
	if fc.RateLimit != nil {
		cfg.RateLimit = *fc.RateLimit
	}
	setString(&cfg.OutputDir, fc.OutputDir)
	setBool(&cfg.NoTable, fc.NoTable)
	setString(&cfg.CacheDir, fc.CacheDir)
	setInt(&cfg.CacheTTLHours, fc.CacheTTLHours)
	setString(&cfg.DownloadDir, fc.DownloadDir)
	return nil
}

// configFilePath finds the config file: the --config flag wins, then the
// WAYRAKE_CONFIG variable. The flag is pre-scanned so file values stay
// below regular flags in precedence.
func configFilePath(args []string) string {
	for i, a := range args {
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
	}
	return os.Getenv("WAYRAKE_CONFIG")
}

func loadFromFlags(cfg *Config, args []string) error {
	fs := pflag.NewFlagSet("wayrake", pflag.ContinueOnError)

	fs.String("config", "", "Path to a YAML config file")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Run mode: resolve, mp3 or space")
	fs.StringVar(&cfg.InputFile, "input-file", cfg.InputFile, "File with one target per line")
	fs.IntVar(&cfg.TimeoutS, "timeout", cfg.TimeoutS, "Global timeout in seconds (0 = none)")
	fs.BoolVar(&cfg.PrintVersion, "version", false, "Print version and exit")

	fs.StringVar(&cfg.From, "from", cfg.From, "Only captures on or after this date (YYYY-MM-DD or YYYYMMDD)")
	fs.StringVar(&cfg.To, "to", cfg.To, "Only captures on or before this date")
	fs.IntVar(&cfg.Limit, "limit", cfg.Limit, "Captures examined per target (0 = mode default: 12, or 10000 with --flat)")
	fs.BoolVar(&cfg.Flat, "flat", cfg.Flat, "List index rows directly instead of extracting from pages")
	fs.StringVar(&cfg.Type, "type", cfg.Type, "Filter results: all, images, media or documents")
	fs.IntVar(&cfg.BatchWidth, "batch", cfg.BatchWidth, "Concurrent page fetches")
	fs.Float64Var(&cfg.RateLimit, "rate", cfg.RateLimit, "Max requests per second (0 = unlimited)")

	fs.StringVar(&cfg.Artist, "artist", cfg.Artist, "Artist for mp3 mode")
	fs.StringVar(&cfg.Song, "song", cfg.Song, "Song for mp3 mode")
	fs.StringVar(&cfg.Genre, "genre", cfg.Genre, "Genre for mp3 mode")
	fs.StringVar(&cfg.Query, "query", cfg.Query, "Free-text query for space mode")

	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Output directory")
	fs.BoolVar(&cfg.NoTable, "no-table", cfg.NoTable, "Skip the terminal table (JSON is always written)")

	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Index cache directory")
	fs.IntVar(&cfg.CacheTTLHours, "cache-ttl", cfg.CacheTTLHours, "Index cache freshness in hours")

	fs.BoolVar(&cfg.Download, "download", cfg.Download, "Download resolved resources")
	fs.StringVar(&cfg.DownloadDir, "download-dir", cfg.DownloadDir, "Download destination")

	fs.StringVar(&cfg.ProbeURL, "probe", cfg.ProbeURL, "Classify a single URL (audio, html or unknown) and exit")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		return err
	}
	cfg.Inputs = append(cfg.Inputs, fs.Args()...)
	return nil
}

func normalize(c *Config) {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	switch c.Mode {
	case "resolve", "mp3", "space":
	case "":
		c.Mode = "resolve"
	default:
		c.Mode = "resolve"
	}

	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	switch domain.TypeClass(c.Type) {
	case domain.TypeAll, domain.TypeImages, domain.TypeMedia, domain.TypeDocuments:
	default:
		c.Type = string(domain.TypeAll)
	}

	if c.BatchWidth < 1 {
		c.BatchWidth = 1
	}
	if c.Limit < 0 {
		c.Limit = 0
	}
	if c.TimeoutS < 0 {
		c.TimeoutS = 0
	}
	if c.CacheTTLHours < 0 {
		c.CacheTTLHours = 24
	}
	if c.OutputDir == "" {
		c.OutputDir = "wayrake_out"
	}
}

// ExpandInputs returns the final target list: positional inputs plus the
// lines of the input file, blank lines and #-comments skipped.
func (c Config) ExpandInputs() ([]string, error) {
	inputs := append([]string(nil), c.Inputs...)
	if c.InputFile == "" {
		return inputs, nil
	}

	b, err := os.ReadFile(c.InputFile)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read input file %s", c.InputFile)
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}
	return inputs, nil
}

func parseInt(s string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return fallback
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Summary is a short human-readable description used by the startup log.
func (c Config) Summary() string {
	return fmt.Sprintf("mode=%s inputs=%d limit=%d batch=%d flat=%t type=%s",
		c.Mode, len(c.Inputs), c.Limit, c.BatchWidth, c.Flat, c.Type)
}
