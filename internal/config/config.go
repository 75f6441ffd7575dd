package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/KaramelBytes/scorelens-cli/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	ProjectsDir string `mapstructure:"projects_dir" yaml:"projects_dir"`

	// Column layout
	NameColumn     string   `mapstructure:"name_column" yaml:"name_column"`
	IDColumn       string   `mapstructure:"id_column" yaml:"id_column"`
	GroupColumn    string   `mapstructure:"group_column" yaml:"group_column"`
	SubjectsAfter  string   `mapstructure:"subjects_after" yaml:"subjects_after"`
	SubjectsBefore string   `mapstructure:"subjects_before" yaml:"subjects_before"`
	Subjects       []string `mapstructure:"subjects" yaml:"subjects"`

	// Views
	TopK           int     `mapstructure:"top_k" yaml:"top_k"`
	HistogramBins  int     `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	TrendThreshold float64 `mapstructure:"trend_threshold" yaml:"trend_threshold"`
	PassMark       float64 `mapstructure:"pass_mark" yaml:"pass_mark"`
	ExcellentMark  float64 `mapstructure:"excellent_mark" yaml:"excellent_mark"`
	// Bands like "90-100,80-89,..."; empty uses the default grade bands.
	Bands string `mapstructure:"bands" yaml:"bands"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// HTTP server and view cache
	ServerAddr    string `mapstructure:"server_addr" yaml:"server_addr"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	CacheTTLSec   int    `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`

	// Database ingestion
	SQLDriver string `mapstructure:"sql_driver" yaml:"sql_driver"`
	SQLDSN    string `mapstructure:"sql_dsn" yaml:"sql_dsn"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.scorelens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".scorelens")
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.WriteFileMode(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SCORELENS")
	v.AutomaticEnv()

	v.SetDefault("name_column", "Name")
	v.SetDefault("id_column", "Unique ID")
	v.SetDefault("group_column", "SUPW")
	v.SetDefault("subjects_after", "Seat Number")
	v.SetDefault("subjects_before", "SUPW")
	v.SetDefault("subjects", []string{})
	v.SetDefault("top_k", 10)
	v.SetDefault("histogram_bins", stats.DefaultBins)
	v.SetDefault("trend_threshold", stats.DefaultTrendThreshold)
	v.SetDefault("pass_mark", 60.0)
	v.SetDefault("excellent_mark", 90.0)
	v.SetDefault("bands", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("server_addr", ":5000")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_ttl_sec", 600)
	v.SetDefault("sql_driver", "sqlite")
	v.SetDefault("sql_dsn", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".scorelens")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.ProjectsDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		c.ProjectsDir = filepath.Join(home, ".scorelens", "projects")
	}
	return &c, nil
}

// LoadOptions maps the column layout onto loader options.
func (c *Global) LoadOptions() dataset.LoadOptions {
	opt := dataset.DefaultLoadOptions()
	opt.NameColumn = c.NameColumn
	opt.IDColumn = c.IDColumn
	opt.GroupColumn = c.GroupColumn
	opt.SubjectsAfter = c.SubjectsAfter
	opt.SubjectsBefore = c.SubjectsBefore
	opt.Subjects = append([]string(nil), c.Subjects...)
	return opt
}

// ViewOptions maps view settings onto report options.
func (c *Global) ViewOptions() (report.Options, error) {
	opt := report.DefaultOptions()
	if c.TopK > 0 {
		opt.TopK = c.TopK
	}
	if c.HistogramBins > 0 {
		opt.Bins = c.HistogramBins
	}
	if c.TrendThreshold > 0 {
		opt.TrendThreshold = c.TrendThreshold
	}
	opt.Thresholds = stats.Thresholds{Pass: c.PassMark, Excellent: c.ExcellentMark}
	opt.GroupBy = c.GroupColumn
	if strings.TrimSpace(c.Bands) != "" {
		bands, err := stats.ParseBands(c.Bands)
		if err != nil {
			return opt, fmt.Errorf("config bands: %w", err)
		}
		opt.Bands = bands
	}
	return opt, nil
}

// CacheTTL is the view cache lifetime.
func (c *Global) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSec) * time.Second }

// Set assigns one key from its string form.
func (c *Global) Set(key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	atof := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("invalid float for %s: %v", key, val)
		}
		return f, nil
	}
	var err error
	switch key {
	case "projects_dir":
		c.ProjectsDir = val
	case "name_column":
		c.NameColumn = val
	case "id_column":
		c.IDColumn = val
	case "group_column":
		c.GroupColumn = val
	case "subjects_after":
		c.SubjectsAfter = val
	case "subjects_before":
		c.SubjectsBefore = val
	case "subjects":
		c.Subjects = SplitList(val)
	case "top_k":
		c.TopK, err = atoi()
	case "histogram_bins":
		c.HistogramBins, err = atoi()
	case "trend_threshold":
		c.TrendThreshold, err = atof()
	case "pass_mark":
		c.PassMark, err = atof()
	case "excellent_mark":
		c.ExcellentMark, err = atof()
	case "bands":
		if _, perr := stats.ParseBands(val); perr != nil {
			return perr
		}
		c.Bands = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "warning", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	case "server_addr":
		c.ServerAddr = val
	case "redis_addr":
		c.RedisAddr = val
	case "redis_password":
		c.RedisPassword = val
	case "redis_db":
		c.RedisDB, err = atoi()
	case "cache_ttl_sec":
		c.CacheTTLSec, err = atoi()
	case "sql_driver":
		c.SQLDriver = val
	case "sql_dsn":
		c.SQLDSN = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

// SplitList splits a comma-separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
