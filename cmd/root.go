package cmd

import (
	"fmt"
	"os"
	"strings"

	cfgpkg "github.com/KaramelBytes/scorelens-cli/internal/config"
	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string

	// Column layout overrides (override config if set)
	flagNameCol  string
	flagIDCol    string
	flagGroupCol string
	flagSubjects []string
	flagSheet    string
	flagSheetIdx int
	asJSON       bool

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger logrus.FieldLogger = logrus.StandardLogger()
)

var rootCmd = &cobra.Command{
	Use:   "scorelens",
	Short: "ScoreLens CLI: analytics for student score sheets",
	Long: `ScoreLens loads student score sheets (CSV, TSV, XLSX or a SQL query) and
computes subject aggregates, rankings, distributions, correlations and linear
fits. Results render in the terminal, as Markdown/JSON reports or over HTTP.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.scorelens/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.StringVar(&logFormat, "log-format", "", "log format: text | json (overrides config)")
	pf.StringVar(&flagNameCol, "name-col", "", "student name column (overrides config)")
	pf.StringVar(&flagIDCol, "id-col", "", "student ID column (overrides config)")
	pf.StringVar(&flagGroupCol, "group-col", "", "grouping column such as SUPW (overrides config)")
	pf.StringSliceVar(&flagSubjects, "subjects", nil, "explicit subject columns (comma-separated)")
	pf.StringVar(&flagSheet, "sheet", "", "XLSX: sheet name to load")
	pf.IntVar(&flagSheetIdx, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet not provided)")
	pf.BoolVar(&asJSON, "json", false, "print JSON instead of styled output")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so read-only commands still work
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{}
	}
	cfg = c
	logger = newLogger(cfg.LogLevel, cfg.LogFormat)
}

// newLogger builds the operational logger. Flags win over config.
func newLogger(level, format string) logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if logFormat != "" {
		format = logFormat
	}
	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		// quiet by default for CLI use
		lvl = logrus.WarnLevel
	}
	if debug {
		lvl = logrus.DebugLevel
	}
	l.SetLevel(lvl)
	return l
}

// currentConfig returns the loaded config, loading it if OnInitialize did not run.
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

// loadOptions merges config and column flags.
func loadOptions() dataset.LoadOptions {
	opt := dataset.DefaultLoadOptions()
	if c := currentConfig(); c.NameColumn != "" {
		opt = c.LoadOptions()
	}
	if flagNameCol != "" {
		opt.NameColumn = flagNameCol
	}
	if flagIDCol != "" {
		opt.IDColumn = flagIDCol
	}
	if flagGroupCol != "" {
		opt.GroupColumn = flagGroupCol
	}
	if len(flagSubjects) > 0 {
		opt.Subjects = append([]string(nil), flagSubjects...)
	}
	return opt
}

// newLoader returns a dataset loader honoring config, flags and --sheet.
func newLoader() *dataset.Loader {
	l := dataset.NewLoader(logger.WithField("component", "loader"))
	l.Options = loadOptions()
	l.Sheet = flagSheet
	if flagSheetIdx > 0 {
		l.SheetIndex = flagSheetIdx
	}
	return l
}

// loadDataset reads a score sheet from path.
func loadDataset(path string) (*dataset.Dataset, error) {
	return newLoader().LoadFile(path)
}
