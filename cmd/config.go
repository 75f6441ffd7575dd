package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cfgpkg "github.com/KaramelBytes/scorelens-cli/internal/config"
	"github.com/spf13/cobra"
)

var cfgInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set ScoreLens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "projects_dir: %s\n", c.ProjectsDir)
		fmt.Fprintf(out, "name_column: %s\n", c.NameColumn)
		fmt.Fprintf(out, "id_column: %s\n", c.IDColumn)
		fmt.Fprintf(out, "group_column: %s\n", c.GroupColumn)
		fmt.Fprintf(out, "subjects_after: %s\n", c.SubjectsAfter)
		fmt.Fprintf(out, "subjects_before: %s\n", c.SubjectsBefore)
		if len(c.Subjects) > 0 {
			fmt.Fprintf(out, "subjects: %s\n", strings.Join(c.Subjects, ","))
		}
		fmt.Fprintf(out, "top_k: %d\n", c.TopK)
		fmt.Fprintf(out, "histogram_bins: %d\n", c.HistogramBins)
		fmt.Fprintf(out, "trend_threshold: %.3f\n", c.TrendThreshold)
		fmt.Fprintf(out, "pass_mark: %g\n", c.PassMark)
		fmt.Fprintf(out, "excellent_mark: %g\n", c.ExcellentMark)
		if c.Bands != "" {
			fmt.Fprintf(out, "bands: %s\n", c.Bands)
		}
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		fmt.Fprintf(out, "server_addr: %s\n", c.ServerAddr)
		if c.RedisAddr != "" {
			fmt.Fprintf(out, "redis_addr: %s\n", c.RedisAddr)
			fmt.Fprintf(out, "redis_password: %s\n", mask(c.RedisPassword))
			fmt.Fprintf(out, "redis_db: %d\n", c.RedisDB)
		}
		fmt.Fprintf(out, "cache_ttl_sec: %d\n", c.CacheTTLSec)
		fmt.Fprintf(out, "sql_driver: %s\n", c.SQLDriver)
		if c.SQLDSN != "" {
			fmt.Fprintf(out, "sql_dsn: %s\n", mask(c.SQLDSN))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve home dir: %w", err)
			}
			path = filepath.Join(home, ".scorelens", "config.yaml")
		}
		if _, err := os.Stat(path); err == nil && !cfgInitForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		if err := cfgpkg.Save(currentConfig(), cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd, configInitCmd)
	configInitCmd.Flags().BoolVar(&cfgInitForce, "force", false, "overwrite an existing config file")
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
