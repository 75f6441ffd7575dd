package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	sqlFlags   reportFlags
	sqlDriver  string
	sqlDSN     string
	sqlQuery   string
	sqlName    string
	sqlOutput  string
	sqlTimeout time.Duration
)

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Load scores from a SQL query (sqlite, postgres, mysql) and report",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		driver, dsn := sqlDriver, sqlDSN
		if driver == "" {
			driver = c.SQLDriver
		}
		if dsn == "" {
			dsn = c.SQLDSN
		}
		if driver == "" || dsn == "" {
			return fmt.Errorf("--driver and --dsn are required (or set sql_driver/sql_dsn)")
		}
		if sqlQuery == "" {
			return fmt.Errorf("--query is required")
		}
		opt, err := sqlFlags.options()
		if err != nil {
			return err
		}
		p, err := openProject(sqlFlags.project)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), sqlTimeout)
		defer cancel()
		ds, err := projectLoader(p).LoadSQL(ctx, driver, dsn, sqlQuery)
		if err != nil {
			return err
		}
		if sqlName != "" {
			ds = ds.WithName(sqlName)
		}
		body, ext, err := sqlFlags.render(report.Build(ds, opt))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		written := false
		if sqlOutput != "" {
			if err := utils.SafeWriteFile(sqlOutput, body); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote report to %s\n", sqlOutput)
			written = true
		}
		if p != nil {
			base := sqlName
			if base == "" {
				base = driver + "-query"
			}
			// query results have no file to register as a dataset
			outFile, err := attachReport(p, base, ext, body, sqlFlags.desc, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Added report to project '%s' as %s\n", p.Name, outFile)
			written = true
		}
		if !written {
			fmt.Fprintln(out, string(body))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sqlCmd)
	sqlFlags.bind(sqlCmd)
	f := sqlCmd.Flags()
	f.StringVar(&sqlDriver, "driver", "", "sql driver: sqlite | postgres | mysql (default from config sql_driver)")
	f.StringVar(&sqlDSN, "dsn", "", "data source name (default from config sql_dsn)")
	f.StringVar(&sqlQuery, "query", "", "query returning one row per student")
	f.StringVar(&sqlName, "name", "", "display name for the loaded dataset")
	f.StringVarP(&sqlOutput, "output", "o", "", "optional path to write the report")
	f.DurationVar(&sqlTimeout, "timeout", 30*time.Second, "query timeout")
}
