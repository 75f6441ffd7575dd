package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	rbFlags  reportFlags
	rbOutDir string
	rbQuiet  bool
)

var reportBatchCmd = &cobra.Command{
	Use:   "report-batch <files...>",
	Short: "Report many score sheets with progress and optional project attachment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		opt, err := rbFlags.options()
		if err != nil {
			return err
		}
		p, err := openProject(rbFlags.project)
		if err != nil {
			return err
		}
		if rbOutDir != "" {
			if err := utils.EnsureDir(rbOutDir); err != nil {
				return err
			}
		}
		l := projectLoader(p)
		out := cmd.OutOrStdout()

		total := len(files)
		for i, path := range files {
			if !rbQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			ds, err := l.LoadFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			body, ext, err := rbFlags.render(report.Build(ds, opt))
			if err != nil {
				return err
			}
			base := reportBaseName(path, flagSheet)

			written := false
			if rbOutDir != "" {
				outFile := uniquePath(rbOutDir, base, ext)
				if err := utils.SafeWriteFile(outFile, body); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				if !rbQuiet {
					fmt.Fprintf(out, "✓ Wrote %s\n", outFile)
				}
				written = true
			}
			if p != nil {
				ref, err := datasetRefFor(p, ds, path, l)
				if err != nil {
					return err
				}
				outFile, err := attachReport(p, base, ext, body, rbFlags.desc, ref.ID)
				if err != nil {
					return err
				}
				if !rbQuiet {
					fmt.Fprintf(out, "✓ Added report to project '%s' as %s\n", p.Name, filepath.Base(outFile))
				}
				written = true
			}
			if !written && !rbQuiet {
				fmt.Fprintln(out, string(body))
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist and drops duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(reportBatchCmd)
	rbFlags.bind(reportBatchCmd)
	reportBatchCmd.Flags().StringVar(&rbOutDir, "out-dir", "", "directory to write one report per input")
	reportBatchCmd.Flags().BoolVar(&rbQuiet, "quiet", false, "suppress progress and non-essential output")
}
