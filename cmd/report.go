package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"github.com/KaramelBytes/scorelens-cli/internal/project"
	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/KaramelBytes/scorelens-cli/internal/utils"
	"github.com/spf13/cobra"
)

// reportFlags are the view flags shared by report, report-batch and sql.
type reportFlags struct {
	format  string
	project string
	desc    string
	top     int
	bins    int
	bands   string
	fit     []string
	groupBy string
}

func (rf *reportFlags) bind(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&rf.format, "format", "md", "output format: md | json | term")
	f.StringVarP(&rf.project, "project", "p", "", "project name to attach the report to")
	f.StringVar(&rf.desc, "desc", "", "description when attaching to a project")
	f.IntVar(&rf.top, "top", 0, "top students to list (default from config top_k)")
	f.IntVar(&rf.bins, "bins", 0, "composite histogram bins (default from config histogram_bins)")
	f.StringVar(&rf.bands, "bands", "", "custom distribution bands, e.g. \"85-100,70-84,0-69\"")
	f.StringSliceVar(&rf.fit, "fit", nil, "include a regression of two subjects, e.g. --fit Math,Science")
	f.StringVar(&rf.groupBy, "group-by", "", "grouping column (default from config group_column)")
}

func (rf *reportFlags) options() (report.Options, error) {
	opt, err := viewOptions()
	if err != nil {
		return opt, err
	}
	if rf.top > 0 {
		opt.TopK = rf.top
	}
	if rf.bins > 0 {
		opt.Bins = rf.bins
	}
	if rf.bands != "" {
		if opt.Bands, err = stats.ParseBands(rf.bands); err != nil {
			return opt, err
		}
	}
	switch len(rf.fit) {
	case 0:
	case 2:
		opt.FitX, opt.FitY = strings.TrimSpace(rf.fit[0]), strings.TrimSpace(rf.fit[1])
	default:
		return opt, fmt.Errorf("--fit takes exactly two subjects, e.g. --fit Math,Science")
	}
	if rf.groupBy != "" {
		opt.GroupBy = rf.groupBy
	}
	return opt, nil
}

// render returns the report body and the file extension for its format.
func (rf *reportFlags) render(r *report.Report) ([]byte, string, error) {
	switch strings.ToLower(strings.TrimSpace(rf.format)) {
	case "", "md", "markdown":
		return []byte(r.Markdown()), ".report.md", nil
	case "json":
		b, err := r.JSON()
		return b, ".report.json", err
	case "term", "terminal":
		return []byte(r.Terminal()), ".report.txt", nil
	default:
		return nil, "", fmt.Errorf("unsupported --format: %s (use md|json|term)", rf.format)
	}
}

// openProject loads a named project, or returns nil for an empty name. "." finds
// the project enclosing the working directory.
func openProject(name string) (*project.Project, error) {
	if name == "" {
		return nil, nil
	}
	if name == "." {
		dir, err := utils.FindProjectRoot("")
		if err != nil {
			return nil, err
		}
		return project.LoadProject(dir)
	}
	dir, err := resolveProjectDirByName(name)
	if err != nil {
		return nil, err
	}
	return project.LoadProject(dir)
}

// projectLoader applies the project's column layout on top of config and flags.
func projectLoader(p *project.Project) *dataset.Loader {
	l := newLoader()
	if p != nil {
		l.Options = p.Config.Apply(l.Options)
	}
	return l
}

// datasetRefFor finds the project's dataset with ds's fingerprint, registering
// srcPath when none matches.
func datasetRefFor(p *project.Project, ds *dataset.Dataset, srcPath string, l *dataset.Loader) (*project.DatasetRef, error) {
	fp := fmt.Sprintf("%016x", ds.Fingerprint())
	for _, ref := range p.SortedDatasets() {
		if ref.Fingerprint == fp {
			return ref, nil
		}
	}
	return p.AddDataset(srcPath, "Added by report", l)
}

// reportBaseName derives a file stem from the source path and selected sheet.
func reportBaseName(srcPath, sheet string) string {
	base := filepath.Base(srcPath)
	for _, ext := range []string{".gz", ".zst"} {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if sheet == "" {
		return base
	}
	s := strings.ToLower(strings.TrimSpace(sheet))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' {
			b.WriteRune('-')
		}
	}
	ss := strings.Trim(b.String(), "-")
	if ss == "" {
		ss = "sheet"
	}
	return base + "__sheet-" + ss
}

// uniquePath returns dir/base+ext, or dir/base__N+ext for the first free N >= 2.
func uniquePath(dir, base, ext string) string {
	out := filepath.Join(dir, base+ext)
	if _, err := os.Stat(out); os.IsNotExist(err) {
		return out
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}

// attachReport writes body under the project's reports/ directory without
// overwriting earlier reports, and records it.
func attachReport(p *project.Project, base, ext string, body []byte, desc, datasetID string) (string, error) {
	outDir := filepath.Join(p.RootDir(), "reports")
	if err := utils.EnsureDir(outDir); err != nil {
		return "", err
	}
	outFile := uniquePath(outDir, base, ext)
	if err := utils.SafeWriteFile(outFile, body); err != nil {
		return "", fmt.Errorf("write project report: %w", err)
	}
	if desc == "" {
		desc = "Auto-generated score report"
	}
	if _, err := p.AddReport(outFile, desc, datasetID); err != nil {
		return "", err
	}
	if err := p.Save(); err != nil {
		return "", err
	}
	return outFile, nil
}

var (
	repFlags  reportFlags
	repOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Build the full report for a score sheet",
	Long: `Build every view of a score sheet (overview, subjects, ranking, histogram,
distributions, correlations, optional fit and group means) and print it,
write it with -o, or attach it to a project with -p.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt, err := repFlags.options()
		if err != nil {
			return err
		}
		p, err := openProject(repFlags.project)
		if err != nil {
			return err
		}
		l := projectLoader(p)
		ds, err := l.LoadFile(path)
		if err != nil {
			return err
		}
		body, ext, err := repFlags.render(report.Build(ds, opt))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		written := false
		if repOutput != "" {
			if err := utils.SafeWriteFile(repOutput, body); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote report to %s\n", repOutput)
			written = true
		}
		if p != nil {
			ref, err := datasetRefFor(p, ds, path, l)
			if err != nil {
				return err
			}
			outFile, err := attachReport(p, reportBaseName(path, flagSheet), ext, body, repFlags.desc, ref.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Added report to project '%s' as %s\n", p.Name, filepath.Base(outFile))
			written = true
		}
		if !written {
			fmt.Fprintln(out, string(body))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	repFlags.bind(reportCmd)
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "optional path to write the report")
}
