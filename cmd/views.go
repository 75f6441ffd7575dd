package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/scorelens-cli/internal/dataset"
	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/KaramelBytes/scorelens-cli/internal/utils"
	"github.com/spf13/cobra"
)

// viewOptions returns the configured report options.
func viewOptions() (report.Options, error) {
	c := currentConfig()
	if c.NameColumn == "" {
		// config failed to load; stay on defaults
		return report.DefaultOptions(), nil
	}
	opt, err := c.ViewOptions()
	if err != nil {
		return opt, err
	}
	if flagGroupCol != "" {
		opt.GroupBy = flagGroupCol
	}
	return opt, nil
}

// emit prints v as JSON when --json is set, otherwise the styled text.
func emit(cmd *cobra.Command, v any, styled string) error {
	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, v)
	}
	fmt.Fprintln(out, styled)
	return nil
}

func printJSON(w io.Writer, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// requireSubject rejects subjects the dataset does not carry.
func requireSubject(ds *dataset.Dataset, subject string) error {
	if _, ok := ds.SubjectIndex(subject); ok {
		return nil
	}
	avail := ds.Subjects()
	if len(avail) == 0 {
		return fmt.Errorf("unknown subject %q: no subject columns detected", subject)
	}
	return fmt.Errorf("unknown subject %q. Available subjects: %s", subject, strings.Join(avail, ", "))
}

// performanceOf picks one subject out of the per-subject summaries.
func performanceOf(ds *dataset.Dataset, subject string, th stats.Thresholds) stats.Performance {
	for _, p := range stats.SubjectPerformance(ds, th) {
		if p.Subject == subject {
			return p
		}
	}
	return stats.Performance{Subject: subject}
}
