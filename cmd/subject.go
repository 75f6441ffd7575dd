package cmd

import (
	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/spf13/cobra"
)

var (
	subjBands     string
	subjPass      float64
	subjExcellent float64
)

var subjectCmd = &cobra.Command{
	Use:   "subject <file> <subject>",
	Short: "Summarize one subject and its grade band distribution",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		subject := args[1]
		if err := requireSubject(ds, subject); err != nil {
			return err
		}
		opt, err := viewOptions()
		if err != nil {
			return err
		}
		if subjBands != "" {
			if opt.Bands, err = stats.ParseBands(subjBands); err != nil {
				return err
			}
		}
		f := cmd.Flags()
		if f.Changed("pass") {
			opt.Thresholds.Pass = subjPass
		}
		if f.Changed("excellent") {
			opt.Thresholds.Excellent = subjExcellent
		}
		perf := performanceOf(ds, subject, opt.Thresholds)
		buckets := stats.Distribution(ds, subject, opt.Bands)
		return emit(cmd, map[string]any{"performance": perf, "distribution": buckets}, report.RenderSubject(perf, buckets))
	},
}

func init() {
	rootCmd.AddCommand(subjectCmd)
	subjectCmd.Flags().StringVar(&subjBands, "bands", "", "custom bands, e.g. \"85-100,70-84,0-69\" (default: grade bands)")
	subjectCmd.Flags().Float64Var(&subjPass, "pass", 60, "pass mark for the failing count")
	subjectCmd.Flags().Float64Var(&subjExcellent, "excellent", 90, "mark counted as excellent")
}
