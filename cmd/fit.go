package cmd

import (
	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/spf13/cobra"
)

var fitThreshold float64

var fitCmd = &cobra.Command{
	Use:   "fit <file> <x-subject> <y-subject>",
	Short: "Least-squares line of one subject against another, with trend decision",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		x, y := args[1], args[2]
		for _, s := range []string{x, y} {
			if err := requireSubject(ds, s); err != nil {
				return err
			}
		}
		threshold := fitThreshold
		if !cmd.Flags().Changed("threshold") {
			opt, err := viewOptions()
			if err != nil {
				return err
			}
			threshold = opt.TrendThreshold
		}
		f := stats.LinearFit(ds, x, y)
		view := report.FitView{Fit: f, Trend: f.Trend(threshold)}
		return emit(cmd, view, report.RenderFit(view))
	},
}

func init() {
	rootCmd.AddCommand(fitCmd)
	fitCmd.Flags().Float64Var(&fitThreshold, "threshold", stats.DefaultTrendThreshold, "|r| a fit must exceed to count as a trend")
}
