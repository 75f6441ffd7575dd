package cmd

import (
	"fmt"

	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/spf13/cobra"
)

var (
	histBins    int
	histSubject string
)

var histogramCmd = &cobra.Command{
	Use:   "histogram <file>",
	Short: "Histogram of composite averages (or one subject with --subject)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		bins := histBins
		if !cmd.Flags().Changed("bins") {
			opt, err := viewOptions()
			if err != nil {
				return err
			}
			bins = opt.Bins
		}
		if bins <= 0 {
			return fmt.Errorf("--bins must be positive")
		}
		var hist []stats.Bin
		if histSubject != "" {
			if err := requireSubject(ds, histSubject); err != nil {
				return err
			}
			j, _ := ds.SubjectIndex(histSubject)
			hist = stats.Histogram(ds.Column(j), bins)
		} else {
			hist = stats.CompositeHistogram(ds, bins)
		}
		return emit(cmd, hist, report.RenderHistogram(hist))
	},
}

func init() {
	rootCmd.AddCommand(histogramCmd)
	histogramCmd.Flags().IntVar(&histBins, "bins", stats.DefaultBins, "number of equal-width bins")
	histogramCmd.Flags().StringVar(&histSubject, "subject", "", "histogram one subject's scores instead of composites")
}
