package cmd

import (
	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/spf13/cobra"
)

var overviewCmd = &cobra.Command{
	Use:   "overview <file>",
	Short: "Show class totals: overall average, top performer and best subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		o := stats.Overview(ds)
		return emit(cmd, o, report.RenderOverview(o))
	},
}

func init() {
	rootCmd.AddCommand(overviewCmd)
}
