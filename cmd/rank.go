package cmd

import (
	"fmt"

	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/spf13/cobra"
)

var rankTop int

var rankCmd = &cobra.Command{
	Use:   "rank <file>",
	Short: "List the top students by composite average",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if rankTop < 0 {
			return fmt.Errorf("--top must be >= 0")
		}
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		k := rankTop
		if !cmd.Flags().Changed("top") {
			opt, err := viewOptions()
			if err != nil {
				return err
			}
			k = opt.TopK
		}
		top := stats.Rank(ds, k)
		return emit(cmd, top, report.RenderRanking(top))
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.Flags().IntVarP(&rankTop, "top", "k", 10, "number of students to list (default from config top_k)")
}
