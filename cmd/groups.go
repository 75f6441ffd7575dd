package cmd

import (
	"fmt"

	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/spf13/cobra"
)

var groupsBy string

var groupsCmd = &cobra.Command{
	Use:   "groups <file>",
	Short: "Average every subject per value of a grouping column (default SUPW)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		column := groupsBy
		if column == "" {
			opt, err := viewOptions()
			if err != nil {
				return err
			}
			column = opt.GroupBy
		}
		if column == "" {
			return fmt.Errorf("no grouping column: pass --by or set group_column")
		}
		groups := stats.GroupMeans(ds, column)
		if len(groups) == 0 {
			return fmt.Errorf("no %s data available", column)
		}
		return emit(cmd, groups, report.RenderGroups(column, groups))
	},
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.Flags().StringVar(&groupsBy, "by", "", "grouping column (default from config group_column)")
}
