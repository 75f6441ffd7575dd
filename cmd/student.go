package cmd

import (
	"fmt"

	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/spf13/cobra"
)

var studentCmd = &cobra.Command{
	Use:   "student <file> <id|name>",
	Short: "Show one student's scores against the class averages",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		i, ok := stats.FindStudent(ds, args[1])
		if !ok {
			return fmt.Errorf("student %q not found", args[1])
		}
		p := stats.StudentProfile(ds, i)
		return emit(cmd, p, report.RenderProfile(p))
	},
}

func init() {
	rootCmd.AddCommand(studentCmd)
}
