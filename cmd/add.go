package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	addProjectName string
	addDataDesc    string
)

var addCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Add a score sheet to a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]
		if addProjectName == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := openProject(addProjectName)
		if err != nil {
			return err
		}
		ref, err := p.AddDataset(file, addDataDesc, projectLoader(p))
		if err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Dataset added: %s (%d students; subjects: %s)\n", ref.Name, ref.Students, strings.Join(ref.Subjects, ", "))
		if len(ref.Subjects) == 0 {
			fmt.Fprintln(out, "⚠ No subject columns detected. Check --subjects or the column layout.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addProjectName, "project", "p", "", "project name")
	addCmd.Flags().StringVar(&addDataDesc, "desc", "", "dataset description")
}
