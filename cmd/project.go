package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/scorelens-cli/internal/project"
	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/spf13/cobra"
)

var (
	pmProject string
	pmClear   bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect and manage a project",
}

var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a project's layout, datasets and the latest overview",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requireProject()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Project: %s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(out, "Description: %s\n", p.Description)
		}
		fmt.Fprintf(out, "Location: %s\n", p.RootDir())
		if c := p.Config; c != nil {
			if c.NameColumn != "" || c.IDColumn != "" || c.GroupColumn != "" || len(c.Subjects) > 0 {
				fmt.Fprintf(out, "Columns: name=%q id=%q group=%q subjects=%s\n", c.NameColumn, c.IDColumn, c.GroupColumn, strings.Join(c.Subjects, ","))
			}
		}
		fmt.Fprintf(out, "Datasets: %d, Reports: %d\n", len(p.Datasets), len(p.Reports))

		latest, ok := p.Latest()
		if !ok {
			return nil
		}
		fmt.Fprintf(out, "Latest dataset: %s (added %s)\n", latest.Name, latest.AddedAt.Format("2006-01-02 15:04"))
		ds, err := projectLoader(p).LoadFile(latest.Path)
		if err != nil {
			fmt.Fprintf(out, "⚠ Could not reload %s: %v\n", latest.Path, err)
			return nil
		}
		if fp := fmt.Sprintf("%016x", ds.Fingerprint()); fp != latest.Fingerprint {
			fmt.Fprintf(out, "⚠ %s changed since it was added\n", latest.Name)
		}
		fmt.Fprintln(out, report.RenderOverview(stats.Overview(ds)))
		return nil
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:   "remove <dataset-id|file-name>",
	Short: "Remove a dataset reference from a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requireProject()
		if err != nil {
			return err
		}
		ref, err := p.RemoveDataset(args[0])
		if err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed dataset %s from %s\n", ref.Name, p.Name)
		return nil
	},
}

var projectSetColumnsCmd = &cobra.Command{
	Use:   "set-columns",
	Short: "Set or clear a project's column layout from --name-col/--id-col/--group-col/--subjects",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := requireProject()
		if err != nil {
			return err
		}
		if pmClear {
			p.Config = &project.ProjectConfig{}
		} else {
			if flagNameCol == "" && flagIDCol == "" && flagGroupCol == "" && len(flagSubjects) == 0 {
				return fmt.Errorf("pass at least one of --name-col, --id-col, --group-col, --subjects (or --clear)")
			}
			if p.Config == nil {
				p.Config = &project.ProjectConfig{}
			}
			if flagNameCol != "" {
				p.Config.NameColumn = flagNameCol
			}
			if flagIDCol != "" {
				p.Config.IDColumn = flagIDCol
			}
			if flagGroupCol != "" {
				p.Config.GroupColumn = flagGroupCol
			}
			if len(flagSubjects) > 0 {
				p.Config.Subjects = append([]string(nil), flagSubjects...)
			}
		}
		if err := p.Save(); err != nil {
			return err
		}
		if pmClear {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared column layout for %s\n", p.Name)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated column layout for %s\n", p.Name)
		}
		return nil
	},
}

func requireProject() (*project.Project, error) {
	if pmProject == "" {
		return nil, fmt.Errorf("--project is required")
	}
	return openProject(pmProject)
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectShowCmd, projectRemoveCmd, projectSetColumnsCmd)

	projectCmd.PersistentFlags().StringVarP(&pmProject, "project", "p", "", "project name")
	projectSetColumnsCmd.Flags().BoolVar(&pmClear, "clear", false, "clear the project's column overrides")
}
