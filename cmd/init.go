package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/scorelens-cli/internal/project"
	"github.com/KaramelBytes/scorelens-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	initDescription string
	initData        []string
)

var initCmd = &cobra.Command{
	Use:   "init <project-name>",
	Short: "Initialize a new cohort project",
	Long: `Create a project workspace under the projects directory. Column flags
(--name-col, --id-col, --group-col, --subjects) become the project's layout,
and --data registers score sheets right away.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := validProjectName(name); err != nil {
			return err
		}
		projDir, err := resolveProjectDirByName(name)
		if err != nil {
			return err
		}
		if err := ensureFreshDir(projDir); err != nil {
			return err
		}
		if err := utils.EnsureDir(projDir); err != nil {
			return err
		}

		p := project.NewProject(name, initDescription, projDir)
		p.Config = &project.ProjectConfig{
			NameColumn:  flagNameCol,
			IDColumn:    flagIDCol,
			GroupColumn: flagGroupCol,
			Subjects:    append([]string(nil), flagSubjects...),
		}
		out := cmd.OutOrStdout()
		if len(initData) > 0 {
			l := projectLoader(p)
			for _, path := range initData {
				ref, err := p.AddDataset(path, "", l)
				if err != nil {
					return fmt.Errorf("add %s: %w", path, err)
				}
				fmt.Fprintf(out, "✓ Dataset added: %s (%d students)\n", ref.Name, ref.Students)
			}
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Project initialized: %s\n", projDir)
		return nil
	},
}

// ensureFreshDir refuses an existing project or a non-empty directory.
func ensureFreshDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return fmt.Errorf("stat project directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("%s exists and is not a directory", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, utils.ProjectFile)); err == nil {
		return fmt.Errorf("project already exists at %s", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("inspect project directory: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("directory %s already exists and is not empty; refusing to initialize project", dir)
	}
	return nil
}

func validProjectName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("project name is required")
	case name == "." || name == "..":
		return fmt.Errorf("invalid project name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("project name %q must not contain path separators", name)
	}
	return nil
}

// expandHome resolves a leading ~ against the user's home directory.
func expandHome(dir string) (string, error) {
	if !strings.HasPrefix(dir, "~") {
		return filepath.Clean(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	rest := strings.TrimLeft(strings.TrimPrefix(dir, "~"), `/\`)
	return filepath.Join(home, rest), nil
}

// defaultProjectsDir returns (and creates) projects_dir, or ~/.scorelens/projects.
func defaultProjectsDir() (string, error) {
	dir := currentConfig().ProjectsDir
	if dir == "" {
		dir = filepath.Join("~", ".scorelens", "projects")
	}
	dir, err := expandHome(dir)
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func resolveProjectDirByName(name string) (string, error) {
	if name == "" {
		return "", errors.New("project name is required")
	}
	root, err := defaultProjectsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "project description")
	initCmd.Flags().StringSliceVar(&initData, "data", nil, "score sheets to add to the new project")
}
