package cmd

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/scorelens-cli/internal/project"
	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	_ "modernc.org/sqlite"
)

const marks = "Unique ID,Name,Seat Number,Math,Science,English,SUPW\n" +
	"101,Asha,S1,90,80,75,A\n" +
	"102,Ben,S2,50,55,40,B\n" +
	"103,Chen,S3,70,,65,A\n" +
	"104,Dev,S4,55,60,,B\n"

// resetFlags restores every flag to its default so state does not leak
// between invocations of the shared root command.
func resetFlags(c *cobra.Command) {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	reset(c.Flags())
	reset(c.PersistentFlags())
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns its stdout.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolatedHome points HOME at a temp dir and writes the marks sheet into it.
func isolatedHome(t *testing.T) (home, sheet string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	sheet = filepath.Join(home, "marks.csv")
	if err := os.WriteFile(sheet, []byte(marks), 0o644); err != nil {
		t.Fatalf("write sheet: %v", err)
	}
	return home, sheet
}

func TestCLI_Init_Add_Report(t *testing.T) {
	_, sheet := isolatedHome(t)

	runCmd(t, "init", "cohort", "-d", "integration test")
	out := runCmd(t, "add", "-p", "cohort", sheet, "--desc", "term 1")
	if !strings.Contains(out, "4 students") || !strings.Contains(out, "Math, Science, English") {
		t.Fatalf("unexpected add output: %q", out)
	}

	runCmd(t, "report", sheet, "-p", "cohort")
	runCmd(t, "report", sheet, "-p", "cohort", "--format", "json")
	runCmd(t, "report", sheet, "-p", "cohort")

	projDir, err := resolveProjectDirByName("cohort")
	if err != nil {
		t.Fatalf("resolve project: %v", err)
	}
	repDir := filepath.Join(projDir, "reports")
	for _, name := range []string{"marks.report.md", "marks.report.json", "marks__2.report.md"} {
		if _, err := os.Stat(filepath.Join(repDir, name)); err != nil {
			t.Fatalf("missing report %s: %v", name, err)
		}
	}
	body, err := os.ReadFile(filepath.Join(repDir, "marks.report.md"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	for _, section := range []string{"[OVERVIEW]", "[SUBJECTS]", "[TOP STUDENTS]", "[CORRELATIONS]", "[BY SUPW]"} {
		if !strings.Contains(string(body), section) {
			t.Fatalf("report lacks %s", section)
		}
	}

	p, err := project.LoadProject(projDir)
	if err != nil {
		t.Fatalf("load project: %v", err)
	}
	if len(p.Datasets) != 1 {
		t.Fatalf("reports of an added sheet must reuse its dataset, got %d datasets", len(p.Datasets))
	}
	latest, _ := p.Latest()
	for _, r := range p.Reports {
		if r.DatasetID != latest.ID {
			t.Fatalf("report %s not linked to dataset %s", r.Name, latest.ID)
		}
	}

	listing := runCmd(t, "list", "--reports", "-p", "cohort")
	if strings.Count(listing, "\n") != 3 {
		t.Fatalf("want 3 reports listed, got %q", listing)
	}
	show := runCmd(t, "project", "show", "-p", "cohort")
	if !strings.Contains(show, "Datasets: 1, Reports: 3") || !strings.Contains(show, "Asha") {
		t.Fatalf("unexpected project show: %q", show)
	}
	runCmd(t, "project", "remove", "-p", "cohort", "marks.csv")
	if out := runCmd(t, "list", "--datasets", "-p", "cohort"); !strings.Contains(out, "(no datasets)") {
		t.Fatalf("dataset not removed: %q", out)
	}
}

func TestCLI_InitRefusesExisting(t *testing.T) {
	isolatedHome(t)
	runCmd(t, "init", "dup")
	if _, err := execCmd(t, "init", "dup"); err == nil {
		t.Fatalf("expected error re-initializing a project")
	}
}

func TestCLI_InitWithData(t *testing.T) {
	_, sheet := isolatedHome(t)
	out := runCmd(t, "init", "seeded", "--data", sheet)
	if !strings.Contains(out, "Dataset added: marks.csv (4 students)") {
		t.Fatalf("unexpected init output: %q", out)
	}
	p, err := openProject("seeded")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Datasets) != 1 {
		t.Fatalf("want 1 dataset, got %d", len(p.Datasets))
	}
	for _, bad := range []string{"..", "a/b"} {
		if _, err := execCmd(t, "init", bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestCLI_ProjectColumnLayout(t *testing.T) {
	home, _ := isolatedHome(t)
	alt := filepath.Join(home, "alt.csv")
	if err := os.WriteFile(alt, []byte("Roll,Student,Math,Art\nr1,Ann,80,70\nr2,Bo,60,90\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	runCmd(t, "init", "alt", "--name-col", "Student", "--id-col", "Roll")
	out := runCmd(t, "add", "-p", "alt", alt)
	if !strings.Contains(out, "2 students") || !strings.Contains(out, "Math, Art") {
		t.Fatalf("project layout not applied: %q", out)
	}
	runCmd(t, "project", "set-columns", "-p", "alt", "--subjects", "Math")
	runCmd(t, "add", "-p", "alt", alt)
	p, err := openProject("alt")
	if err != nil {
		t.Fatal(err)
	}
	latest, _ := p.Latest()
	if len(latest.Subjects) != 1 || latest.Subjects[0] != "Math" {
		t.Fatalf("subjects override not applied: %v", latest.Subjects)
	}
}

func TestCLI_AnalysisCommands(t *testing.T) {
	_, sheet := isolatedHome(t)

	if out := runCmd(t, "overview", sheet); !strings.Contains(out, "Asha") {
		t.Fatalf("overview lacks top performer: %q", out)
	}

	var top []stats.Ranked
	decode(t, runCmd(t, "rank", sheet, "--top", "2", "--json"), &top)
	if len(top) != 2 || top[0].Name != "Asha" || top[1].Name != "Chen" {
		t.Fatalf("unexpected ranking: %+v", top)
	}

	var pr pairResult
	decode(t, runCmd(t, "corr", sheet, "--pair", "Math,Science", "--json"), &pr)
	if pr.N != 3 || pr.R <= 0 || pr.R > 1 {
		t.Fatalf("unexpected pair result: %+v", pr)
	}

	var m stats.Matrix
	decode(t, runCmd(t, "corr", sheet, "--json"), &m)
	if len(m.Subjects) != 3 || m.Values[1][1] != 1 {
		t.Fatalf("unexpected matrix: %+v", m)
	}

	var fv report.FitView
	decode(t, runCmd(t, "fit", sheet, "Math", "Science", "--json"), &fv)
	if !fv.OK || fv.N != 3 || !fv.Trend {
		t.Fatalf("unexpected fit: %+v", fv)
	}

	var prof stats.Profile
	decode(t, runCmd(t, "student", sheet, "102", "--json"), &prof)
	if prof.Name != "Ben" || prof.Rank != 4 || prof.Of != 4 {
		t.Fatalf("unexpected profile: %+v", prof)
	}

	var groups []stats.Group
	decode(t, runCmd(t, "groups", sheet, "--json"), &groups)
	if len(groups) != 2 || groups[0].Key != "A" || groups[0].Means[0].Mean != 80 {
		t.Fatalf("unexpected groups: %+v", groups)
	}

	if out := runCmd(t, "subject", sheet, "Math", "--bands", "60-100,0-59"); !strings.Contains(out, "60-100") {
		t.Fatalf("subject view lacks custom band: %q", out)
	}
	if out := runCmd(t, "histogram", sheet, "--bins", "4"); !strings.Contains(out, "Composite distribution") {
		t.Fatalf("unexpected histogram output: %q", out)
	}
}

func TestCLI_UnknownSubjectsAndStudents(t *testing.T) {
	_, sheet := isolatedHome(t)
	_, err := execCmd(t, "fit", sheet, "Math", "Art")
	if err == nil || !strings.Contains(err.Error(), "Available subjects: Math, Science, English") {
		t.Fatalf("want available subjects in error, got %v", err)
	}
	if _, err := execCmd(t, "student", sheet, "999"); err == nil {
		t.Fatalf("expected unknown student error")
	}
	if _, err := execCmd(t, "corr", sheet, "--pair", "Math"); err == nil {
		t.Fatalf("expected --pair arity error")
	}
	if _, err := execCmd(t, "overview", filepath.Join(t.TempDir(), "notes.txt")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestCLI_ReportBatch_CollisionSafeNames(t *testing.T) {
	home, _ := isolatedHome(t)
	for _, d := range []string{"d1", "d2"} {
		dir := filepath.Join(home, d)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
		if err := os.WriteFile(filepath.Join(dir, "marks.csv"), []byte(marks), 0o644); err != nil {
			t.Fatalf("write %s: %v", d, err)
		}
	}
	runCmd(t, "init", "batchp", "-d", "batch project")
	out := runCmd(t, "report-batch", filepath.Join(home, "d*", "marks.csv"), "-p", "batchp")
	if !strings.Contains(out, "[1/2] Processing marks.csv...") || !strings.Contains(out, "[2/2]") {
		t.Fatalf("missing progress output: %q", out)
	}

	projDir, err := resolveProjectDirByName("batchp")
	if err != nil {
		t.Fatalf("resolve project: %v", err)
	}
	repDir := filepath.Join(projDir, "reports")
	for _, name := range []string{"marks.report.md", "marks__2.report.md"} {
		if _, err := os.Stat(filepath.Join(repDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	outDir := filepath.Join(home, "out")
	runCmd(t, "report-batch", filepath.Join(home, "d*", "marks.csv"), "--out-dir", outDir, "--format", "json", "--quiet")
	if _, err := os.Stat(filepath.Join(outDir, "marks__2.report.json")); err != nil {
		t.Fatalf("missing batch output: %v", err)
	}
	if _, err := execCmd(t, "report-batch", filepath.Join(home, "nothing*.csv")); err == nil {
		t.Fatalf("expected error when no inputs match")
	}
}

func TestCLI_SQLReport(t *testing.T) {
	home, _ := isolatedHome(t)
	dsn := filepath.Join(home, "scores.db")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`CREATE TABLE scores ("Unique ID" TEXT, "Name" TEXT, "Seat Number" TEXT, "Math" REAL, "Science" REAL, "SUPW" TEXT)`,
		`INSERT INTO scores VALUES ('1', 'Ana', 'S1', 88, 92, 'A'), ('2', 'Raj', 'S2', 61, NULL, 'B')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	db.Close()

	outFile := filepath.Join(home, "sql.json")
	runCmd(t, "sql", "--driver", "sqlite", "--dsn", dsn, "--query", "SELECT * FROM scores", "--format", "json", "-o", outFile)
	b, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var rep report.Report
	if err := json.Unmarshal(b, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Overview.Students != 2 || len(rep.Overview.Subjects) != 2 {
		t.Fatalf("unexpected overview: %+v", rep.Overview)
	}
	if rep.Subjects[1].Summary.Count != 1 {
		t.Fatalf("NULL score must be excluded, got %+v", rep.Subjects[1].Summary)
	}
	if _, err := execCmd(t, "sql", "--driver", "oracle", "--dsn", "x", "--query", "SELECT 1"); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	_, sheet := isolatedHome(t)
	runCmd(t, "config", "init")
	if _, err := execCmd(t, "config", "init"); err == nil {
		t.Fatalf("config init must refuse to overwrite")
	}
	runCmd(t, "config", "set", "top_k", "1")
	if out := runCmd(t, "config", "show"); !strings.Contains(out, "top_k: 1") {
		t.Fatalf("config show lacks top_k: %q", out)
	}
	var top []stats.Ranked
	decode(t, runCmd(t, "rank", sheet, "--json"), &top)
	if len(top) != 1 {
		t.Fatalf("rank must default to config top_k, got %d", len(top))
	}
	if _, err := execCmd(t, "config", "set", "bands", "100-0"); err == nil {
		t.Fatalf("expected invalid bands error")
	}
}

func decode(t *testing.T, out string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
}
