package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/scorelens-cli/internal/report"
	"github.com/KaramelBytes/scorelens-cli/internal/stats"
	"github.com/spf13/cobra"
)

var (
	corrPair []string
	corrTop  int
)

type pairResult struct {
	A string  `json:"a"`
	B string  `json:"b"`
	N int     `json:"n"`
	R float64 `json:"r"`
}

var corrCmd = &cobra.Command{
	Use:   "corr <file>",
	Short: "Pearson correlation matrix of all subjects, or one pair with --pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		if len(corrPair) > 0 {
			if len(corrPair) != 2 {
				return fmt.Errorf("--pair takes exactly two subjects, e.g. --pair Math,Science")
			}
			a, b := strings.TrimSpace(corrPair[0]), strings.TrimSpace(corrPair[1])
			for _, s := range []string{a, b} {
				if err := requireSubject(ds, s); err != nil {
					return err
				}
			}
			res := pairResult{A: a, B: b, N: stats.Pair(ds, a, b).Len(), R: stats.Correlation(ds, a, b)}
			text := fmt.Sprintf("r(%s, %s) = %.3f over %d students", a, b, res.R, res.N)
			if res.N < stats.MinPairs {
				text += fmt.Sprintf("\n⚠ fewer than %d paired scores; coefficient reported as 0", stats.MinPairs)
			}
			return emit(cmd, res, text)
		}

		m := stats.CorrelationMatrix(ds)
		if asJSON {
			return printJSON(cmd.OutOrStdout(), m)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, report.RenderMatrix(m))
		if pairs := stats.TopPairs(m, corrTop); len(pairs) > 0 {
			fmt.Fprintln(out, "Strongest pairs:")
			for _, p := range pairs {
				fmt.Fprintf(out, "  %s ~ %s: %.3f\n", p.A, p.B, p.R)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(corrCmd)
	corrCmd.Flags().StringSliceVar(&corrPair, "pair", nil, "two subjects to correlate, e.g. Math,Science")
	corrCmd.Flags().IntVar(&corrTop, "top", 5, "strongest pairs to list under the matrix (0 = all)")
}
