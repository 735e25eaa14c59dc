package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/client"
)

// NewHeatmapCmd returns the heatmap command.
func NewHeatmapCmd() *cobra.Command {
	var (
		view       string
		matrixSize int
		period     string
	)

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Render the likelihood x impact grid",
		Long: `Render the register, or a committed period, as a likelihood x impact grid.
Each cell shows the number of risks that fall on it; rows run from the
highest likelihood down.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			view = strings.ToLower(view)
			if view != "inherent" && view != "residual" {
				return fmt.Errorf("invalid view %q (must be inherent or residual)", view)
			}
			if matrixSize < 0 || matrixSize > 10 {
				return fmt.Errorf("matrix-size must be between 1 and 10, got %d", matrixSize)
			}
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			var grid *client.Heatmap
			if period == "" {
				grid, err = c.Periods().Heatmap(ctx, view, matrixSize)
			} else {
				period = strings.ToUpper(period)
				if err := validatePeriod(period); err != nil {
					return err
				}
				grid, err = c.Periods().HeatmapForPeriod(ctx, period, view, matrixSize)
			}
			if err != nil {
				return err
			}
			return PrintResult(cmd, heatmapTable{grid})
		},
	}

	cmd.Flags().StringVar(&view, "view", "residual", "score to plot (inherent, residual)")
	cmd.Flags().IntVar(&matrixSize, "matrix-size", 0, "grid size (default: server setting)")
	cmd.Flags().StringVar(&period, "period", "", "committed period to plot instead of the live register")
	return cmd
}

type heatmapTable struct {
	*client.Heatmap
}

func (t heatmapTable) TableHeaders() []string {
	h := []string{"L \\ I"}
	for i := 1; i <= t.MatrixSize; i++ {
		h = append(h, strconv.Itoa(i))
	}
	return h
}

func (t heatmapTable) TableRows() [][]string {
	counts := make(map[[2]int]int, len(t.Cells))
	for _, c := range t.Cells {
		counts[[2]int{c.Likelihood, c.Impact}] = c.Count
	}
	rows := make([][]string, 0, t.MatrixSize)
	for l := t.MatrixSize; l >= 1; l-- {
		row := []string{strconv.Itoa(l)}
		for i := 1; i <= t.MatrixSize; i++ {
			cell := "."
			if n := counts[[2]int{l, i}]; n > 0 {
				cell = strconv.Itoa(n)
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return rows
}

//Personal.AI order the ending
