package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/client"
)

// NewPeriodsCmd returns the periods command group.
func NewPeriodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "Quarterly snapshots, trends and migrations",
		Long: `Commit the register as an immutable quarterly snapshot and analyse how
risks moved between committed quarters. Periods are written as YYYY-QN,
for example 2025-Q1.`,
	}
	cmd.AddCommand(
		newPeriodsCommitCmd(),
		newPeriodsListCmd(),
		newPeriodsSnapshotsCmd(),
		newPeriodsTrendsCmd(),
		newPeriodsMigrationsCmd(),
		newPeriodsCompareCmd(),
		newPeriodsArchiveCmd(),
	)
	return cmd
}

func newPeriodsCommitCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "commit <period>",
		Short: "Freeze the current register as a period snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period := strings.ToUpper(args[0])
			if err := validatePeriod(period); err != nil {
				return err
			}
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			commit, err := c.Periods().Commit(ctx, period, notes)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, commit)
			}
			PrintSuccess(cmd, fmt.Sprintf("committed %s with %d risks", commit.Period, commit.RisksCount))
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "commit notes")
	return cmd
}

func newPeriodsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List committed periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			commits, err := c.Periods().List(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, commitTable(commits))
		},
	}
}

func newPeriodsSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots <period>",
		Short: "Show the frozen risks of a committed period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period := strings.ToUpper(args[0])
			if err := validatePeriod(period); err != nil {
				return err
			}
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			snaps, err := c.Periods().Snapshots(ctx, period)
			if err != nil {
				return err
			}
			return PrintResult(cmd, snapshotTable(snaps))
		},
	}
}

func newPeriodsTrendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Show per-period totals and average scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			points, err := c.Periods().Trends(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, trendTable(points))
		},
	}
}

func newPeriodsMigrationsCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "migrations",
		Short: "List risks whose level changed between two periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to = strings.ToUpper(from), strings.ToUpper(to)
			if err := validatePair(from, to); err != nil {
				return err
			}
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			rep, err := c.Periods().Migrations(ctx, from, to)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, rep)
			}
			if err := PrintResult(cmd, migrationTable(rep.Migrations)); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("%d escalated, %d de-escalated, %d unchanged",
				len(rep.Escalated), len(rep.DeEscalated), rep.Unchanged))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "earlier period")
	cmd.Flags().StringVar(&to, "to", "", "later period")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newPeriodsCompareCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Diff two committed periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to = strings.ToUpper(from), strings.ToUpper(to)
			if err := validatePair(from, to); err != nil {
				return err
			}
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			cmp, err := c.Periods().Compare(ctx, from, to)
			if err != nil {
				return err
			}
			return PrintResult(cmd, comparisonTable{cmp})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "earlier period")
	cmd.Flags().StringVar(&to, "to", "", "later period")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newPeriodsArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive-url <period>",
		Short: "Print a download link for a period's archived snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period := strings.ToUpper(args[0])
			if err := validatePeriod(period); err != nil {
				return err
			}
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			url, err := c.Periods().ArchiveURL(ctx, period)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

// validatePeriod checks the YYYY-QN form before a round trip.
func validatePeriod(p string) error {
	year, q, ok := strings.Cut(p, "-Q")
	if ok {
		y, yerr := strconv.Atoi(year)
		n, qerr := strconv.Atoi(q)
		if yerr == nil && qerr == nil && y >= 1900 && y <= 9999 && n >= 1 && n <= 4 {
			return nil
		}
	}
	return fmt.Errorf("invalid period %q (want YYYY-QN, e.g. 2025-Q1)", p)
}

func validatePair(from, to string) error {
	if err := validatePeriod(from); err != nil {
		return err
	}
	return validatePeriod(to)
}

type commitTable []*client.Commit

func (t commitTable) TableHeaders() []string {
	return []string{"PERIOD", "RISKS", "COMMITTED AT", "BY", "FORMULA", "NOTES"}
}

func (t commitTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, c := range t {
		rows = append(rows, []string{
			c.Period.String(),
			strconv.Itoa(c.RisksCount),
			c.CommittedAt.Format(time.RFC3339),
			c.CommittedBy,
			c.FormulaVersion,
			c.Notes,
		})
	}
	return rows
}

type snapshotTable []*client.Snapshot

func (t snapshotTable) TableHeaders() []string {
	return []string{"CODE", "TITLE", "STATUS", "INHERENT", "RESIDUAL"}
}

func (t snapshotTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, s := range t {
		rows = append(rows, []string{
			s.RiskCode,
			s.Title,
			s.Status,
			strconv.Itoa(s.InherentScore),
			strconv.Itoa(s.ResidualScore),
		})
	}
	return rows
}

type trendTable []client.TrendPoint

func (t trendTable) TableHeaders() []string {
	return []string{"PERIOD", "TOTAL", "EXTREME", "HIGH", "MEDIUM", "LOW", "AVG INHERENT", "AVG RESIDUAL"}
}

func (t trendTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		rows = append(rows, []string{
			p.Label,
			strconv.Itoa(p.Total),
			strconv.Itoa(p.ByLevel["EXTREME"]),
			strconv.Itoa(p.ByLevel["HIGH"]),
			strconv.Itoa(p.ByLevel["MEDIUM"]),
			strconv.Itoa(p.ByLevel["LOW"]),
			strconv.FormatFloat(p.AvgInherentScore, 'f', 2, 64),
			strconv.FormatFloat(p.AvgResidualScore, 'f', 2, 64),
		})
	}
	return rows
}

type migrationTable []client.Migration

func (t migrationTable) TableHeaders() []string {
	return []string{"CODE", "TITLE", "FROM", "TO", "DIRECTION"}
}

func (t migrationTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, m := range t {
		rows = append(rows, []string{
			m.RiskCode,
			m.Title,
			fmt.Sprintf("%s (%d)", m.FromLevel, m.FromScore),
			fmt.Sprintf("%s (%d)", m.ToLevel, m.ToScore),
			m.Direction,
		})
	}
	return rows
}

type comparisonTable struct {
	*client.Comparison
}

func (t comparisonTable) TableHeaders() []string { return []string{"CODE", "CHANGE", "DETAIL"} }

func (t comparisonTable) TableRows() [][]string {
	var rows [][]string
	for _, s := range t.NewRisks {
		rows = append(rows, []string{s.RiskCode, "new", s.Title})
	}
	for _, s := range t.ClosedRisks {
		rows = append(rows, []string{s.RiskCode, "removed", s.Title})
	}
	for _, d := range t.Changed {
		parts := make([]string, 0, len(d.Fields))
		for _, f := range d.Fields {
			parts = append(parts, fmt.Sprintf("%s: %v -> %v", f.Field, f.From, f.To))
		}
		rows = append(rows, []string{d.RiskCode, "changed", strings.Join(parts, "; ")})
	}
	return rows
}

//Personal.AI order the ending
