package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/client"
)

// NewTreatmentCmd returns the treatment command group.
func NewTreatmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treatment",
		Short: "Hash-chained treatment log",
	}
	cmd.AddCommand(newTreatmentLogCmd(), newTreatmentVerifyCmd(), newTreatmentArchiveCmd())
	return cmd
}

func newTreatmentLogCmd() *cobra.Command {
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "log <risk-code>",
		Short: "Show a risk's treatment entries in chain order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			entries, err := c.Treatment().Log(ctx, args[0], includeArchived)
			if err != nil {
				return err
			}
			return PrintResult(cmd, entryTable(entries))
		},
	}
	cmd.Flags().BoolVar(&includeArchived, "include-archived", false, "include archived entries")
	return cmd
}

// newTreatmentVerifyCmd exits non-zero on a broken chain so it can gate
// audit jobs.
func newTreatmentVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <risk-code>",
		Short: "Re-hash a risk's treatment chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			rep, err := c.Treatment().Verify(ctx, args[0])
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				if err := printJSON(cmd, rep); err != nil {
					return err
				}
			} else if rep.Valid {
				PrintSuccess(cmd, fmt.Sprintf("%s: %d entries, chain intact", rep.RiskCode, rep.Entries))
			}
			if !rep.Valid {
				return fmt.Errorf("%s: chain broken at entry %s: %s", rep.RiskCode, rep.BrokenAt, rep.Reason)
			}
			return nil
		},
	}
}

func newTreatmentArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <entry-id>...",
		Short: "Archive treatment entries; archived entries still verify",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if len(args) == 1 {
				if err := c.Treatment().Archive(ctx, args[0]); err != nil {
					return err
				}
				PrintSuccess(cmd, "archived "+args[0])
				return nil
			}
			res, err := c.Treatment().BatchArchive(ctx, args)
			return printBatch(cmd, res, err)
		},
	}
}

type entryTable []*client.TreatmentEntry

func (t entryTable) TableHeaders() []string {
	return []string{"SEQ", "ACTION", "ALERT", "LIKELIHOOD", "IMPACT", "ACTOR", "APPLIED AT", "HASH"}
}

func (t entryTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		action := e.Action
		if e.DeletedAt != nil {
			action += " (archived)"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Seq),
			action,
			e.AlertID,
			fmt.Sprintf("%d -> %d", e.PreviousLikelihood, e.NewLikelihood),
			fmt.Sprintf("%d -> %d", e.PreviousImpact, e.NewImpact),
			e.Actor,
			e.AppliedAt.Format(time.RFC3339),
			shortHash(e.EntryHash),
		})
	}
	return rows
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return strings.ToLower(h[:12])
}

//Personal.AI order the ending
