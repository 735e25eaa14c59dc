package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/client"
)

// NewAlertsCmd returns the alerts command group.
func NewAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Intelligence alerts",
		Long: `Review classifier alerts and move them through their lifecycle.

  Pending -> Accepted -> Applied, Pending -> Rejected, Applied -> Accepted (undo)

Applying an alert shifts the linked risk's likelihood and impact and writes a
hash-chained treatment log entry. Undo recomputes the risk from its baseline
and the strongest change among the alerts still applied.`,
	}
	cmd.AddCommand(
		newAlertsListCmd(),
		newAlertsGetCmd(),
		newAlertTransitionCmd("accept", "Accept a pending alert"),
		newAlertTransitionCmd("reject", "Reject a pending alert"),
		newAlertTransitionCmd("apply", "Apply an accepted alert to its risk"),
		newAlertTransitionCmd("undo", "Reverse an applied alert"),
		newAlertsBatchApplyCmd(),
		newAlertsBatchRejectCmd(),
		newAlertsScanCmd(),
	)
	return cmd
}

func newAlertsListCmd() *cobra.Command {
	var q client.AlertQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.MinConfidence < 0 || q.MinConfidence > 100 {
				return fmt.Errorf("min-confidence must be between 0 and 100, got %d", q.MinConfidence)
			}
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			out, err := c.Alerts().List(ctx, q)
			if err != nil {
				return err
			}
			return PrintResult(cmd, alertTable(out.Items))
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&q.Statuses, "status", nil, "filter by status (Pending, Accepted, Rejected, Applied)")
	f.StringVar(&q.RiskCode, "risk-code", "", "filter by risk code")
	f.IntVar(&q.MinConfidence, "min-confidence", 0, "minimum confidence score (0-100)")
	f.IntVar(&q.Page, "page", 1, "page number")
	f.IntVar(&q.PageSize, "page-size", 50, "page size")
	return cmd
}

func newAlertsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <alert-id>",
		Short: "Show one alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			a, err := c.Alerts().Get(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, alertTable{a})
		},
	}
}

func newAlertTransitionCmd(step, short string) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   step + " <alert-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			alerts := c.Alerts()
			var res *client.TransitionResult
			switch step {
			case "accept":
				res, err = alerts.Accept(ctx, args[0], notes)
			case "reject":
				res, err = alerts.Reject(ctx, args[0], notes)
			case "apply":
				res, err = alerts.Apply(ctx, args[0], notes)
			default:
				res, err = alerts.Undo(ctx, args[0], notes)
			}
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, res)
			}
			if err := PrintResult(cmd, alertTable{res.Alert}); err != nil {
				return err
			}
			if res.Risk != nil {
				return PrintResult(cmd, riskTable{res.Risk})
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "reviewer notes recorded in the treatment log")
	return cmd
}

func newAlertsBatchApplyCmd() *cobra.Command {
	var notes []string

	cmd := &cobra.Command{
		Use:   "batch-apply <alert-id>...",
		Short: "Apply several accepted alerts; each succeeds or fails on its own",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byID, err := parseNotes(notes)
			if err != nil {
				return err
			}
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			res, err := c.Alerts().BatchApply(ctx, args, byID)
			return printBatch(cmd, res, err)
		},
	}
	cmd.Flags().StringArrayVar(&notes, "note", nil, "per-alert note as <alert-id>=<text>, repeatable")
	return cmd
}

func newAlertsBatchRejectCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "batch-reject <alert-id>...",
		Short: "Reject several pending alerts with one note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			res, err := c.Alerts().BatchReject(ctx, args, notes)
			return printBatch(cmd, res, err)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "note recorded for every alert")
	return cmd
}

func newAlertsScanCmd() *cobra.Command {
	var (
		ev        client.ExternalEvent
		published string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Submit an external event and classify it against open risks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if published == "" {
				ev.PublishedDate = time.Now().UTC()
			} else {
				t, err := time.Parse("2006-01-02", published)
				if err != nil {
					return fmt.Errorf("published must be YYYY-MM-DD: %w", err)
				}
				ev.PublishedDate = t
			}
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			res, err := c.Alerts().ScanEvent(ctx, &ev)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, res)
			}
			PrintSuccess(cmd, fmt.Sprintf("event %s: %d risks scanned, %d alerts created, %d below threshold, %d already alerted",
				res.EventID, res.RisksScanned, res.AlertsCreated, res.BelowCutoff, res.Skipped))
			if len(res.Alerts) > 0 {
				return PrintResult(cmd, alertTable(res.Alerts))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&ev.Source, "source", "", "feed or publisher name")
	f.StringVar(&ev.ExternalID, "external-id", "", "id of the item at its source")
	f.StringVar(&ev.EventType, "type", "news", "event type (news, regulatory, market, ...)")
	f.StringVar(&ev.Title, "title", "", "headline")
	f.StringVar(&ev.Summary, "summary", "", "summary text")
	f.StringVar(&ev.URL, "url", "", "link to the item")
	f.StringVar(&published, "published", "", "publication date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func parseNotes(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		id, text, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid --note %q (want <alert-id>=<text>)", p)
		}
		out[strings.TrimSpace(id)] = text
	}
	return out, nil
}

type alertTable []*client.Alert

func (t alertTable) TableHeaders() []string {
	return []string{"ID", "RISK", "STATUS", "CONFIDENCE", "CHANGE", "REVIEWED BY"}
}

func (t alertTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, a := range t {
		rows = append(rows, []string{
			a.ID,
			a.RiskCode,
			a.Status,
			strconv.Itoa(a.ConfidenceScore),
			fmt.Sprintf("L%+d I%+d", a.SuggestedLikelihoodChange, a.ImpactChange),
			a.ReviewedBy,
		})
	}
	return rows
}

//Personal.AI order the ending
