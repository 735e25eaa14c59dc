package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/client"
)

// NewRisksCmd returns the risks command group.
func NewRisksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risks",
		Short: "Risk register",
		Long: `Inspect and maintain the risk register.

Inherent scores are likelihood x impact on the configured matrix. Residual
values are derived from the DIME ratings of each risk's active controls.`,
	}
	cmd.AddCommand(newRisksListCmd(), newRisksGetCmd(), newRisksCreateCmd(), newRisksRecalculateCmd())
	return cmd
}

func newRisksListCmd() *cobra.Command {
	var (
		statuses        []string
		category        string
		owner           string
		includeArchived bool
		page            int
		pageSize        int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List risks",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			out, err := c.Risks().List(ctx, client.RiskQuery{
				Statuses:        upperAll(statuses),
				Category:        category,
				Owner:           owner,
				IncludeArchived: includeArchived,
				Page:            page,
				PageSize:        pageSize,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, riskTable(out.Items))
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (OPEN, MONITORING, CLOSED, ARCHIVED)")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner")
	cmd.Flags().BoolVar(&includeArchived, "include-archived", false, "include archived risks")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "page size")
	return cmd
}

func newRisksGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <risk-code>",
		Short: "Show one risk by code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			r, err := c.Risks().GetByCode(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, riskTable{r})
		},
	}
	return cmd
}

func newRisksCreateCmd() *cobra.Command {
	req := &client.CreateRiskRequest{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a risk to the register",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Likelihood < 1 || req.Impact < 1 {
				return fmt.Errorf("likelihood and impact must be at least 1")
			}
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			r, err := c.Risks().Create(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, riskTable{r})
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.RiskCode, "code", "", "risk code, unique per organization")
	f.StringVar(&req.Title, "title", "", "title")
	f.StringVar(&req.Description, "description", "", "description")
	f.StringVar(&req.Category, "category", "", "category")
	f.StringVar(&req.Division, "division", "", "division")
	f.StringVar(&req.Department, "department", "", "department")
	f.StringVar(&req.Owner, "owner", "", "owner")
	f.IntVar(&req.Likelihood, "likelihood", 0, "inherent likelihood (1..matrix size)")
	f.IntVar(&req.Impact, "impact", 0, "inherent impact (1..matrix size)")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newRisksRecalculateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate",
		Short: "Re-derive every residual with the server's formula",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := requireClient(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			res, err := c.Risks().Recalculate(ctx)
			return printBatch(cmd, res, err)
		},
	}
}

type riskTable []*client.Risk

func (t riskTable) TableHeaders() []string {
	return []string{"CODE", "TITLE", "CATEGORY", "STATUS", "INHERENT", "RESIDUAL", "OWNER"}
}

func (t riskTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.RiskCode,
			r.Title,
			r.Category,
			r.Status,
			fmt.Sprintf("%dx%d=%d", r.LikelihoodInherent, r.ImpactInherent, r.InherentScore),
			fmt.Sprintf("%dx%d=%d", r.ResidualLikelihood, r.ResidualImpact, r.ResidualScore),
			r.Owner,
		})
	}
	return rows
}

type batchTable struct {
	*client.BatchResult
}

func (t batchTable) TableHeaders() []string { return []string{"ITEM", "ERROR"} }

func (t batchTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t.Errors))
	for _, e := range t.Errors {
		rows = append(rows, []string{e.ItemID, e.Message})
	}
	return rows
}

// printBatch prints a batch outcome. A batch where every item failed is
// printed and then reported as an error.
func printBatch(cmd *cobra.Command, res *client.BatchResult, err error) error {
	if res == nil || (err != nil && res.SuccessCount == 0 && res.ErrorCount == 0) {
		return err
	}
	if isJSON(cmd) {
		if perr := printJSON(cmd, res); perr != nil {
			return perr
		}
		return err
	}
	if len(res.Errors) > 0 {
		if perr := PrintResult(cmd, batchTable{res}); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}
	PrintSuccess(cmd, strconv.Itoa(res.SuccessCount)+" succeeded, "+strconv.Itoa(res.ErrorCount)+" failed")
	return nil
}

func isJSON(cmd *cobra.Command) bool {
	cliCtx, err := GetCLIContext(cmd)
	return err == nil && strings.EqualFold(cliCtx.OutputFormat, "json")
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}

//Personal.AI order the ending
