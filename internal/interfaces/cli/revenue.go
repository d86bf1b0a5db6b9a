package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// RevenueOptions holds flags for the revenue command.
type RevenueOptions struct {
	*RootOptions
	Query RevenueQuery
}

// NewRevenueCommand creates the revenue command.
func NewRevenueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RevenueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "revenue",
		Short: "Show organization revenue in one currency",
		Long: `Sum the organization's order revenue converted to one currency. The
report is marked degraded when a source currency had no exchange rate and was
added unconverted.

Example:
  syncctl revenue --org 0c1d... --currency EUR --from 2026-01-01 --to 2026-03-31`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRevenue(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query.Currency, "currency", "", "target ISO 4217 currency (default: the organization's)")
	cmd.Flags().StringVar(&opts.Query.From, "from", "", "period start, RFC 3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.Query.To, "to", "", "period end, RFC 3339 or YYYY-MM-DD (whole day)")

	return cmd
}

func showRevenue(ctx context.Context, opts *RevenueOptions, cmd *cobra.Command) error {
	if err := opts.requireOrganization(); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()
	report, err := opts.client(cmd).Revenue(ctx, opts.Query)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to get revenue", err)
	}
	return NewPrinter(opts.Format, cmd.OutOrStdout()).Revenue(report)
}
