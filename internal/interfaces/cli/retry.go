package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/erp/storesync/internal/domain/integration"
)

// NewRetryCommand creates the retry command.
func NewRetryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry <customer|order> <local-id>",
		Short: "Push one record to its store again",
		Long: `Retry the synchronization of a single local customer or order. The
record keeps its idempotency key, so a create that reached the store before
is adopted instead of duplicated.

Example:
  syncctl retry order 3f4e... --org 0c1d...`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return retryRecord(cmd.Context(), rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func retryRecord(ctx context.Context, opts *RootOptions, rawType, rawID string, cmd *cobra.Command) error {
	if err := opts.requireOrganization(); err != nil {
		return err
	}
	entityType, err := integration.ParseEntityType(rawType)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid entity type", err)
	}
	localID, err := uuid.Parse(rawID)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid record id", err)
	}

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()
	result, err := opts.client(cmd).RetrySync(ctx, entityType, localID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to retry sync", err)
	}
	if err := NewPrinter(opts.Format, cmd.OutOrStdout()).SyncResult(entityType, localID, result); err != nil {
		return WrapExitError(ExitFailure, "failed to print result", err)
	}
	if result.Status == integration.SyncStatusFailed {
		return NewExitError(ExitFailure, fmt.Sprintf("%s %s is still failing", entityType, localID))
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}
