package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// JobsOptions holds flags for the jobs command.
type JobsOptions struct {
	*RootOptions
	Store string
}

// NewJobsCommand creates the jobs command.
func NewJobsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JobsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "jobs [job-id]",
		Short: "Show sync jobs",
		Long: `List the sync jobs the server remembers, or show one job with its record errors.

Example:
  syncctl jobs --store 5b6f...
  syncctl jobs 9e2a... -o yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return showJob(cmd.Context(), opts, args[0], cmd)
			}
			return listJobs(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "only jobs of this store")

	return cmd
}

func showJob(ctx context.Context, opts *JobsOptions, rawJob string, cmd *cobra.Command) error {
	jobID, err := uuid.Parse(rawJob)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid job id", err)
	}

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()
	summary, err := opts.client(cmd).GetJob(ctx, jobID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to get job", err)
	}
	return NewPrinter(opts.Format, cmd.OutOrStdout()).Job(summary)
}

func listJobs(ctx context.Context, opts *JobsOptions, cmd *cobra.Command) error {
	var storeID uuid.UUID
	if opts.Store != "" {
		id, err := uuid.Parse(opts.Store)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid store id", err)
		}
		storeID = id
	}

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()
	jobs, err := opts.client(cmd).ListJobs(ctx, storeID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list jobs", err)
	}
	return NewPrinter(opts.Format, cmd.OutOrStdout()).Jobs(jobs)
}
