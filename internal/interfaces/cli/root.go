// Package cli implements syncctl, the operator command line for the
// storesync API.
package cli

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

// Environment variables that seed the global flags
const (
	EnvServer       = "STORESYNC_SERVER"
	EnvOrganization = "STORESYNC_ORGANIZATION_ID"
)

const defaultServer = "http://localhost:8080"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server       string
	Organization string
	Format       string // "table" | "yaml"
	Timeout      time.Duration
	Verbose      bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatTable, FormatYAML}

// NewRootCommand creates the root command for syncctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "syncctl",
		Short: "Operate store synchronization",
		Long: `syncctl drives the storesync API: it starts store sync jobs, follows
their progress, retries single records and reads revenue reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Timeout <= 0 {
				return NewExitError(ExitCommandError, "timeout must be positive")
			}
			return nil
		},
	}

	server := os.Getenv(EnvServer)
	if server == "" {
		server = defaultServer
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", server, "storesync API base URL (env "+EnvServer+")")
	cmd.PersistentFlags().StringVar(&opts.Organization, "org", os.Getenv(EnvOrganization), "organization id sent as X-Tenant-ID (env "+EnvOrganization+")")
	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "o", FormatTable, "output format (table|yaml)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "timeout of each API call")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print request details to stderr")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewJobsCommand(opts))
	cmd.AddCommand(NewRetryCommand(opts))
	cmd.AddCommand(NewRevenueCommand(opts))

	return cmd
}

// client builds the API client for one command invocation
func (o *RootOptions) client(cmd *cobra.Command) *Client {
	c := NewClient(o.Server, WithOrganization(o.Organization))
	if o.Verbose {
		c.debug = cmd.ErrOrStderr()
	}
	return c
}

// requireOrganization fails when no organization was given
func (o *RootOptions) requireOrganization() error {
	if o.Organization == "" {
		return NewExitError(ExitCommandError, "an organization id is required: pass --org or set "+EnvOrganization)
	}
	return nil
}
