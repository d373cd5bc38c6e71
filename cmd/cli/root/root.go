package root

import (
	"github.com/crucial707/itam/cmd/cli/assets"
	"github.com/crucial707/itam/cmd/cli/assignments"
	"github.com/crucial707/itam/cmd/cli/auth"
	"github.com/crucial707/itam/cmd/cli/routes"
	"github.com/spf13/cobra"
)

// New builds the itam command tree.
func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "itam",
		Short:         "IT Asset Management CLI",
		Long:          "Command line interface for the IT Asset Management API gateway. Set ITAM_API_URL to point at it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "print raw JSON instead of tables")

	rootCmd.AddCommand(auth.Commands()...)
	rootCmd.AddCommand(
		assets.Command(),
		assignments.Command(),
		assignments.ReconcileCommand(),
		routes.Command(),
	)
	return rootCmd
}
