package commands

import (
	"github.com/spf13/cobra"

	"github.com/kueue-contrib/kueue-dev/cmd/kueue-dev/handlers"
)

// Cleanup returns the cleanup command.
func Cleanup() *cobra.Command {
	var opts handlers.CleanupOptions

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove Kueue test resources from the cluster",
		Long: `Remove cluster-scoped Kueue resources and test namespaces left behind by
e2e runs.

Finalizers are stripped before deletion so resources whose controller is
already gone do not hang. Every failure is reported but none stops the
sweep. Priority classes with the system- prefix and namespaces not created
by the suites are left alone.

Example:
  kueue-dev cleanup --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Cleanup(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.SourceRoot, "source", "", "Path to the kueue-operator checkout")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Clean up without asking")

	return cmd
}
