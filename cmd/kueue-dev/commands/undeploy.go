package commands

import (
	"github.com/spf13/cobra"

	"github.com/kueue-contrib/kueue-dev/cmd/kueue-dev/handlers"
)

// Undeploy returns the undeploy command group.
func Undeploy() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undeploy",
		Short: "Remove deployed components from the cluster",
	}

	cmd.AddCommand(undeployOperator())
	cmd.AddCommand(undeployUpstream())

	return cmd
}

func undeployOperator() *cobra.Command {
	var opts handlers.UndeployOptions

	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Remove the Kueue operator via OLM cleanup",
		Long: `Remove an existing Kueue operator installation.

Runs operator-sdk cleanup, waits for the operator deployment to disappear,
and deletes the operator namespace. A cluster without the operator is left
untouched.

Example:
  kueue-dev undeploy operator --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.UndeployOperator(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.SourceRoot, "source", "", "Path to the kueue-operator checkout")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Remove without asking")

	return cmd
}

func undeployUpstream() *cobra.Command {
	var opts handlers.UndeployOptions

	cmd := &cobra.Command{
		Use:   "upstream",
		Short: "Remove the upstream Kueue helm release",
		Example: `  kueue-dev undeploy upstream
  kueue-dev undeploy upstream --release kueue --namespace kueue-system`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.UndeployUpstreamHelm(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.SourceRoot, "source", "", "Path to the kueue-operator checkout")
	cmd.Flags().StringVar(&opts.Release, "release", "kueue", "Helm release name")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "kueue-system", "Release namespace")

	return cmd
}
