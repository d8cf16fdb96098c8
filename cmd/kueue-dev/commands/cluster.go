package commands

import (
	"github.com/spf13/cobra"

	"github.com/kueue-contrib/kueue-dev/cmd/kueue-dev/handlers"
)

// Cluster returns the cluster command group for kind lifecycle management.
func Cluster() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Manage local kind test clusters",
	}
	cmd.AddCommand(clusterCreate())
	cmd.AddCommand(clusterDelete())
	cmd.AddCommand(clusterList())
	return cmd
}

func clusterCreate() *cobra.Command {
	var opts handlers.ClusterOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a kind cluster for operator development",
		Long: `Create a multi-node kind cluster and export its kubeconfig next to the
operator source as kube.kubeconfig.

With --cni=calico the default CNI is disabled and Calico is installed so
network policy tests can run. Worker nodes are labeled with instance types
for the capacity scheduling tests.

Example:
  kueue-dev cluster create --name kueue-test --cni calico`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CreateCluster(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Cluster name (defaults to settings)")
	cmd.Flags().StringVar(&opts.CNI, "cni", "", "CNI provider: calico or default")
	cmd.Flags().StringVar(&opts.SourceRoot, "source", "", "Path to the kueue-operator checkout")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Recreate an existing cluster without asking")

	return cmd
}

func clusterDelete() *cobra.Command {
	var opts handlers.ClusterOptions

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a kind cluster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.DeleteCluster(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Cluster name (defaults to settings)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Delete without asking")

	return cmd
}

func clusterList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List kind clusters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ListClusters(cmd.Context())
		},
	}
}
