package commands

import (
	"github.com/spf13/cobra"

	"github.com/kueue-contrib/kueue-dev/cmd/kueue-dev/handlers"
)

// Test returns the test command group.
func Test() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the operator e2e test suite",
	}
	cmd.AddCommand(testRun())
	cmd.AddCommand(testKind())
	return cmd
}

func addTestFlags(cmd *cobra.Command, opts *handlers.TestOptions) {
	cmd.Flags().StringVar(&opts.SourceRoot, "source", "", "Path to the kueue-operator checkout")
	cmd.Flags().StringVar(&opts.Focus, "focus", "", "Only run specs matching this regex")
	cmd.Flags().StringVar(&opts.LabelFilter, "label-filter", "", "Ginkgo label filter (defaults to !disruptive)")
	cmd.Flags().StringSliceVar(&opts.SkipPatterns, "skip", nil, "Skip specs matching these patterns")
}

func testRun() *cobra.Command {
	var opts handlers.TestOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the e2e suite against the current cluster",
		Long: `Run the ginkgo e2e suite from the operator checkout against the cluster
whose kubeconfig was exported at cluster creation.

With --retry a failed run pauses so the cluster can be inspected, then
reruns until the suite passes or the retry is declined.

Example:
  kueue-dev test run --focus "Kueue" --retry`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.RunTests(cmd.Context(), opts)
		},
	}

	addTestFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.Retry, "retry", false, "Rerun the suite after failures until it passes")

	return cmd
}

func testKind() *cobra.Command {
	var opts handlers.TestKindOptions

	cmd := &cobra.Command{
		Use:   "kind",
		Short: "Provision a kind cluster, deploy, and run the suite",
		Long: `Create a fresh kind cluster, deploy the operator and its dependencies,
and run the e2e suite with retry on failure.

Example:
  kueue-dev test kind --cni calico`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.RunTestsOnKind(cmd.Context(), opts)
		},
	}

	addTestFlags(cmd, &opts.TestOptions)
	cmd.Flags().StringVar(&opts.ClusterName, "name", "", "Cluster name (defaults to settings)")
	cmd.Flags().StringVar(&opts.CNI, "cni", "", "CNI provider: calico or default")
	cmd.Flags().StringVar(&opts.ImagesFile, "images-file", "", "Images file, relative paths resolve against the source root")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Recreate an existing cluster without asking")
	cmd.Flags().BoolVar(&opts.UseBundle, "bundle", false, "Deploy through OLM instead of the manifests")

	return cmd
}
