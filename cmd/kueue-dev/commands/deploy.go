package commands

import (
	"github.com/spf13/cobra"

	"github.com/kueue-contrib/kueue-dev/cmd/kueue-dev/handlers"
	"github.com/kueue-contrib/kueue-dev/internal/install"
)

// Deploy returns the deploy command group.
func Deploy() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the operator and its dependencies",
	}
	cmd.AddCommand(deployKind())
	cmd.AddCommand(deployKindFull())
	cmd.AddCommand(deployBundle())
	cmd.AddCommand(deployOpenShift())
	cmd.AddCommand(deployUpstream())
	return cmd
}

func addDeployFlags(cmd *cobra.Command, opts *handlers.DeployOptions) {
	cmd.Flags().StringVar(&opts.ClusterName, "name", "", "Cluster name (defaults to settings)")
	cmd.Flags().StringVar(&opts.ImagesFile, "images-file", "", "Images file, relative paths resolve against the source root")
	cmd.Flags().StringVar(&opts.SourceRoot, "source", "", "Path to the kueue-operator checkout")
	cmd.Flags().BoolVar(&opts.SkipKueueCR, "skip-kueue-cr", false, "Install the operator without creating a Kueue resource")
	cmd.Flags().StringSliceVar(&opts.Frameworks, "kueue-frameworks", nil, "Frameworks for the Kueue resource (defaults to settings)")
	cmd.Flags().StringVar(&opts.Namespace, "kueue-namespace", "", "Namespace for the Kueue resource (defaults to settings)")
}

func deployKind() *cobra.Command {
	var opts handlers.DeployOptions

	cmd := &cobra.Command{
		Use:   "kind",
		Short: "Deploy onto an existing kind cluster",
		Long: `Deploy the operator and its dependencies onto an existing kind cluster.

Images are loaded into the cluster in the background while cert-manager,
JobSet, LeaderWorkerSet, AppWrapper, and the Training Operator install in
parallel. Every installer runs to completion even if another fails, so one
run reports everything that is broken. The operator and the Kueue resource
go in only after all of that has succeeded.

Example:
  kueue-dev deploy kind --source ~/src/kueue-operator`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.DeployKind(cmd.Context(), opts)
		},
	}

	addDeployFlags(cmd, &opts)
	return cmd
}

func deployKindFull() *cobra.Command {
	var opts handlers.DeployFullOptions

	cmd := &cobra.Command{
		Use:   "kind-full",
		Short: "Create a kind cluster and deploy everything onto it",
		Long: `Create a kind cluster, install the CNI when Calico is selected, label the
worker nodes, and then deploy the operator and its dependencies.

Example:
  kueue-dev deploy kind-full --cni calico --source ~/src/kueue-operator`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.DeployKindFull(cmd.Context(), opts)
		},
	}

	addDeployFlags(cmd, &opts.DeployOptions)
	cmd.Flags().StringVar(&opts.CNI, "cni", "", "CNI provider: calico or default")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Recreate an existing cluster without asking")

	return cmd
}

func deployBundle() *cobra.Command {
	var opts handlers.DeployOptions

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Deploy the operator through OLM with operator-sdk",
		Long: `Deploy the operator onto an existing kind cluster through OLM.

OLM itself is installed if missing, then the bundle image is installed with
operator-sdk. A leftover catalog source from a previous run is cleaned up
and the install retried once; any other failure is terminal.

Example:
  kueue-dev deploy bundle --images-file related_images.developer.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.UseBundle = true
			return handlers.DeployKind(cmd.Context(), opts)
		},
	}

	addDeployFlags(cmd, &opts)
	return cmd
}

func deployOpenShift() *cobra.Command {
	var opts handlers.OpenShiftOptions

	cmd := &cobra.Command{
		Use:   "openshift",
		Short: "Deploy onto the OpenShift cluster oc is logged into",
		Long: `Deploy the operator onto an existing OpenShift cluster.

The cluster is taken from the current oc session; there is no kind cluster
and no image loading, images are pulled from their registries. cert-manager,
JobSet, and LeaderWorkerSet install in parallel before the operator.

Example:
  kueue-dev deploy openshift --images-file related_images.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.DeployOpenShift(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ImagesFile, "images-file", "", "Images file, relative paths resolve against the source root")
	cmd.Flags().StringVar(&opts.SourceRoot, "source", "", "Path to the kueue-operator checkout")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Continue without asking on permission warnings")

	return cmd
}

func deployUpstream() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upstream",
		Short: "Deploy upstream Kueue from a local checkout",
	}
	cmd.AddCommand(deployUpstreamKustomize())
	cmd.AddCommand(deployUpstreamHelm())
	return cmd
}

func deployUpstreamKustomize() *cobra.Command {
	var opts handlers.UpstreamOptions

	cmd := &cobra.Command{
		Use:   "kustomize",
		Short: "Deploy upstream Kueue with its kustomize overlays",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.DeployUpstreamKustomize(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.SourceRoot, "source", "", "Path to the upstream kueue checkout")
	cmd.Flags().StringVar(&opts.Overlay, "overlay", install.DefaultUpstreamOverlay, "Kustomize overlay under config/")
	cmd.Flags().StringVar(&opts.Image, "image", "", "Controller image override")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", install.DefaultUpstreamNamespace, "Namespace the controller deploys into")

	return cmd
}

func deployUpstreamHelm() *cobra.Command {
	var opts handlers.UpstreamOptions

	cmd := &cobra.Command{
		Use:   "helm",
		Short: "Deploy upstream Kueue from its bundled chart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.DeployUpstreamHelm(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.SourceRoot, "source", "", "Path to the upstream kueue checkout")
	cmd.Flags().StringVar(&opts.Image, "image", "", "Controller image override")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", install.DefaultUpstreamNamespace, "Namespace the release installs into")
	cmd.Flags().StringVar(&opts.Release, "release", install.DefaultUpstreamRelease, "Helm release name")
	cmd.Flags().StringVar(&opts.ValuesFile, "values", "", "Values file for the chart")
	cmd.Flags().StringArrayVar(&opts.SetValues, "set", nil, "Set chart values (key=value, repeatable)")

	return cmd
}
