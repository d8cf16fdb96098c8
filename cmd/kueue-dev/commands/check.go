package commands

import (
	"github.com/spf13/cobra"

	"github.com/kueue-contrib/kueue-dev/cmd/kueue-dev/handlers"
)

// Check returns the check command for verifying host prerequisites.
func Check() *cobra.Command {
	var bundle bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the required host tools are installed",
		Long: `Check that the binaries the workflows shell out to are on PATH: kind,
kubectl, go, and a container runtime (docker or podman). With --bundle,
operator-sdk is required too.

Missing prerequisites exit with code 2 so scripts can tell a bad
environment from a failed deployment.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Check(bundle)
		},
	}

	cmd.Flags().BoolVar(&bundle, "bundle", false, "Also require operator-sdk for OLM deployments")

	return cmd
}
