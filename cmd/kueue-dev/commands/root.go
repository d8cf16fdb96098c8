// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the kueue-dev CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kueue-dev",
		Short: "Develop and test the Kueue operator on local kind clusters",
	}

	cmd.AddCommand(Cluster())
	cmd.AddCommand(Deploy())
	cmd.AddCommand(Undeploy())
	cmd.AddCommand(Build())
	cmd.AddCommand(Test())
	cmd.AddCommand(Cleanup())
	cmd.AddCommand(Check())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
