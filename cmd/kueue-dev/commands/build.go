package commands

import (
	"github.com/spf13/cobra"

	"github.com/kueue-contrib/kueue-dev/cmd/kueue-dev/handlers"
)

// Build returns the build command.
func Build() *cobra.Command {
	var opts handlers.BuildOptions

	cmd := &cobra.Command{
		Use:   "build [component...]",
		Short: "Build the operator images from source",
		Long: `Build component images from the operator checkout.

Components: operator, operand, must-gather, bundle. With no arguments all
of them are built. The bundle build receives the images file name so it
resolves the same related images as the deployment.

Example:
  kueue-dev build operator bundle --parallel`,
		ValidArgs: []string{"operator", "operand", "must-gather", "bundle"},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Components = args
			return handlers.Build(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ImagesFile, "images-file", "", "Images file naming the tags to build")
	cmd.Flags().StringVar(&opts.SourceRoot, "source", "", "Path to the kueue-operator checkout")
	cmd.Flags().BoolVar(&opts.Parallel, "parallel", false, "Build components concurrently")
	cmd.Flags().BoolVar(&opts.Push, "push", false, "Push images after building")

	return cmd
}
