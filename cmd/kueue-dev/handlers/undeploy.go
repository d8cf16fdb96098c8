package handlers

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/kueue-contrib/kueue-dev/internal/install"
)

// UndeployOptions configures operator and upstream removal.
type UndeployOptions struct {
	SourceRoot string
	Force      bool

	// Upstream helm release settings.
	Release   string
	Namespace string
}

// UndeployOperator removes an existing operator installation through OLM
// cleanup, tolerating a cluster with no operator present.
func UndeployOperator(ctx context.Context, opts UndeployOptions) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	sourceRoot, err := resolveSourceRoot(opts.SourceRoot, settings)
	if err != nil {
		return err
	}
	kubeconfigPath, err := resolveKubeconfig(sourceRoot)
	if err != nil {
		return err
	}

	approved, err := prompterFor(opts.Force || !settings.Behavior.ConfirmDestructive).
		Confirm("Remove the Kueue operator from the cluster?")
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("aborted operator removal")
	}

	installer, err := newDepInstaller(kubeconfigPath)
	if err != nil {
		return err
	}
	sdk := &install.ExecSDKRunner{KubeconfigPath: kubeconfigPath}
	return installer.UninstallOperator(ctx, sdk)
}

// UndeployUpstreamHelm removes the upstream Kueue helm release. A missing
// release is not an error.
func UndeployUpstreamHelm(ctx context.Context, opts UndeployOptions) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if opts.Release == "" {
		opts.Release = install.DefaultUpstreamRelease
	}
	if opts.Namespace == "" {
		opts.Namespace = install.DefaultUpstreamNamespace
	}

	sourceRoot, err := resolveSourceRoot(opts.SourceRoot, settings)
	if err != nil {
		return err
	}
	kubeconfigPath, err := resolveKubeconfig(sourceRoot)
	if err != nil {
		return err
	}
	kubeconfig, err := os.ReadFile(kubeconfigPath)
	if err != nil {
		return err
	}

	if err := newHelmClient(kubeconfig).Uninstall(opts.Namespace, opts.Release); err != nil {
		return err
	}
	log.Printf("[undeploy] Release %s removed from %s", opts.Release, opts.Namespace)
	return nil
}
