package handlers

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"

	"github.com/kueue-contrib/kueue-dev/internal/install"
	"github.com/kueue-contrib/kueue-dev/internal/orchestration"
	"github.com/kueue-contrib/kueue-dev/internal/ui"
)

// ocRunner shells out to the oc binary for OpenShift session checks.
// Replaced in tests.
var ocRunner = func(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "oc", args...).Output()
	return strings.TrimSpace(string(out)), err
}

// OpenShiftOptions configures a deployment onto a logged-in OpenShift
// cluster.
type OpenShiftOptions struct {
	ImagesFile string
	SourceRoot string
	Force      bool
}

// verifyOpenShiftConnection checks the oc session and warns when the user
// lacks cluster-admin.
func verifyOpenShiftConnection(ctx context.Context, force bool) error {
	user, err := ocRunner(ctx, "whoami")
	if err != nil {
		return fmt.Errorf("not logged into an OpenShift cluster, run 'oc login' first: %w", err)
	}
	server, err := ocRunner(ctx, "whoami", "--show-server")
	if err != nil {
		return fmt.Errorf("failed to read cluster URL: %w", err)
	}
	log.Printf("[openshift] Connected as %s to %s", user, server)

	if _, err := ocRunner(ctx, "auth", "can-i", "*", "*", "--all-namespaces"); err != nil {
		fmt.Println(ui.Warn("Warning: you may not have cluster-admin permissions"))
		approved, err := prompterFor(force).Confirm("Installing cert-manager and CRDs needs elevated permissions. Continue anyway?")
		if err != nil {
			return err
		}
		if !approved {
			return fmt.Errorf("aborted: insufficient permissions")
		}
	}
	return nil
}

// DeployOpenShift installs the operator onto the cluster the current oc
// session points at. There is no kind cluster and no image loading; images
// are pulled from their registries.
func DeployOpenShift(ctx context.Context, opts OpenShiftOptions) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if opts.ImagesFile == "" {
		opts.ImagesFile = settings.Defaults.ImagesFile
	}
	sourceRoot, err := resolveSourceRoot(opts.SourceRoot, settings)
	if err != nil {
		return err
	}

	if err := verifyOpenShiftConnection(ctx, opts.Force); err != nil {
		return err
	}

	images, err := resolveImageSet(opts.ImagesFile, sourceRoot)
	if err != nil {
		return err
	}

	// Empty path: the ambient oc login context decides the cluster.
	installer, err := newDepInstaller("")
	if err != nil {
		return err
	}

	v := settings.Versions
	tasks := []orchestration.Task{
		{Name: "cert-manager", Func: func(ctx context.Context) error { return installer.Install(ctx, install.CertManager(v)) }},
		{Name: "jobset", Func: func(ctx context.Context) error { return installer.Install(ctx, install.JobSet(v)) }},
		{Name: "leaderworkerset", Func: func(ctx context.Context) error { return installer.Install(ctx, install.LeaderWorkerSet(v)) }},
	}
	if err := runTasks(ctx, tasks); err != nil {
		return err
	}

	operator, err := newOperatorInstaller("", sourceRoot)
	if err != nil {
		return err
	}
	if err := operator.InstallCRDs(ctx); err != nil {
		return err
	}
	if err := operator.Install(ctx, images, nil); err != nil {
		return err
	}

	log.Printf("[openshift] Deployment completed")
	fmt.Println(ui.Hint("View operator logs with:\n  oc logs -n openshift-kueue-operator -l name=openshift-kueue-operator -f"))
	return nil
}
