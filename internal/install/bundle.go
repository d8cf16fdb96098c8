package install

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Resource names shared by the bundle and direct operator install paths.
const (
	operatorName       = "kueue-operator"
	operatorNamespace  = "openshift-kueue-operator"
	operatorDeployment = "openshift-kueue-operator"
	catalogSourceName  = "kueue-operator-catalog"
)

// SDKRunner drives operator-sdk. Replaced in tests.
type SDKRunner interface {
	RunBundle(ctx context.Context, bundleImage, namespace string) error
	Cleanup(ctx context.Context, operatorName, namespace string) error
}

// ExecSDKRunner shells out to the operator-sdk binary.
type ExecSDKRunner struct {
	KubeconfigPath string
}

func (r *ExecSDKRunner) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "operator-sdk", args...)
	cmd.Env = os.Environ()
	if r.KubeconfigPath != "" {
		cmd.Env = append(cmd.Env, "KUBECONFIG="+r.KubeconfigPath)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("operator-sdk %s failed: %w\nOutput: %s", strings.Join(args, " "), err, output)
	}
	return nil
}

func (r *ExecSDKRunner) RunBundle(ctx context.Context, bundleImage, namespace string) error {
	return r.run(ctx, "run", "bundle", bundleImage, "--namespace", namespace, "--timeout", "10m")
}

func (r *ExecSDKRunner) Cleanup(ctx context.Context, operatorName, namespace string) error {
	return r.run(ctx, "cleanup", operatorName, "--namespace", namespace)
}

// BundleInstaller installs the operator from an OLM bundle image. A leftover
// catalog source from a previous run makes operator-sdk fail with "already
// exists", so the installer cleans up and retries exactly once.
type BundleInstaller struct {
	kubectl Applier
	sdk     SDKRunner

	// settle is the pause between cleanup and retry, giving OLM time to
	// finish tearing down the old catalog. No API condition signals this.
	settle time.Duration
}

// NewBundleInstaller wires a bundle installer with the default settle pause.
func NewBundleInstaller(kubectl Applier, sdk SDKRunner) *BundleInstaller {
	return &BundleInstaller{kubectl: kubectl, sdk: sdk, settle: 3 * time.Second}
}

// isCatalogConflict matches the operator-sdk failure produced by a stale
// catalog source.
func isCatalogConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}

// Install deploys the bundle image into the operator namespace. At most two
// bundle attempts and one cleanup are ever performed; a pre-existing catalog
// source consumes the cleanup before the first attempt.
func (b *BundleInstaller) Install(ctx context.Context, bundleImage string) error {
	log.Printf("[bundle] Installing %s via OLM bundle...", operatorName)

	namespace := fmt.Sprintf("apiVersion: v1\nkind: Namespace\nmetadata:\n  name: %s\n", operatorNamespace)
	if err := b.kubectl.Apply(ctx, []byte(namespace)); err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", operatorNamespace, err)
	}

	found, err := b.kubectl.Get(ctx, operatorNamespace, "catalogsource", catalogSourceName)
	if err != nil {
		return fmt.Errorf("failed to check for existing catalog source: %w", err)
	}
	if found {
		log.Printf("[bundle] Catalog source already exists from a previous deployment")
		return b.cleanupAndRun(ctx, bundleImage, nil)
	}

	log.Printf("[bundle] Running operator-sdk run bundle...")
	runErr := b.sdk.RunBundle(ctx, bundleImage, operatorNamespace)
	if runErr == nil {
		log.Printf("[bundle] Operator installed successfully via OLM bundle")
		return nil
	}
	if !isCatalogConflict(runErr) {
		return fmt.Errorf("bundle installation failed: %w", runErr)
	}
	return b.cleanupAndRun(ctx, bundleImage, runErr)
}

// cleanupAndRun removes the previous installation and makes the final bundle
// attempt. firstErr, when non-nil, is the conflict that triggered cleanup and
// is preserved in the failure message.
func (b *BundleInstaller) cleanupAndRun(ctx context.Context, bundleImage string, firstErr error) error {
	log.Printf("[bundle] Running operator-sdk cleanup %s...", operatorName)
	cleanupErr := b.sdk.Cleanup(ctx, operatorName, operatorNamespace)
	if cleanupErr != nil {
		log.Printf("[bundle] Warning: cleanup had issues: %v", cleanupErr)
	}

	time.Sleep(b.settle)

	log.Printf("[bundle] Retrying operator-sdk run bundle...")
	if err := b.sdk.RunBundle(ctx, bundleImage, operatorNamespace); err != nil {
		// The terminal error carries the cleanup outcome so a failed
		// cleanup is visible next to the attempt it doomed.
		outcome := "cleanup succeeded"
		if cleanupErr != nil {
			outcome = fmt.Sprintf("cleanup failed: %v", cleanupErr)
		}
		if firstErr != nil {
			return fmt.Errorf("bundle installation failed after cleanup (%s): %v; first attempt: %w", outcome, err, firstErr)
		}
		return fmt.Errorf("bundle installation failed after cleanup (%s): %w", outcome, err)
	}

	log.Printf("[bundle] Bundle installation successful after cleanup")
	return nil
}
