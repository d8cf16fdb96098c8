// Package handlers implements command execution. Commands parse flags and
// delegate here; handlers wire the internal packages together and own the
// deployment sequencing.
package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kueue-contrib/kueue-dev/internal/config"
	"github.com/kueue-contrib/kueue-dev/internal/container"
	"github.com/kueue-contrib/kueue-dev/internal/images"
	"github.com/kueue-contrib/kueue-dev/internal/install"
	"github.com/kueue-contrib/kueue-dev/internal/k8s"
	"github.com/kueue-contrib/kueue-dev/internal/kind"
	"github.com/kueue-contrib/kueue-dev/internal/kubectl"
	"github.com/kueue-contrib/kueue-dev/internal/orchestration"
	"github.com/kueue-contrib/kueue-dev/internal/ui"
)

// kubeconfigFileName is the cluster kubeconfig exported next to the operator
// source, so every workflow resolves the same file instead of whatever
// KUBECONFIG happens to point at.
const kubeconfigFileName = "kube.kubeconfig"

// depInstaller is the dependency-provisioning surface of install.Installer.
type depInstaller interface {
	Install(ctx context.Context, t install.Target) error
	InstallCalico(ctx context.Context, version string) error
	InstallOLM(ctx context.Context) error
	UninstallOperator(ctx context.Context, sdk install.SDKRunner) error
	DeployUpstreamKustomize(ctx context.Context, opts install.UpstreamOptions) error
}

// operatorInstaller is the direct operator install surface.
type operatorInstaller interface {
	InstallCRDs(ctx context.Context) error
	Install(ctx context.Context, images *config.ImageSet, cr *config.KueueCR) error
	WaitUntilReady(ctx context.Context) error
	CreateKueueCR(ctx context.Context, cr *config.KueueCR) error
}

// nodeClient is the node inspection and labeling surface of kubectl.
type nodeClient interface {
	GetOutput(ctx context.Context, args ...string) (string, error)
	Label(ctx context.Context, resource, name, label string) error
}

// bundleInstaller is the OLM bundle install surface.
type bundleInstaller interface {
	Install(ctx context.Context, bundleImage string) error
}

// imageLoader stages images onto the cluster.
type imageLoader interface {
	LoadAllBackground(ctx context.Context, set *config.ImageSet) *orchestration.Handle
	EnsureBundle(ctx context.Context, set *config.ImageSet) error
}

// clusterManager is the kind lifecycle surface.
type clusterManager interface {
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context, kubeconfigPath string) error
	Delete(ctx context.Context) error
	Kubeconfig(ctx context.Context) ([]byte, error)
}

// nodePoller is the node readiness surface of k8s.Client.
type nodePoller interface {
	WaitForNodesReady(ctx context.Context, timeout time.Duration) error
}

// Factory function variables - can be replaced in tests.
var (
	loadSettings  = config.LoadSettings
	detectRuntime = container.Detect
	runTasks      = orchestration.RunAll

	newDepInstaller = func(kubeconfigPath string) (depInstaller, error) {
		api, err := k8s.NewClient(kubeconfigPath)
		if err != nil {
			return nil, err
		}
		return install.NewInstaller(kubectl.NewClient(kubeconfigPath), api), nil
	}

	newOperatorInstaller = func(kubeconfigPath, sourceRoot string) (operatorInstaller, error) {
		api, err := k8s.NewClient(kubeconfigPath)
		if err != nil {
			return nil, err
		}
		return install.NewOperatorInstaller(kubectl.NewClient(kubeconfigPath), api, sourceRoot), nil
	}

	newBundleInstaller = func(kubeconfigPath string) bundleInstaller {
		sdk := &install.ExecSDKRunner{KubeconfigPath: kubeconfigPath}
		return install.NewBundleInstaller(kubectl.NewClient(kubeconfigPath), sdk)
	}

	newImageLoader = func(runtime container.Runtime, clusterName string) imageLoader {
		return images.NewLoader(container.NewEngine(runtime), clusterName)
	}

	newClusterManager = func(name string, cni kind.CNIProvider, env []string, prompter ui.Prompter) clusterManager {
		return kind.NewCluster(name, cni, env, prompter)
	}

	newNodeClient = func(kubeconfigPath string) nodeClient {
		return kubectl.NewClient(kubeconfigPath)
	}

	newNodePoller = func(kubeconfig []byte) (nodePoller, error) {
		return k8s.NewClientFromBytes(kubeconfig)
	}
)

// resolveSourceRoot resolves the operator checkout from the flag, the
// settings file, or the directory the command was started in. Replaced in
// tests.
var resolveSourceRoot = func(flagValue string, s *config.Settings) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return config.ResolveSourceRoot(flagValue, s, wd)
}

// kubeconfigPathFor returns where the cluster kubeconfig is exported for a
// given source root.
func kubeconfigPathFor(sourceRoot string) string {
	return filepath.Join(sourceRoot, kubeconfigFileName)
}

// resolveKubeconfig returns the exported kubeconfig path for the source root
// and verifies it exists.
func resolveKubeconfig(sourceRoot string) (string, error) {
	path := kubeconfigPathFor(sourceRoot)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("kubeconfig not found at %s, create the cluster first", path)
	}
	return path, nil
}

// kindEnvFor returns the environment kind needs for the detected runtime.
func kindEnvFor(runtime container.Runtime) []string {
	return container.NewEngine(runtime).KindEnv()
}

// resolveImageSet loads the image configuration, resolving relative paths
// against the source root.
func resolveImageSet(imagesFile, sourceRoot string) (*config.ImageSet, error) {
	path := imagesFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(sourceRoot, path)
	}
	return config.LoadImageSet(path)
}

// prompterFor returns an auto-approving prompter when force is set.
func prompterFor(force bool) ui.Prompter {
	if force {
		return ui.AutoApprove{}
	}
	return ui.NewPrompter()
}
