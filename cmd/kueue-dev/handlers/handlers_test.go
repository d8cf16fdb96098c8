package handlers

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kueue-contrib/kueue-dev/internal/config"
	"github.com/kueue-contrib/kueue-dev/internal/container"
	"github.com/kueue-contrib/kueue-dev/internal/install"
	"github.com/kueue-contrib/kueue-dev/internal/kind"
	"github.com/kueue-contrib/kueue-dev/internal/orchestration"
	"github.com/kueue-contrib/kueue-dev/internal/ui"
)

// saveSeams snapshots every factory variable and restores it on cleanup so
// tests can swap them freely.
func saveSeams(t *testing.T) {
	t.Helper()
	origLoadSettings := loadSettings
	origResolveSourceRoot := resolveSourceRoot
	origDetectRuntime := detectRuntime
	origNewDepInstaller := newDepInstaller
	origNewOperatorInstaller := newOperatorInstaller
	origNewBundleInstaller := newBundleInstaller
	origNewImageLoader := newImageLoader
	origNewClusterManager := newClusterManager
	origNewNodeClient := newNodeClient
	origNewNodePoller := newNodePoller
	origNewCleanupClient := newCleanupClient
	origNewImageBuilder := newImageBuilder
	origNewHelmClient := newHelmClient
	origNewSuiteRunner := newSuiteRunner
	origEnsureGinkgo := ensureGinkgo
	origCheckAll := checkAll
	origListClusters := listClusters
	origOCRunner := ocRunner
	t.Cleanup(func() {
		loadSettings = origLoadSettings
		resolveSourceRoot = origResolveSourceRoot
		detectRuntime = origDetectRuntime
		newDepInstaller = origNewDepInstaller
		newOperatorInstaller = origNewOperatorInstaller
		newBundleInstaller = origNewBundleInstaller
		newImageLoader = origNewImageLoader
		newClusterManager = origNewClusterManager
		newNodeClient = origNewNodeClient
		newNodePoller = origNewNodePoller
		newCleanupClient = origNewCleanupClient
		newImageBuilder = origNewImageBuilder
		newHelmClient = origNewHelmClient
		newSuiteRunner = origNewSuiteRunner
		ensureGinkgo = origEnsureGinkgo
		checkAll = origCheckAll
		listClusters = origListClusters
		ocRunner = origOCRunner
	})
}

// testSettings returns settings with confirmation disabled so handlers never
// prompt.
func testSettings() *config.Settings {
	s := config.DefaultSettings()
	s.Behavior.ConfirmDestructive = false
	return s
}

// setupWorkspace creates a source root with an images file and an exported
// kubeconfig, and wires the settings and resolution seams to it.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	imagesJSON := `[
		{"name":"operator","image":"quay.io/test/operator:dev"},
		{"name":"operand","image":"quay.io/test/operand:dev"},
		{"name":"must-gather","image":"quay.io/test/must-gather:dev"},
		{"name":"bundle","image":"quay.io/test/bundle:dev"},
		{"name":"workload","image":"quay.io/test/workload:dev"}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "related_images.json"), []byte(imagesJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, kubeconfigFileName), []byte("apiVersion: v1\nkind: Config\n"), 0o600))

	loadSettings = func() (*config.Settings, error) { return testSettings(), nil }
	resolveSourceRoot = func(string, *config.Settings) (string, error) { return dir, nil }
	detectRuntime = func() (container.Runtime, error) { return container.Docker, nil }
	return dir
}

type fakeCluster struct {
	exists     bool
	existsErr  error
	createErr  error
	createdTo  []string
	deleted    int
	nodeWaits  int
	mu         sync.Mutex
	clusterCNI kind.CNIProvider
}

func (f *fakeCluster) Exists(context.Context) (bool, error) { return f.exists, f.existsErr }

func (f *fakeCluster) Create(_ context.Context, kubeconfigPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.createdTo = append(f.createdTo, kubeconfigPath)
	return nil
}

func (f *fakeCluster) Delete(context.Context) error {
	f.deleted++
	return nil
}

func (f *fakeCluster) Kubeconfig(context.Context) ([]byte, error) {
	return []byte("apiVersion: v1\nkind: Config\n"), nil
}

func (f *fakeCluster) WaitForNodesReady(context.Context, time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodeWaits++
	return nil
}

// wireCluster installs a fake cluster manager, recording the CNI it was
// built with. The fake stands in for the node poller too.
func wireCluster(f *fakeCluster) {
	newClusterManager = func(_ string, cni kind.CNIProvider, _ []string, _ ui.Prompter) clusterManager {
		f.clusterCNI = cni
		return f
	}
	newNodePoller = func([]byte) (nodePoller, error) { return f, nil }
}

type fakeDepInstaller struct {
	mu        sync.Mutex
	installed []string
	errs      map[string]error

	calicoVersions []string
	olmInstalls    int
	olmErr         error
	uninstalls     int
	upstreamOpts   []install.UpstreamOptions
}

func (f *fakeDepInstaller) Install(_ context.Context, target install.Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installed = append(f.installed, target.Name)
	return f.errs[target.Name]
}

func (f *fakeDepInstaller) InstallCalico(_ context.Context, version string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calicoVersions = append(f.calicoVersions, version)
	return nil
}

func (f *fakeDepInstaller) InstallOLM(context.Context) error {
	f.olmInstalls++
	return f.olmErr
}

func (f *fakeDepInstaller) UninstallOperator(context.Context, install.SDKRunner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uninstalls++
	return nil
}

func (f *fakeDepInstaller) DeployUpstreamKustomize(_ context.Context, opts install.UpstreamOptions) error {
	f.upstreamOpts = append(f.upstreamOpts, opts)
	return nil
}

type fakeOperator struct {
	crdInstalls int
	crdErr      error
	installs    []*config.KueueCR
	installErr  error
	crCreates   []*config.KueueCR

	// ops records the call order so tests can assert the readiness gate
	// runs before the CR apply.
	ops        []string
	readyWaits int
	readyErr   error
}

func (f *fakeOperator) InstallCRDs(context.Context) error {
	f.crdInstalls++
	return f.crdErr
}

func (f *fakeOperator) Install(_ context.Context, _ *config.ImageSet, cr *config.KueueCR) error {
	f.installs = append(f.installs, cr)
	return f.installErr
}

func (f *fakeOperator) WaitUntilReady(context.Context) error {
	f.ops = append(f.ops, "wait-ready")
	f.readyWaits++
	return f.readyErr
}

func (f *fakeOperator) CreateKueueCR(_ context.Context, cr *config.KueueCR) error {
	f.ops = append(f.ops, "create-cr")
	f.crCreates = append(f.crCreates, cr)
	return nil
}

type fakeLoader struct {
	loadErr    error
	loads      int
	bundleRefs []string
	bundleErr  error
}

func (f *fakeLoader) LoadAllBackground(ctx context.Context, _ *config.ImageSet) *orchestration.Handle {
	return orchestration.Background(ctx, "image load", func(context.Context) error {
		f.loads++
		return f.loadErr
	})
}

func (f *fakeLoader) EnsureBundle(_ context.Context, set *config.ImageSet) error {
	ref, err := set.Bundle()
	if err != nil {
		return err
	}
	f.bundleRefs = append(f.bundleRefs, ref)
	return f.bundleErr
}

type fakeBundleInstaller struct {
	images []string
	err    error
}

func (f *fakeBundleInstaller) Install(_ context.Context, image string) error {
	f.images = append(f.images, image)
	return f.err
}

// wireDeploySeams installs fakes for everything deploySequence touches.
func wireDeploySeams(dep *fakeDepInstaller, op *fakeOperator, loader *fakeLoader, bundle *fakeBundleInstaller) {
	newDepInstaller = func(string) (depInstaller, error) { return dep, nil }
	newOperatorInstaller = func(string, string) (operatorInstaller, error) { return op, nil }
	newImageLoader = func(container.Runtime, string) imageLoader { return loader }
	newBundleInstaller = func(string) bundleInstaller { return bundle }
}

type fakeNodeClient struct {
	allNodes     string
	controlPlane string
	labels       []string
}

func (f *fakeNodeClient) GetOutput(_ context.Context, args ...string) (string, error) {
	for _, arg := range args {
		if arg == "-l" {
			return f.controlPlane, nil
		}
	}
	return f.allNodes, nil
}

func (f *fakeNodeClient) Label(_ context.Context, resource, name, label string) error {
	f.labels = append(f.labels, resource+"/"+name+"="+label)
	return nil
}
