package install

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOLMInstalled(t *testing.T) {
	t.Parallel()
	applier := newFakeApplier()
	poller := newFakePoller()
	installer := NewInstaller(applier, poller)

	// No olm namespace at all.
	assert.False(t, installer.IsOLMInstalled(context.Background()))

	// Namespace without the core deployments.
	poller.namespaces["olm"] = true
	assert.False(t, installer.IsOLMInstalled(context.Background()))

	// Full installation.
	poller.deployments["olm/olm-operator"] = true
	poller.deployments["olm/catalog-operator"] = true
	assert.True(t, installer.IsOLMInstalled(context.Background()))
}

func TestInstallOLM_SkipsWhenPresent(t *testing.T) {
	applier := newFakeApplier()
	poller := newFakePoller()
	poller.namespaces["olm"] = true
	poller.deployments["olm/olm-operator"] = true
	poller.deployments["olm/catalog-operator"] = true
	installer := NewInstaller(applier, poller)

	orig := latestOLMVersion
	t.Cleanup(func() { latestOLMVersion = orig })
	latestOLMVersion = func(context.Context) (string, error) {
		t.Fatal("release lookup must not run when OLM is installed")
		return "", nil
	}

	require.NoError(t, installer.InstallOLM(context.Background()))
}

func TestInstallOLM_AppliesReleaseManifests(t *testing.T) {
	applier := newFakeApplier()
	installer := NewInstaller(applier, newFakePoller())

	orig := latestOLMVersion
	t.Cleanup(func() { latestOLMVersion = orig })
	latestOLMVersion = func(context.Context) (string, error) { return "v0.28.0", nil }

	require.NoError(t, installer.InstallOLM(context.Background()))

	// Namespace probe, two server-side applies, three best-effort waits.
	assert.Contains(t, applier.ops, "apply-server-side https://github.com/operator-framework/operator-lifecycle-manager/releases/download/v0.28.0/crds.yaml")
	assert.Contains(t, applier.ops, "apply-server-side https://github.com/operator-framework/operator-lifecycle-manager/releases/download/v0.28.0/olm.yaml")
	assert.Contains(t, applier.ops, "wait olm/deployment/packageserver condition=Available")
}

func TestIsOperatorInstalled(t *testing.T) {
	t.Parallel()
	applier := newFakeApplier()
	poller := newFakePoller()
	installer := NewInstaller(applier, poller)

	assert.False(t, installer.IsOperatorInstalled(context.Background()))

	poller.namespaces["openshift-kueue-operator"] = true
	assert.False(t, installer.IsOperatorInstalled(context.Background()))

	// A catalog source alone counts as an installation.
	applier.getFound["openshift-kueue-operator/catalogsource/kueue-operator-catalog"] = true
	assert.True(t, installer.IsOperatorInstalled(context.Background()))

	// So does the operator deployment.
	applier.getFound = map[string]bool{}
	poller.deployments["openshift-kueue-operator/openshift-kueue-operator"] = true
	assert.True(t, installer.IsOperatorInstalled(context.Background()))
}

func TestUninstallOperator_NoopWhenAbsent(t *testing.T) {
	t.Parallel()
	applier := newFakeApplier()
	installer := NewInstaller(applier, newFakePoller())
	sdk := &fakeSDK{}

	require.NoError(t, installer.UninstallOperator(context.Background(), sdk))
	assert.Zero(t, sdk.cleanupCalls)
}

func TestUninstallOperator_CleansUpAndDeletesNamespace(t *testing.T) {
	t.Parallel()
	applier := newFakeApplier()
	applier.getFound["openshift-kueue-operator/catalogsource/kueue-operator-catalog"] = true
	poller := newFakePoller()
	poller.namespaces["openshift-kueue-operator"] = true
	installer := NewInstaller(applier, poller)
	sdk := &fakeSDK{}

	require.NoError(t, installer.UninstallOperator(context.Background(), sdk))
	assert.Equal(t, 1, sdk.cleanupCalls)
	assert.Contains(t, applier.ops, "delete /namespace/openshift-kueue-operator")
}
