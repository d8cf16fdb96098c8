package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeUpstreamTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	overlay := filepath.Join(root, "config", "default")
	require.NoError(t, os.MkdirAll(overlay, 0o755))
	kustomization := "resources:\n- ../components/manager\nnamespace: kueue-system\n"
	require.NoError(t, os.WriteFile(filepath.Join(overlay, "kustomization.yaml"), []byte(kustomization), 0o600))
	return root
}

func TestValidateUpstreamSource(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateUpstreamSource(writeUpstreamTree(t)))

	err := ValidateUpstreamSource(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither kustomize config nor helm chart")
}

func TestUpstreamChartPath(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	chartDir := filepath.Join(root, "charts", "kueue")
	require.NoError(t, os.MkdirAll(chartDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chartDir, "Chart.yaml"), []byte("name: kueue\n"), 0o600))

	path, err := UpstreamChartPath(root)
	require.NoError(t, err)
	assert.Equal(t, chartDir, path)

	_, err = UpstreamChartPath(t.TempDir())
	require.Error(t, err)
}

func TestDeployUpstreamKustomize(t *testing.T) {
	t.Parallel()
	applier := newFakeApplier()
	installer := NewInstaller(applier, newFakePoller())

	opts := UpstreamOptions{
		SourceRoot: writeUpstreamTree(t),
		Overlay:    DefaultUpstreamOverlay,
		Namespace:  DefaultUpstreamNamespace,
	}
	require.NoError(t, installer.DeployUpstreamKustomize(context.Background(), opts))

	// Overlay apply, five CRD gates, one deployment gate.
	require.Len(t, applier.ops, 7)
	assert.Contains(t, applier.ops[0], "apply-kustomize")
	assert.Contains(t, applier.ops[1], "crd/workloads.kueue.x-k8s.io")
	assert.Equal(t, "wait kueue-system/deployment/kueue-controller-manager condition=Available", applier.ops[6])
}

func TestDeployUpstreamKustomize_MissingOverlay(t *testing.T) {
	t.Parallel()
	applier := newFakeApplier()
	installer := NewInstaller(applier, newFakePoller())

	opts := UpstreamOptions{
		SourceRoot: writeUpstreamTree(t),
		Overlay:    "prod",
		Namespace:  DefaultUpstreamNamespace,
	}
	err := installer.DeployUpstreamKustomize(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `overlay "prod" not found`)
	assert.Empty(t, applier.ops)
}

func TestDeployUpstreamKustomize_ImageOverrideUsesTempCopy(t *testing.T) {
	t.Parallel()
	applier := newFakeApplier()
	installer := NewInstaller(applier, newFakePoller())
	root := writeUpstreamTree(t)

	opts := UpstreamOptions{
		SourceRoot: root,
		Overlay:    DefaultUpstreamOverlay,
		Image:      "quay.io/example/kueue:dev",
		Namespace:  DefaultUpstreamNamespace,
	}
	require.NoError(t, installer.DeployUpstreamKustomize(context.Background(), opts))

	// The applied overlay is a temp copy, not the checkout.
	assert.NotContains(t, applier.ops[0], root)

	// The checkout's kustomization is untouched.
	data, err := os.ReadFile(filepath.Join(root, "config", "default", "kustomization.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quay.io/example/kueue:dev")
}

func TestSetControllerImage(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "kustomization.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespace: kueue-system\n"), 0o600))

	require.NoError(t, setControllerImage(path, "quay.io/example/kueue:dev"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "name: controller")
	assert.Contains(t, content, "newName: quay.io/example/kueue")
	assert.Contains(t, content, "newTag: dev")
	assert.Contains(t, content, "namespace: kueue-system")
}

func TestSplitImageRef(t *testing.T) {
	t.Parallel()
	name, tag := SplitImageRef("quay.io/example/kueue:dev")
	assert.Equal(t, "quay.io/example/kueue", name)
	assert.Equal(t, "dev", tag)

	name, tag = SplitImageRef("localhost:5000/kueue")
	assert.Equal(t, "localhost:5000/kueue", name)
	assert.Equal(t, "latest", tag)

	name, tag = SplitImageRef("kueue")
	assert.Equal(t, "kueue", name)
	assert.Equal(t, "latest", tag)
}
