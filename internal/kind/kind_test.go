package kind

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kueue-contrib/kueue-dev/internal/ui"
)

type recordedCall struct {
	stdin []byte
	args  []string
}

type fakeRunner struct {
	calls          [][]string
	runs           []recordedCall
	clustersOutput string
}

func (f *fakeRunner) Run(_ context.Context, _ []string, stdin []byte, args ...string) error {
	f.calls = append(f.calls, args)
	f.runs = append(f.runs, recordedCall{stdin: stdin, args: args})
	return nil
}

func (f *fakeRunner) Output(_ context.Context, _ []string, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	return f.clustersOutput, nil
}

// denyPrompter refuses every confirmation.
type denyPrompter struct{}

func (denyPrompter) Confirm(string) (bool, error) { return false, nil }
func (denyPrompter) WaitForEnter(string) error    { return nil }

func TestParseCNIProvider(t *testing.T) {
	t.Parallel()
	got, err := ParseCNIProvider("calico")
	require.NoError(t, err)
	assert.Equal(t, CNICalico, got)

	got, err = ParseCNIProvider("default")
	require.NoError(t, err)
	assert.Equal(t, CNIDefault, got)

	_, err = ParseCNIProvider("cilium")
	require.Error(t, err)
}

func TestRenderConfig_Calico(t *testing.T) {
	t.Parallel()
	cluster := NewClusterWithRunner("kueue-test", CNICalico, &fakeRunner{}, ui.AutoApprove{})

	config, err := cluster.RenderConfig()
	require.NoError(t, err)

	manifest := string(config)
	assert.Contains(t, manifest, "disableDefaultCNI: true")
	assert.Contains(t, manifest, `podSubnet: "10.244.0.0/16"`)
	assert.Contains(t, manifest, `serviceSubnet: "10.96.0.0/16"`)
	assert.Equal(t, 2, strings.Count(manifest, "role: control-plane"))
	assert.Equal(t, 2, strings.Count(manifest, "role: worker"))
}

func TestRenderConfig_DefaultCNI(t *testing.T) {
	t.Parallel()
	cluster := NewClusterWithRunner("kueue-test", CNIDefault, &fakeRunner{}, ui.AutoApprove{})

	config, err := cluster.RenderConfig()
	require.NoError(t, err)
	assert.NotContains(t, string(config), "disableDefaultCNI")
}

func TestExists(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{clustersOutput: "kueue-test\nother\n"}
	cluster := NewClusterWithRunner("kueue-test", CNICalico, runner, ui.AutoApprove{})

	exists, err := cluster.Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)

	cluster.Name = "absent"
	exists, err = cluster.Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreate_FreshCluster(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	cluster := NewClusterWithRunner("kueue-test", CNICalico, runner, ui.AutoApprove{})

	require.NoError(t, cluster.Create(context.Background(), "/tmp/kubeconfig"))

	require.Len(t, runner.runs, 1)
	run := runner.runs[0]
	assert.Equal(t, []string{"create", "cluster", "--name", "kueue-test", "--config", "-", "--kubeconfig", "/tmp/kubeconfig"}, run.args)
	assert.Contains(t, string(run.stdin), "kind: Cluster")
}

func TestCreate_NoKubeconfigExport(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	cluster := NewClusterWithRunner("kueue-test", CNIDefault, runner, ui.AutoApprove{})

	require.NoError(t, cluster.Create(context.Background(), ""))

	require.Len(t, runner.runs, 1)
	assert.NotContains(t, runner.runs[0].args, "--kubeconfig")
}

func TestCreate_RecreatesExisting(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{clustersOutput: "kueue-test\n"}
	cluster := NewClusterWithRunner("kueue-test", CNICalico, runner, ui.AutoApprove{})

	require.NoError(t, cluster.Create(context.Background(), ""))

	require.Len(t, runner.runs, 2)
	assert.Equal(t, []string{"delete", "cluster", "--name", "kueue-test"}, runner.runs[0].args)
	assert.Equal(t, "create", runner.runs[1].args[0])
}

func TestCreate_DeclinedConfirmation(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{clustersOutput: "kueue-test\n"}
	cluster := NewClusterWithRunner("kueue-test", CNICalico, runner, denyPrompter{})

	err := cluster.Create(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Empty(t, runner.runs, "nothing should be deleted or created after a declined prompt")
}
