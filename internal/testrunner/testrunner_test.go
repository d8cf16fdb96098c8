package testrunner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	errs  []error
	calls int
	args  [][]string
	envs  [][]string
}

func (f *fakeRunner) Run(_ context.Context, _, _ string, env []string, args ...string) error {
	f.calls++
	f.args = append(f.args, args)
	f.envs = append(f.envs, env)
	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return nil
}

// countingPrompter acknowledges a fixed number of reruns, then declines.
type countingPrompter struct {
	remaining int
	prompts   int
}

func (p *countingPrompter) Confirm(string) (bool, error) { return true, nil }

func (p *countingPrompter) WaitForEnter(string) error {
	p.prompts++
	if p.remaining == 0 {
		return errors.New("operator aborted")
	}
	p.remaining--
	return nil
}

func TestSkipPattern(t *testing.T) {
	t.Parallel()
	assert.Empty(t, SkipPattern(nil))
	assert.Equal(t, "(Toleration)", SkipPattern([]string{"Toleration"}))
	assert.Equal(t, "(Toleration|Preemption)", SkipPattern([]string{"Toleration", "Preemption"}))
}

func TestArgs_Defaults(t *testing.T) {
	t.Parallel()
	args := Args(Options{})
	assert.Equal(t, []string{"--label-filter=!disruptive", "-v", "./test/e2e/..."}, args)
}

func TestArgs_AllOptions(t *testing.T) {
	t.Parallel()
	args := Args(Options{
		Focus:        "ClusterQueue",
		LabelFilter:  "slow",
		SkipPatterns: []string{"Toleration", "Preemption"},
	})
	assert.Equal(t, []string{
		"--label-filter=slow", "-v",
		"--skip", "(Toleration|Preemption)",
		"--focus", "ClusterQueue",
		"./test/e2e/...",
	}, args)
}

func TestRun_PassesKubeconfigEnv(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	tr := NewTestRunnerWith(runner)

	opts := Options{SourceRoot: "/src", KubeconfigPath: "/tmp/kube.kubeconfig"}
	require.NoError(t, tr.Run(context.Background(), "/src/bin/ginkgo", opts))

	require.Len(t, runner.envs, 1)
	assert.Contains(t, runner.envs[0], "KUBECONFIG=/tmp/kube.kubeconfig")
}

func TestRunWithRetry_PassesFirstTime(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	prompter := &countingPrompter{}
	tr := NewTestRunnerWith(runner)

	require.NoError(t, tr.RunWithRetry(context.Background(), "ginkgo", Options{}, prompter))
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 0, prompter.prompts)
}

func TestRunWithRetry_RerunsUntilPass(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{errs: []error{errors.New("fail 1"), errors.New("fail 2")}}
	prompter := &countingPrompter{remaining: 5}
	tr := NewTestRunnerWith(runner)

	require.NoError(t, tr.RunWithRetry(context.Background(), "ginkgo", Options{}, prompter))
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, 2, prompter.prompts)
}

func TestRunWithRetry_DeclinedRerunStops(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{errs: []error{errors.New("persistent failure")}}
	prompter := &countingPrompter{}
	tr := NewTestRunnerWith(runner)

	err := tr.RunWithRetry(context.Background(), "ginkgo", Options{}, prompter)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistent failure")
	assert.Equal(t, 1, runner.calls)
}

func TestRunWithRetry_CancelledContextStops(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{errs: []error{errors.New("fail")}}
	prompter := &countingPrompter{remaining: 5}
	tr := NewTestRunnerWith(runner)

	err := tr.RunWithRetry(ctx, "ginkgo", Options{}, prompter)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, prompter.prompts)
}
