package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kueue-contrib/kueue-dev/internal/config"
	"github.com/kueue-contrib/kueue-dev/internal/testrunner"
	"github.com/kueue-contrib/kueue-dev/internal/ui"
)

type fakeSuiteRunner struct {
	runs    []testrunner.Options
	retries []testrunner.Options
	runErr  error
}

func (f *fakeSuiteRunner) Run(_ context.Context, _ string, opts testrunner.Options) error {
	f.runs = append(f.runs, opts)
	return f.runErr
}

func (f *fakeSuiteRunner) RunWithRetry(_ context.Context, _ string, opts testrunner.Options, _ ui.Prompter) error {
	f.retries = append(f.retries, opts)
	return f.runErr
}

func wireTests(t *testing.T) (*fakeSuiteRunner, string) {
	t.Helper()
	saveSeams(t)
	dir := setupWorkspace(t)
	runner := &fakeSuiteRunner{}
	newSuiteRunner = func() suiteRunner { return runner }
	ensureGinkgo = func(context.Context, string) (string, error) { return "bin/ginkgo", nil }
	return runner, dir
}

func TestRunTests(t *testing.T) {
	runner, dir := wireTests(t)

	err := RunTests(context.Background(), TestOptions{Focus: "Kueue"})
	require.NoError(t, err)

	require.Len(t, runner.runs, 1)
	opts := runner.runs[0]
	assert.Equal(t, dir, opts.SourceRoot)
	assert.Equal(t, kubeconfigPathFor(dir), opts.KubeconfigPath)
	assert.Equal(t, "Kueue", opts.Focus)
	assert.Empty(t, runner.retries)
}

func TestRunTests_Retry(t *testing.T) {
	runner, _ := wireTests(t)

	err := RunTests(context.Background(), TestOptions{Retry: true})
	require.NoError(t, err)
	assert.Empty(t, runner.runs)
	assert.Len(t, runner.retries, 1)
}

func TestRunTests_SkipPatternsFromSettings(t *testing.T) {
	runner, _ := wireTests(t)
	loadSettings = func() (*config.Settings, error) {
		s := testSettings()
		s.Tests.OperatorSkipPatterns = []string{"Disruptive", "Serial"}
		return s, nil
	}

	err := RunTests(context.Background(), TestOptions{})
	require.NoError(t, err)
	require.Len(t, runner.runs, 1)
	assert.Equal(t, []string{"Disruptive", "Serial"}, runner.runs[0].SkipPatterns)
}

func TestRunTests_FlagSkipOverridesSettings(t *testing.T) {
	runner, _ := wireTests(t)
	loadSettings = func() (*config.Settings, error) {
		s := testSettings()
		s.Tests.OperatorSkipPatterns = []string{"Disruptive"}
		return s, nil
	}

	err := RunTests(context.Background(), TestOptions{SkipPatterns: []string{"Flaky"}})
	require.NoError(t, err)
	require.Len(t, runner.runs, 1)
	assert.Equal(t, []string{"Flaky"}, runner.runs[0].SkipPatterns)
}

func TestRunTests_GinkgoInstallFailure(t *testing.T) {
	runner, _ := wireTests(t)
	ensureGinkgo = func(context.Context, string) (string, error) {
		return "", errors.New("go install failed")
	}

	err := RunTests(context.Background(), TestOptions{})
	require.Error(t, err)
	assert.Empty(t, runner.runs)
}

func TestRunTestsOnKind_DeploysThenRetries(t *testing.T) {
	runner, _ := wireTests(t)
	wireCluster(&fakeCluster{})

	dep := &fakeDepInstaller{}
	op := &fakeOperator{}
	wireDeploySeams(dep, op, &fakeLoader{}, &fakeBundleInstaller{})
	newNodeClient = func(string) nodeClient { return &fakeNodeClient{} }

	err := RunTestsOnKind(context.Background(), TestKindOptions{
		CNI: "default",
	})
	require.NoError(t, err)

	// The full deployment ran before the suite, and the suite always
	// runs in retry mode on a fresh cluster.
	assert.ElementsMatch(t, allDeps, dep.installed)
	require.Len(t, op.installs, 1)
	assert.Empty(t, runner.runs)
	assert.Len(t, runner.retries, 1)
}

func TestRunTestsOnKind_DeployFailureSkipsSuite(t *testing.T) {
	runner, _ := wireTests(t)
	wireCluster(&fakeCluster{createErr: errors.New("docker not running")})

	err := RunTestsOnKind(context.Background(), TestKindOptions{CNI: "default"})
	require.Error(t, err)
	assert.Empty(t, runner.runs)
	assert.Empty(t, runner.retries)
}
