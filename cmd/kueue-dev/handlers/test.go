package handlers

import (
	"context"

	"github.com/kueue-contrib/kueue-dev/internal/config"
	"github.com/kueue-contrib/kueue-dev/internal/testrunner"
	"github.com/kueue-contrib/kueue-dev/internal/ui"
)

// TestOptions configures an e2e test run.
type TestOptions struct {
	SourceRoot   string
	Focus        string
	LabelFilter  string
	SkipPatterns []string

	// Retry reruns the suite after a failure until it passes or the user
	// gives up. Failures on shared test clusters are often transient, so
	// the cluster is kept for inspection between runs.
	Retry bool
}

// TestKindOptions provisions a fresh cluster before running the suite.
type TestKindOptions struct {
	TestOptions
	ClusterName string
	CNI         string
	ImagesFile  string
	Force       bool
	UseBundle   bool
}

// suiteRunner is the execution surface of testrunner.TestRunner.
type suiteRunner interface {
	Run(ctx context.Context, ginkgoBin string, opts testrunner.Options) error
	RunWithRetry(ctx context.Context, ginkgoBin string, opts testrunner.Options, prompter ui.Prompter) error
}

var (
	newSuiteRunner = func() suiteRunner { return testrunner.NewTestRunner() }
	ensureGinkgo   = testrunner.EnsureGinkgo
)

// RunTests runs the operator e2e suite against the current cluster.
func RunTests(ctx context.Context, opts TestOptions) error {
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
	return runSuite(ctx, settings, opts, sourceRoot, kubeconfigPath)
}

// RunTestsOnKind provisions a kind cluster, deploys everything, and runs the
// suite with retry.
func RunTestsOnKind(ctx context.Context, opts TestKindOptions) error {
	err := DeployKindFull(ctx, DeployFullOptions{
		DeployOptions: DeployOptions{
			ClusterName: opts.ClusterName,
			ImagesFile:  opts.ImagesFile,
			SourceRoot:  opts.SourceRoot,
			UseBundle:   opts.UseBundle,
		},
		CNI:   opts.CNI,
		Force: opts.Force,
	})
	if err != nil {
		return err
	}

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

	opts.Retry = true
	return runSuite(ctx, settings, opts.TestOptions, sourceRoot, kubeconfigPath)
}

func runSuite(ctx context.Context, settings *config.Settings, opts TestOptions, sourceRoot, kubeconfigPath string) error {
	ginkgoBin, err := ensureGinkgo(ctx, sourceRoot)
	if err != nil {
		return err
	}

	skip := opts.SkipPatterns
	if len(skip) == 0 {
		skip = settings.Tests.OperatorSkipPatterns
	}
	runOpts := testrunner.Options{
		SourceRoot:     sourceRoot,
		KubeconfigPath: kubeconfigPath,
		Focus:          opts.Focus,
		LabelFilter:    opts.LabelFilter,
		SkipPatterns:   skip,
	}

	runner := newSuiteRunner()
	if opts.Retry {
		return runner.RunWithRetry(ctx, ginkgoBin, runOpts, prompterFor(false))
	}
	return runner.Run(ctx, ginkgoBin, runOpts)
}
