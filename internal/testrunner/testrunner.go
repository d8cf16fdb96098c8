// Package testrunner executes the operator's ginkgo end-to-end suite,
// optionally in a fix-and-rerun loop for interactive debugging.
package testrunner

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kueue-contrib/kueue-dev/internal/ui"
)

const ginkgoModule = "github.com/onsi/ginkgo/v2/ginkgo@v2.1.4"

// Options configures one test run.
type Options struct {
	// SourceRoot is the operator checkout holding test/e2e and bin/.
	SourceRoot     string
	KubeconfigPath string
	Focus          string
	// LabelFilter defaults to "!disruptive" so runs on shared clusters skip
	// tests that tear infrastructure down.
	LabelFilter  string
	SkipPatterns []string
}

// Runner executes the built ginkgo binary. Replaced in tests.
type Runner interface {
	Run(ctx context.Context, bin, dir string, env []string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, bin, dir string, env []string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("e2e tests failed: %w", err)
	}
	return nil
}

// TestRunner runs the e2e suite.
type TestRunner struct {
	runner Runner
}

// NewTestRunner returns a runner backed by the real ginkgo binary.
func NewTestRunner() *TestRunner {
	return &TestRunner{runner: execRunner{}}
}

// NewTestRunnerWith wires a custom runner, used by tests.
func NewTestRunnerWith(runner Runner) *TestRunner {
	return &TestRunner{runner: runner}
}

// SkipPattern joins skip patterns into one alternation regex.
func SkipPattern(patterns []string) string {
	if len(patterns) == 0 {
		return ""
	}
	return "(" + strings.Join(patterns, "|") + ")"
}

// EnsureGinkgo returns the path to the project's ginkgo binary, installing it
// into bin/ when absent.
func EnsureGinkgo(ctx context.Context, sourceRoot string) (string, error) {
	binDir := filepath.Join(sourceRoot, "bin")
	ginkgoBin := filepath.Join(binDir, "ginkgo")

	if _, err := os.Stat(ginkgoBin); err == nil {
		log.Printf("[test] Using existing ginkgo at %s", ginkgoBin)
		return ginkgoBin, nil
	}

	log.Printf("[test] Installing ginkgo...")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create bin directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, "go", "install", "-mod=mod", ginkgoModule)
	cmd.Env = append(os.Environ(), "GOBIN="+binDir, "GO111MODULE=on")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to install ginkgo: %w", err)
	}

	if _, err := os.Stat(ginkgoBin); err != nil {
		return "", fmt.Errorf("ginkgo binary not found after installation")
	}
	return ginkgoBin, nil
}

// Args builds the ginkgo invocation for the options.
func Args(opts Options) []string {
	labelFilter := opts.LabelFilter
	if labelFilter == "" {
		labelFilter = "!disruptive"
	}

	args := []string{"--label-filter=" + labelFilter, "-v"}
	if skip := SkipPattern(opts.SkipPatterns); skip != "" {
		args = append(args, "--skip", skip)
	}
	if opts.Focus != "" {
		args = append(args, "--focus", opts.Focus)
	}
	return append(args, "./test/e2e/...")
}

// Run executes the suite once.
func (r *TestRunner) Run(ctx context.Context, ginkgoBin string, opts Options) error {
	log.Printf("[test] Running e2e tests...")
	var env []string
	if opts.KubeconfigPath != "" {
		env = append(env, "KUBECONFIG="+opts.KubeconfigPath)
	}
	if err := r.runner.Run(ctx, ginkgoBin, opts.SourceRoot, env, Args(opts)...); err != nil {
		return err
	}
	log.Printf("[test] E2E tests passed successfully")
	return nil
}

// RunWithRetry executes the suite until it passes. After a failure the
// operator gets a chance to fix code or cluster state before the rerun; the
// loop only ends on success, a declined rerun, or context cancellation.
func (r *TestRunner) RunWithRetry(ctx context.Context, ginkgoBin string, opts Options, prompter ui.Prompter) error {
	for attempt := 1; ; attempt++ {
		err := r.Run(ctx, ginkgoBin, opts)
		if err == nil {
			return nil
		}

		log.Printf("[test] Attempt %d failed: %v", attempt, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		promptErr := prompter.WaitForEnter("Tests failed. Fix the issue, then press Enter to rerun (Ctrl+C to stop)")
		if promptErr != nil {
			return fmt.Errorf("retry loop stopped: %w", err)
		}
	}
}
