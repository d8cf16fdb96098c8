// Package container abstracts over docker and podman so image operations
// work with whichever runtime is installed.
package container

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runtime identifies the container engine found on the host.
type Runtime string

// Supported runtimes, probed in order.
const (
	Docker Runtime = "docker"
	Podman Runtime = "podman"
)

// lookPath is a seam for tests.
var lookPath = exec.LookPath

// Detect probes for a container runtime, preferring docker.
func Detect() (Runtime, error) {
	if _, err := lookPath("docker"); err == nil {
		return Docker, nil
	}
	if _, err := lookPath("podman"); err == nil {
		return Podman, nil
	}
	return "", fmt.Errorf("no container runtime found: install docker or podman")
}

// Engine runs image operations against one runtime.
type Engine struct {
	runtime Runtime
	runner  Runner
}

// Runner executes container runtime processes. Replaced in tests.
type Runner interface {
	Run(ctx context.Context, env []string, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) (string, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s failed: %w\nOutput: %s", name, strings.Join(args, " "), err, output)
	}
	return nil
}

func (execCommandRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	output, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(output)), nil
}

// NewEngine returns an engine for the given runtime.
func NewEngine(runtime Runtime) *Engine {
	return &Engine{runtime: runtime, runner: execCommandRunner{}}
}

// NewEngineWithRunner wires a custom runner, used by tests.
func NewEngineWithRunner(runtime Runtime, runner Runner) *Engine {
	return &Engine{runtime: runtime, runner: runner}
}

// Runtime returns the engine's runtime.
func (e *Engine) Runtime() Runtime {
	return e.runtime
}

// ImageExists reports whether the image is present in local storage.
// "image inspect" works on both runtimes, unlike podman's "image exists".
func (e *Engine) ImageExists(ctx context.Context, image string) bool {
	err := e.runner.Run(ctx, nil, string(e.runtime), "image", "inspect", image)
	return err == nil
}

// Pull fetches an image from its registry.
func (e *Engine) Pull(ctx context.Context, image string) error {
	if err := e.runner.Run(ctx, nil, string(e.runtime), "pull", image); err != nil {
		return fmt.Errorf("failed to pull %s: %w", image, err)
	}
	return nil
}

// EnsureImage pulls the image only if it is not already present.
func (e *Engine) EnsureImage(ctx context.Context, image string) error {
	if e.ImageExists(ctx, image) {
		return nil
	}
	return e.Pull(ctx, image)
}

// Build builds an image from a Dockerfile.
func (e *Engine) Build(ctx context.Context, dockerfile, contextDir, tag string, buildArgs map[string]string) error {
	args := []string{"build", "-f", dockerfile, "-t", tag}
	for k, v := range buildArgs {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args, contextDir)
	if err := e.runner.Run(ctx, nil, string(e.runtime), args...); err != nil {
		return fmt.Errorf("failed to build %s: %w", tag, err)
	}
	return nil
}

// Push uploads an image to its registry.
func (e *Engine) Push(ctx context.Context, image string) error {
	if err := e.runner.Run(ctx, nil, string(e.runtime), "push", image); err != nil {
		return fmt.Errorf("failed to push %s: %w", image, err)
	}
	return nil
}

// LoadToKind copies an image from local storage into every node of a kind
// cluster. Podman needs the experimental provider flag so kind talks to the
// right socket.
func (e *Engine) LoadToKind(ctx context.Context, clusterName, image string) error {
	var env []string
	if e.runtime == Podman {
		env = append(env, "KIND_EXPERIMENTAL_PROVIDER=podman")
	}
	if err := e.runner.Run(ctx, env, "kind", "load", "docker-image", image, "--name", clusterName); err != nil {
		return fmt.Errorf("failed to load %s into cluster %s: %w", image, clusterName, err)
	}
	return nil
}

// KindEnv returns the environment additions kind invocations need for this
// runtime.
func (e *Engine) KindEnv() []string {
	if e.runtime == Podman {
		return []string{"KIND_EXPERIMENTAL_PROVIDER=podman"}
	}
	return nil
}
