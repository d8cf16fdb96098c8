// Package kubectl shells out to the kubectl binary for manifest application
// and resource queries. CRD-heavy manifests go through server-side apply
// because client-side apply stores the full object in an annotation and large
// CRDs overflow the annotation size limit.
package kubectl

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kueue-contrib/kueue-dev/internal/k8s"
)

// Runner executes kubectl processes. The exec-backed implementation is
// swapped out for a recorder in tests.
type Runner interface {
	Run(ctx context.Context, args ...string) error
	Output(ctx context.Context, args ...string) (string, error)
	RunStdin(ctx context.Context, stdin []byte, args ...string) error
}

type execRunner struct {
	kubeconfigPath string
}

func (r *execRunner) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "kubectl", args...)
	cmd.Env = os.Environ()
	if r.kubeconfigPath != "" {
		cmd.Env = append(cmd.Env, "KUBECONFIG="+r.kubeconfigPath)
	}
	return cmd
}

func (r *execRunner) Run(ctx context.Context, args ...string) error {
	cmd := r.command(ctx, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("kubectl %s failed: %w\nOutput: %s", strings.Join(args, " "), err, output)
	}
	return nil
}

func (r *execRunner) Output(ctx context.Context, args ...string) (string, error) {
	cmd := r.command(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stderr.String(), fmt.Errorf("kubectl %s failed: %w\nOutput: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

func (r *execRunner) RunStdin(ctx context.Context, stdin []byte, args ...string) error {
	cmd := r.command(ctx, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("kubectl %s failed: %w\nOutput: %s", strings.Join(args, " "), err, output)
	}
	return nil
}

// Client issues kubectl operations against one cluster.
type Client struct {
	runner Runner
}

// NewClient creates a client whose kubectl invocations target the given
// kubeconfig. An empty path leaves resolution to kubectl's own defaults.
func NewClient(kubeconfigPath string) *Client {
	return &Client{runner: &execRunner{kubeconfigPath: kubeconfigPath}}
}

// NewClientWithRunner wires a custom runner, used by tests.
func NewClientWithRunner(runner Runner) *Client {
	return &Client{runner: runner}
}

// Apply pipes a manifest through kubectl apply.
func (c *Client) Apply(ctx context.Context, manifest []byte) error {
	return c.runner.RunStdin(ctx, manifest, "apply", "-f", "-")
}

// ApplyServerSide applies a manifest with server-side apply, forcing
// conflicts so repeated installs converge on the same owner.
func (c *Client) ApplyServerSide(ctx context.Context, manifest []byte) error {
	return c.runner.RunStdin(ctx, manifest, "apply", "--server-side", "--force-conflicts", "-f", "-")
}

// Create pipes a manifest through kubectl create. Unlike apply it fails when
// the object already exists, which the conflict-retry path relies on.
func (c *Client) Create(ctx context.Context, manifest []byte) error {
	return c.runner.RunStdin(ctx, manifest, "create", "-f", "-")
}

// CreateFile creates the objects from a manifest path or URL without apply's
// last-applied annotation, which oversized CRD bundles would overflow.
func (c *Client) CreateFile(ctx context.Context, path string) error {
	return c.runner.Run(ctx, "create", "-f", path)
}

// ApplyFile applies a manifest from a local path or URL.
func (c *Client) ApplyFile(ctx context.Context, path string) error {
	return c.runner.Run(ctx, "apply", "-f", path)
}

// ApplyFileServerSide applies a manifest path or URL with server-side apply.
func (c *Client) ApplyFileServerSide(ctx context.Context, path string) error {
	return c.runner.Run(ctx, "apply", "--server-side", "--force-conflicts", "-f", path)
}

// ApplyKustomize applies a kustomize target (local dir or remote ref) with
// server-side apply.
func (c *Client) ApplyKustomize(ctx context.Context, ref string) error {
	return c.runner.Run(ctx, "apply", "--server-side", "--force-conflicts", "-k", ref)
}

// Get fetches a single resource. A missing object is reported as
// (found=false, err=nil) so callers can branch on existence without string
// matching.
func (c *Client) Get(ctx context.Context, namespace, resource, name string) (found bool, err error) {
	args := []string{"get", resource, name}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	output, runErr := c.runner.Output(ctx, args...)
	if runErr != nil {
		if strings.Contains(output, "NotFound") || strings.Contains(runErr.Error(), "NotFound") {
			return false, nil
		}
		return false, runErr
	}
	return true, nil
}

// GetOutput fetches a resource with a custom output format, such as
// -o jsonpath expressions.
func (c *Client) GetOutput(ctx context.Context, args ...string) (string, error) {
	return c.runner.Output(ctx, append([]string{"get"}, args...)...)
}

// WaitFor blocks until the condition holds on the target. A target with no
// slash ("deployment") waits on all objects of that kind in the namespace. A
// kubectl wait deadline surfaces as *k8s.TimeoutError.
func (c *Client) WaitFor(ctx context.Context, namespace, target, condition string, timeout time.Duration) error {
	args := []string{"wait", target, "--for", condition, "--timeout", timeout.String()}
	if !strings.Contains(target, "/") {
		args = append(args, "--all")
	}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	err := c.runner.Run(ctx, args...)
	if err != nil && strings.Contains(err.Error(), "timed out waiting") {
		return &k8s.TimeoutError{
			Budget:  timeout,
			Message: fmt.Sprintf("%s in %s never reached %s", target, namespace, condition),
		}
	}
	return err
}

// Delete removes a resource. Missing objects are tolerated so cleanup stays
// idempotent.
func (c *Client) Delete(ctx context.Context, namespace, resource, name string) error {
	args := []string{"delete", resource, name, "--ignore-not-found"}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	return c.runner.Run(ctx, args...)
}

// Label sets a label on a resource, overwriting any existing value.
func (c *Client) Label(ctx context.Context, resource, name, label string) error {
	return c.runner.Run(ctx, "label", "--overwrite", resource, name, label)
}

// Patch applies a merge patch to a resource.
func (c *Client) Patch(ctx context.Context, namespace, resource, name, patch string) error {
	args := []string{"patch", resource, name, "--type", "merge", "-p", patch}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	return c.runner.Run(ctx, args...)
}
