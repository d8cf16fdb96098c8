// Package kind manages the lifecycle of local kind clusters with the node
// topology the end-to-end suites expect.
package kind

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/template"

	"github.com/kueue-contrib/kueue-dev/internal/ui"
)

// CNIProvider selects the cluster's network plugin.
type CNIProvider string

// Supported CNI providers. The default provider keeps kindnet; calico
// disables it so the Tigera operator can take over.
const (
	CNICalico  CNIProvider = "calico"
	CNIDefault CNIProvider = "default"
)

// ParseCNIProvider validates a provider name.
func ParseCNIProvider(s string) (CNIProvider, error) {
	switch CNIProvider(s) {
	case CNICalico, CNIDefault:
		return CNIProvider(s), nil
	}
	return "", fmt.Errorf("unknown CNI provider: %s (expected calico or default)", s)
}

// clusterConfigTemplate pins two control-plane and two worker nodes so
// multi-node scheduling behavior is exercised, with the pod and service
// CIDRs calico's Installation resource references.
const clusterConfigTemplate = `kind: Cluster
apiVersion: kind.x-k8s.io/v1alpha4
networking:
{{- if .DisableDefaultCNI }}
  disableDefaultCNI: true
{{- end }}
  podSubnet: "10.244.0.0/16"
  serviceSubnet: "10.96.0.0/16"
nodes:
  - role: control-plane
  - role: control-plane
  - role: worker
  - role: worker
`

// Runner executes kind processes. Replaced in tests.
type Runner interface {
	Run(ctx context.Context, env []string, stdin []byte, args ...string) error
	Output(ctx context.Context, env []string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, env []string, stdin []byte, args ...string) error {
	cmd := exec.CommandContext(ctx, "kind", args...)
	cmd.Env = append(os.Environ(), env...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("kind %s failed: %w", strings.Join(args, " "), err)
	}
	return nil
}

func (execRunner) Output(ctx context.Context, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "kind", args...)
	cmd.Env = append(os.Environ(), env...)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("kind %s failed: %w", strings.Join(args, " "), err)
	}
	return string(output), nil
}

// Cluster manages one named kind cluster. Forced recreation is expressed
// through the prompter: ui.AutoApprove answers every confirmation yes.
type Cluster struct {
	Name string
	CNI  CNIProvider

	env      []string
	runner   Runner
	prompter ui.Prompter
}

// NewCluster returns a manager for the named cluster. env carries runtime
// specific additions such as the podman provider flag.
func NewCluster(name string, cni CNIProvider, env []string, prompter ui.Prompter) *Cluster {
	return &Cluster{
		Name:     name,
		CNI:      cni,
		env:      env,
		runner:   execRunner{},
		prompter: prompter,
	}
}

// NewClusterWithRunner wires a custom runner, used by tests.
func NewClusterWithRunner(name string, cni CNIProvider, runner Runner, prompter ui.Prompter) *Cluster {
	return &Cluster{Name: name, CNI: cni, runner: runner, prompter: prompter}
}

// Exists reports whether the cluster is already present.
func (c *Cluster) Exists(ctx context.Context) (bool, error) {
	output, err := c.runner.Output(ctx, c.env, "get", "clusters")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == c.Name {
			return true, nil
		}
	}
	return false, nil
}

// List returns the names of all kind clusters on the host.
func List(ctx context.Context, env []string) ([]string, error) {
	output, err := execRunner{}.Output(ctx, env, "get", "clusters")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(output, "\n") {
		if name := strings.TrimSpace(line); name != "" && name != "No kind clusters found." {
			names = append(names, name)
		}
	}
	return names, nil
}

// RenderConfig produces the cluster config manifest for the chosen CNI.
func (c *Cluster) RenderConfig() ([]byte, error) {
	tmpl, err := template.New("cluster").Parse(clusterConfigTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cluster config template: %w", err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct{ DisableDefaultCNI bool }{DisableDefaultCNI: c.CNI == CNICalico})
	if err != nil {
		return nil, fmt.Errorf("failed to render cluster config: %w", err)
	}
	return buf.Bytes(), nil
}

// Create provisions the cluster. An existing cluster with the same name is
// deleted first, after the prompter confirms. When kubeconfigPath is
// non-empty the cluster's kubeconfig is exported there.
func (c *Cluster) Create(ctx context.Context, kubeconfigPath string) error {
	exists, err := c.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		ok, err := c.prompter.Confirm(fmt.Sprintf("Cluster %q already exists. Delete and recreate it?", c.Name))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("cluster %s already exists", c.Name)
		}
		if err := c.Delete(ctx); err != nil {
			return err
		}
	}

	config, err := c.RenderConfig()
	if err != nil {
		return err
	}

	args := []string{"create", "cluster", "--name", c.Name, "--config", "-"}
	if kubeconfigPath != "" {
		args = append(args, "--kubeconfig", kubeconfigPath)
	}
	if err := c.runner.Run(ctx, c.env, config, args...); err != nil {
		return fmt.Errorf("failed to create cluster %s: %w", c.Name, err)
	}
	return nil
}

// Delete removes the cluster. Deleting a missing cluster is not an error.
func (c *Cluster) Delete(ctx context.Context) error {
	if err := c.runner.Run(ctx, c.env, nil, "delete", "cluster", "--name", c.Name); err != nil {
		return fmt.Errorf("failed to delete cluster %s: %w", c.Name, err)
	}
	return nil
}

// Kubeconfig returns the cluster's kubeconfig contents.
func (c *Cluster) Kubeconfig(ctx context.Context) ([]byte, error) {
	output, err := c.runner.Output(ctx, c.env, "get", "kubeconfig", "--name", c.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig for %s: %w", c.Name, err)
	}
	return []byte(output), nil
}
