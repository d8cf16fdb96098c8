// Package install provisions the operator's dependency stack on a cluster.
// Every installer is idempotent: once a dependency's marker namespace exists
// the install is skipped entirely.
package install

import (
	"context"
	"time"
)

// ApplyMode selects how a target's manifests reach the cluster.
type ApplyMode int

// Apply modes. ServerSide is required for manifests whose CRDs exceed the
// last-applied annotation size limit.
const (
	ClientSide ApplyMode = iota
	ServerSide
	Kustomize
)

// Readiness is one gate checked after a target's manifests are applied.
type Readiness struct {
	Namespace string
	Target    string
	Condition string
	Timeout   time.Duration
	// BestEffort downgrades a failed gate to a warning. Used for pods that
	// may not exist in every topology.
	BestEffort bool
}

// Target describes one installable dependency.
type Target struct {
	Name    string
	Version string

	// MarkerNamespace short-circuits the install when present. Empty means
	// the target has no cheap existence probe and is always applied.
	MarkerNamespace string

	// ManifestURL is applied for ClientSide and ServerSide modes;
	// KustomizeRef for Kustomize mode.
	ManifestURL  string
	KustomizeRef string
	Mode         ApplyMode

	Readiness []Readiness
}

// Applier is the kubectl surface installers drive.
type Applier interface {
	Apply(ctx context.Context, manifest []byte) error
	ApplyServerSide(ctx context.Context, manifest []byte) error
	ApplyFile(ctx context.Context, path string) error
	ApplyFileServerSide(ctx context.Context, path string) error
	ApplyKustomize(ctx context.Context, ref string) error
	CreateFile(ctx context.Context, path string) error
	Get(ctx context.Context, namespace, resource, name string) (bool, error)
	WaitFor(ctx context.Context, namespace, target, condition string, timeout time.Duration) error
	Delete(ctx context.Context, namespace, resource, name string) error
}

// Poller is the API-backed readiness surface installers gate on.
type Poller interface {
	NamespaceExists(ctx context.Context, name string) (bool, error)
	DeploymentExists(ctx context.Context, namespace, name string) (bool, error)
	WaitForDeploymentAvailable(ctx context.Context, namespace, name string, timeout time.Duration) error
	WaitForDeploymentExists(ctx context.Context, namespace, name string, timeout time.Duration) error
	WaitForPodsReady(ctx context.Context, namespace, labelSelector string, timeout time.Duration) error
	WaitForNodesReady(ctx context.Context, timeout time.Duration) error
}
