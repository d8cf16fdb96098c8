package install

import (
	"context"
	"fmt"
	"log"
)

// Installer applies dependency targets and gates on their readiness.
type Installer struct {
	kubectl Applier
	poller  Poller
}

// NewInstaller wires an installer over the given kubectl and API surfaces.
func NewInstaller(kubectl Applier, poller Poller) *Installer {
	return &Installer{kubectl: kubectl, poller: poller}
}

// Install applies one target. When the marker namespace already exists the
// target is treated as installed and nothing is applied or waited on.
func (i *Installer) Install(ctx context.Context, t Target) error {
	log.Printf("[%s] Installing %s...", t.Name, t.Version)

	if t.MarkerNamespace != "" {
		exists, err := i.poller.NamespaceExists(ctx, t.MarkerNamespace)
		if err != nil {
			return fmt.Errorf("failed to check for existing %s install: %w", t.Name, err)
		}
		if exists {
			log.Printf("[%s] Namespace %s already exists, skipping installation", t.Name, t.MarkerNamespace)
			return nil
		}
	}

	if err := i.apply(ctx, t); err != nil {
		return fmt.Errorf("failed to apply %s manifests: %w", t.Name, err)
	}

	for _, r := range t.Readiness {
		if err := i.kubectl.WaitFor(ctx, r.Namespace, r.Target, r.Condition, r.Timeout); err != nil {
			if r.BestEffort {
				log.Printf("[%s] Warning: %s did not reach %s: %v", t.Name, r.Target, r.Condition, err)
				continue
			}
			return fmt.Errorf("%s readiness gate failed: %w", t.Name, err)
		}
	}

	log.Printf("[%s] Installed successfully", t.Name)
	return nil
}

func (i *Installer) apply(ctx context.Context, t Target) error {
	switch t.Mode {
	case ServerSide:
		return i.kubectl.ApplyFileServerSide(ctx, t.ManifestURL)
	case Kustomize:
		return i.kubectl.ApplyKustomize(ctx, t.KustomizeRef)
	default:
		return i.kubectl.ApplyFile(ctx, t.ManifestURL)
	}
}
