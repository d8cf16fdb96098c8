package install

import (
	"context"
	"fmt"
	"log"
	"time"
)

// calicoResources configures the Tigera operator once its CRDs are
// established. The pool CIDR matches the cluster's pod subnet.
const calicoResources = `apiVersion: operator.tigera.io/v1
kind: Installation
metadata:
  name: default
spec:
  calicoNetwork:
    ipPools:
    - blockSize: 26
      cidr: 10.244.0.0/16
      encapsulation: VXLANCrossSubnet
      natOutgoing: Enabled
      nodeSelector: all()
---
apiVersion: operator.tigera.io/v1
kind: APIServer
metadata:
  name: default
spec: {}
`

// InstallCalico installs the Calico CNI via the Tigera operator and blocks
// until every node reports Ready. On a cluster created with the default CNI
// disabled, nothing schedules until this completes.
func (i *Installer) InstallCalico(ctx context.Context, version string) error {
	log.Printf("[calico] Installing Calico CNI %s...", version)

	operatorURL := fmt.Sprintf("https://raw.githubusercontent.com/projectcalico/calico/%s/manifests/tigera-operator.yaml", version)

	// kubectl create, not apply: the operator bundle's CRDs are too large
	// for the last-applied annotation.
	if err := i.kubectl.CreateFile(ctx, operatorURL); err != nil {
		return fmt.Errorf("failed to install Calico operator: %w", err)
	}

	log.Printf("[calico] Waiting for Calico CRDs to be established...")
	for _, crd := range []string{"crd/installations.operator.tigera.io", "crd/apiservers.operator.tigera.io"} {
		if err := i.kubectl.WaitFor(ctx, "", crd, "condition=established", 60*time.Second); err != nil {
			return fmt.Errorf("calico CRD was not established: %w", err)
		}
	}

	log.Printf("[calico] Applying Calico custom resources...")
	if err := i.kubectl.Apply(ctx, []byte(calicoResources)); err != nil {
		return fmt.Errorf("failed to apply Calico custom resources: %w", err)
	}

	log.Printf("[calico] Waiting for Calico pods to be ready...")
	podGates := []Readiness{
		{Namespace: "tigera-operator", Target: "pod", Condition: "condition=ready", Timeout: depTimeout, BestEffort: true},
		{Namespace: "calico-apiserver", Target: "pod", Condition: "condition=ready", Timeout: 60 * time.Second, BestEffort: true},
	}
	for _, r := range podGates {
		if err := i.kubectl.WaitFor(ctx, r.Namespace, r.Target, r.Condition, r.Timeout); err != nil {
			log.Printf("[calico] Warning: pods in %s not ready: %v", r.Namespace, err)
		}
	}

	// The node agents are the part the rest of the bring-up actually
	// depends on, so they get a hard wait through the API.
	if err := i.poller.WaitForPodsReady(ctx, "calico-system", "k8s-app=calico-node", depTimeout); err != nil {
		return fmt.Errorf("calico node agents did not become ready: %w", err)
	}

	log.Printf("[calico] Waiting for all nodes to be ready...")
	if err := i.poller.WaitForNodesReady(ctx, 180*time.Second); err != nil {
		return fmt.Errorf("nodes did not become ready: %w", err)
	}

	log.Printf("[calico] Calico CNI installed successfully")
	return nil
}
