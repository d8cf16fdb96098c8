package handlers

import (
	"context"
	"log"
	"sort"
	"strings"
)

const controlPlaneLabel = "node-role.kubernetes.io/control-plane"

// labelWorkerNodes marks worker nodes with instance types so capacity tests
// can schedule against them. The first worker, in sorted name order, is
// labeled on-demand and the rest spot.
func labelWorkerNodes(ctx context.Context, kubeconfigPath string) error {
	kc := newNodeClient(kubeconfigPath)

	all, err := kc.GetOutput(ctx, "nodes", "-o", "jsonpath={.items[*].metadata.name}")
	if err != nil {
		return err
	}
	controlPlane, err := kc.GetOutput(ctx, "nodes", "-l", controlPlaneLabel, "-o", "jsonpath={.items[*].metadata.name}")
	if err != nil {
		return err
	}

	excluded := make(map[string]bool)
	for _, name := range strings.Fields(controlPlane) {
		excluded[name] = true
	}

	var workers []string
	for _, name := range strings.Fields(all) {
		if !excluded[name] {
			workers = append(workers, name)
		}
	}
	sort.Strings(workers)

	for i, name := range workers {
		instanceType := "spot"
		if i == 0 {
			instanceType = "on-demand"
		}
		if err := kc.Label(ctx, "node", name, "instance-type="+instanceType); err != nil {
			return err
		}
		log.Printf("[nodes] Labeled %s as %s", name, instanceType)
	}
	return nil
}
