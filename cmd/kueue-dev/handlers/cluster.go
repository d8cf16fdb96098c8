package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kueue-contrib/kueue-dev/internal/kind"
)

// ClusterOptions configures kind cluster lifecycle commands.
type ClusterOptions struct {
	Name       string
	CNI        string
	SourceRoot string
	Force      bool
}

var listClusters = kind.List

// CreateCluster creates a kind cluster and exports its kubeconfig next to
// the operator source.
func CreateCluster(ctx context.Context, opts ClusterOptions) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if opts.Name == "" {
		opts.Name = settings.Defaults.ClusterName
	}
	if opts.CNI == "" {
		opts.CNI = settings.Defaults.CNIProvider
	}
	cni, err := kind.ParseCNIProvider(opts.CNI)
	if err != nil {
		return err
	}

	sourceRoot, err := resolveSourceRoot(opts.SourceRoot, settings)
	if err != nil {
		return err
	}

	runtime, err := detectRuntime()
	if err != nil {
		return err
	}

	cluster := newClusterManager(opts.Name, cni, kindEnvFor(runtime), prompterFor(opts.Force || !settings.Behavior.ConfirmDestructive))
	kubeconfigPath := kubeconfigPathFor(sourceRoot)
	if err := cluster.Create(ctx, kubeconfigPath); err != nil {
		return err
	}

	if cni == kind.CNICalico {
		installer, err := newDepInstaller(kubeconfigPath)
		if err != nil {
			return err
		}
		if err := installer.InstallCalico(ctx, settings.Versions.Calico); err != nil {
			return err
		}
	} else {
		// The calico installer waits for node readiness itself; with the
		// default CNI the nodes only become Ready once kindnet is up.
		if err := waitForClusterNodes(ctx, cluster); err != nil {
			return err
		}
	}

	if err := labelWorkerNodes(ctx, kubeconfigPath); err != nil {
		return err
	}
	log.Printf("[cluster] Cluster %s ready, kubeconfig at %s", opts.Name, kubeconfigPath)
	return nil
}

const nodeReadyTimeout = 120 * time.Second

// waitForClusterNodes blocks until every node reports Ready, using the
// kubeconfig the cluster itself exports.
func waitForClusterNodes(ctx context.Context, cluster clusterManager) error {
	kubeconfig, err := cluster.Kubeconfig(ctx)
	if err != nil {
		return err
	}
	poller, err := newNodePoller(kubeconfig)
	if err != nil {
		return err
	}
	return poller.WaitForNodesReady(ctx, nodeReadyTimeout)
}

// DeleteCluster tears down a kind cluster after confirmation.
func DeleteCluster(ctx context.Context, opts ClusterOptions) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if opts.Name == "" {
		opts.Name = settings.Defaults.ClusterName
	}

	prompter := prompterFor(opts.Force || !settings.Behavior.ConfirmDestructive)
	approved, err := prompter.Confirm(fmt.Sprintf("Delete cluster %q?", opts.Name))
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("aborted deletion of cluster %q", opts.Name)
	}

	cluster := newClusterManager(opts.Name, kind.CNIDefault, nil, prompter)
	return cluster.Delete(ctx)
}

// ListClusters prints the kind clusters visible to the current runtime.
func ListClusters(ctx context.Context) error {
	names, err := listClusters(ctx, nil)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No kind clusters found")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
