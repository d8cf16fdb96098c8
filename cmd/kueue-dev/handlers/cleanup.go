package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kueue-contrib/kueue-dev/internal/kubectl"
)

// kueueClusterResources are the cluster-scoped Kueue kinds that accumulate
// between test runs. Order matters: workloads reference queues which
// reference flavors.
var kueueClusterResources = []string{
	"workloadpriorityclass",
	"clusterqueue",
	"resourceflavor",
	"cohort",
	"admissioncheck",
}

// testNamespacePrefixes identify namespaces created by the e2e suites.
var testNamespacePrefixes = []string{
	"e2e-", "sts-e2e-", "deployment-e2e-", "lws-e2e-", "pod-e2e-", "jobset-e2e-",
}

// stripFinalizersPatch clears finalizers so deletion cannot hang on a
// controller that is already gone.
const stripFinalizersPatch = `{"metadata":{"finalizers":[]}}`

// cleanupClient is the kubectl surface cleanup needs.
type cleanupClient interface {
	GetOutput(ctx context.Context, args ...string) (string, error)
	Patch(ctx context.Context, namespace, resource, name, patch string) error
	Delete(ctx context.Context, namespace, resource, name string) error
}

var newCleanupClient = func(kubeconfigPath string) cleanupClient {
	return kubectl.NewClient(kubeconfigPath)
}

// CleanupOptions configures test artifact removal.
type CleanupOptions struct {
	SourceRoot string
	Force      bool
}

// Cleanup removes Kueue resources and namespaces left behind by e2e runs.
// Every failure is reported but none stops the sweep.
func Cleanup(ctx context.Context, opts CleanupOptions) error {
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

	prompter := prompterFor(opts.Force || !settings.Behavior.ConfirmDestructive)
	approved, err := prompter.Confirm("Remove all Kueue test resources from the cluster?")
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("cleanup aborted")
	}

	kc := newCleanupClient(kubeconfigPath)

	var failures []string
	record := func(what string, err error) {
		log.Printf("[cleanup] %s: %v", what, err)
		failures = append(failures, fmt.Sprintf("%s: %v", what, err))
	}

	for _, resource := range kueueClusterResources {
		names, err := listNames(ctx, kc, resource)
		if err != nil {
			record("list "+resource, err)
			continue
		}
		for _, name := range names {
			if err := kc.Patch(ctx, "", resource, name, stripFinalizersPatch); err != nil {
				record(fmt.Sprintf("strip finalizers %s/%s", resource, name), err)
			}
			if err := kc.Delete(ctx, "", resource, name); err != nil {
				record(fmt.Sprintf("delete %s/%s", resource, name), err)
			}
		}
	}

	names, err := listNames(ctx, kc, "priorityclass")
	if err != nil {
		record("list priorityclass", err)
	}
	for _, name := range names {
		if strings.HasPrefix(name, "system-") {
			continue
		}
		if err := kc.Delete(ctx, "", "priorityclass", name); err != nil {
			record("delete priorityclass/"+name, err)
		}
	}

	namespaces, err := listNames(ctx, kc, "namespace")
	if err != nil {
		record("list namespaces", err)
	}
	for _, ns := range namespaces {
		if !isTestNamespace(ns) {
			continue
		}
		if err := kc.Delete(ctx, "", "namespace", ns); err != nil {
			record("delete namespace/"+ns, err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("cleanup finished with %d failure(s):\n\t%s", len(failures), strings.Join(failures, "\n\t"))
	}
	log.Printf("[cleanup] Done")
	return nil
}

func listNames(ctx context.Context, kc cleanupClient, resource string) ([]string, error) {
	out, err := kc.GetOutput(ctx, resource, "-o", "jsonpath={.items[*].metadata.name}")
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}

func isTestNamespace(name string) bool {
	for _, prefix := range testNamespacePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
