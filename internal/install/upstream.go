package install

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sigs.k8s.io/yaml"
)

// Upstream deployment defaults.
const (
	DefaultUpstreamOverlay   = "default"
	DefaultUpstreamRelease   = "kueue"
	DefaultUpstreamNamespace = "kueue-system"
)

// kueueCRDs must be established before the upstream controller can start.
var kueueCRDs = []string{
	"workloads.kueue.x-k8s.io",
	"clusterqueues.kueue.x-k8s.io",
	"localqueues.kueue.x-k8s.io",
	"resourceflavors.kueue.x-k8s.io",
	"admissionchecks.kueue.x-k8s.io",
}

// UpstreamOptions configures a kustomize deployment of upstream Kueue from a
// source checkout.
type UpstreamOptions struct {
	SourceRoot string
	Overlay    string
	// Image overrides the controller image in the overlay when non-empty.
	Image     string
	Namespace string
}

// ValidateUpstreamSource checks that the checkout carries a kustomize config
// or a helm chart.
func ValidateUpstreamSource(root string) error {
	kustomizePath := filepath.Join(root, "config", "default", "kustomization.yaml")
	chartPath := filepath.Join(root, "charts", "kueue", "Chart.yaml")

	_, kustomizeErr := os.Stat(kustomizePath)
	_, chartErr := os.Stat(chartPath)
	if kustomizeErr != nil && chartErr != nil {
		return fmt.Errorf("invalid upstream kueue source: neither kustomize config nor helm chart found at %s", root)
	}
	return nil
}

// UpstreamChartPath returns the helm chart directory inside the checkout.
func UpstreamChartPath(root string) (string, error) {
	path := filepath.Join(root, "charts", "kueue")
	if _, err := os.Stat(filepath.Join(path, "Chart.yaml")); err != nil {
		return "", fmt.Errorf("helm chart not found at: %s", path)
	}
	return path, nil
}

// DeployUpstreamKustomize applies the upstream kustomize overlay and waits
// for the controller. With an image override the config tree is copied to a
// temp directory and the overlay's kustomization is rewritten, leaving the
// checkout untouched.
func (i *Installer) DeployUpstreamKustomize(ctx context.Context, opts UpstreamOptions) error {
	log.Printf("[upstream] Deploying upstream kueue via kustomize...")
	log.Printf("[upstream] Source: %s overlay: %s", opts.SourceRoot, opts.Overlay)

	if err := ValidateUpstreamSource(opts.SourceRoot); err != nil {
		return err
	}

	overlayPath := filepath.Join(opts.SourceRoot, "config", opts.Overlay)
	if _, err := os.Stat(overlayPath); err != nil {
		return fmt.Errorf("kustomize overlay %q not found at: %s", opts.Overlay, overlayPath)
	}

	if opts.Image != "" {
		log.Printf("[upstream] Using image override: %s", opts.Image)
		tempDir, err := os.MkdirTemp("", "kueue-upstream-")
		if err != nil {
			return fmt.Errorf("failed to create temp directory: %w", err)
		}
		defer func() { _ = os.RemoveAll(tempDir) }()

		tempConfig := filepath.Join(tempDir, "config")
		if err := copyDir(filepath.Join(opts.SourceRoot, "config"), tempConfig); err != nil {
			return err
		}
		overlayPath = filepath.Join(tempConfig, opts.Overlay)
		if err := setControllerImage(filepath.Join(overlayPath, "kustomization.yaml"), opts.Image); err != nil {
			return err
		}
	}

	if err := i.kubectl.ApplyKustomize(ctx, overlayPath); err != nil {
		return fmt.Errorf("failed to apply upstream overlay: %w", err)
	}

	log.Printf("[upstream] Waiting for Kueue CRDs to be established...")
	for _, crd := range kueueCRDs {
		err := i.kubectl.WaitFor(ctx, "", "crd/"+crd, "condition=Established", 120*time.Second)
		if err != nil {
			return fmt.Errorf("CRD %s did not become established: %w", crd, err)
		}
	}

	log.Printf("[upstream] Waiting for kueue-controller-manager deployment...")
	err := i.kubectl.WaitFor(ctx, opts.Namespace, "deployment/kueue-controller-manager", "condition=Available", depTimeout)
	if err != nil {
		return fmt.Errorf("kueue-controller-manager deployment did not become available: %w", err)
	}

	log.Printf("[upstream] Upstream kueue deployed successfully via kustomize")
	return nil
}

// setControllerImage rewrites the overlay kustomization so the controller
// image points at the override.
func setControllerImage(kustomizationPath, image string) error {
	data, err := os.ReadFile(kustomizationPath)
	if err != nil {
		return fmt.Errorf("failed to read kustomization: %w", err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse kustomization: %w", err)
	}

	name, tag := SplitImageRef(image)
	doc["images"] = []map[string]string{
		{"name": "controller", "newName": name, "newTag": tag},
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to render kustomization: %w", err)
	}
	return os.WriteFile(kustomizationPath, out, 0o600)
}

// SplitImageRef splits an image reference into repository and tag. The tag
// separator is the last colon after the final slash, so registry ports are
// not mistaken for tags.
func SplitImageRef(image string) (name, tag string) {
	slash := strings.LastIndex(image, "/")
	colon := strings.LastIndex(image, ":")
	if colon > slash {
		return image[:colon], image[colon+1:]
	}
	return image, "latest"
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o600)
	})
}
