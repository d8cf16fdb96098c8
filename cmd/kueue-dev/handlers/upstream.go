package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/kueue-contrib/kueue-dev/internal/config"
	"github.com/kueue-contrib/kueue-dev/internal/helm"
	"github.com/kueue-contrib/kueue-dev/internal/install"
)

// UpstreamOptions configures an upstream Kueue deployment from a local
// checkout.
type UpstreamOptions struct {
	SourceRoot string
	Overlay    string
	Image      string
	Namespace  string

	// Helm-only settings.
	Release    string
	ValuesFile string
	SetValues  []string
}

// helmDeployer is the release management surface of helm.Client.
type helmDeployer interface {
	InstallOrUpgrade(namespace, releaseName, chartPath string, values map[string]interface{}) error
	Uninstall(namespace, releaseName string) error
}

var newHelmClient = func(kubeconfig []byte) helmDeployer {
	return helm.NewClient(kubeconfig)
}

// resolveUpstreamSource picks the upstream checkout from the flag or the
// settings file and validates it.
func resolveUpstreamSource(opts *UpstreamOptions, settings *config.Settings) error {
	if opts.SourceRoot == "" {
		opts.SourceRoot = settings.Defaults.UpstreamSourcePath
	}
	if opts.SourceRoot == "" {
		return fmt.Errorf("no upstream source given, pass --source or set defaults.upstream_source_path")
	}
	return install.ValidateUpstreamSource(opts.SourceRoot)
}

// DeployUpstreamKustomize deploys upstream Kueue from a checkout with its
// kustomize overlays.
func DeployUpstreamKustomize(ctx context.Context, opts UpstreamOptions) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if err := resolveUpstreamSource(&opts, settings); err != nil {
		return err
	}

	operatorRoot, err := resolveSourceRoot("", settings)
	if err != nil {
		return err
	}
	kubeconfigPath, err := resolveKubeconfig(operatorRoot)
	if err != nil {
		return err
	}

	installer, err := newDepInstaller(kubeconfigPath)
	if err != nil {
		return err
	}

	// The upstream metrics tests scrape through the Prometheus Operator.
	if err := installer.Install(ctx, install.PrometheusOperator(settings.Versions)); err != nil {
		return err
	}

	return installer.DeployUpstreamKustomize(ctx, install.UpstreamOptions{
		SourceRoot: opts.SourceRoot,
		Overlay:    opts.Overlay,
		Image:      opts.Image,
		Namespace:  opts.Namespace,
	})
}

// DeployUpstreamHelm deploys upstream Kueue from the chart in a checkout.
func DeployUpstreamHelm(ctx context.Context, opts UpstreamOptions) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if err := resolveUpstreamSource(&opts, settings); err != nil {
		return err
	}
	if opts.Release == "" {
		opts.Release = install.DefaultUpstreamRelease
	}
	if opts.Namespace == "" {
		opts.Namespace = install.DefaultUpstreamNamespace
	}

	chartPath, err := install.UpstreamChartPath(opts.SourceRoot)
	if err != nil {
		return err
	}

	values, err := helm.BuildValues(opts.ValuesFile, opts.SetValues)
	if err != nil {
		return err
	}
	if opts.Image != "" {
		imageValues, err := helm.BuildValues("", []string{
			"controllerManager.manager.image.repository=" + imageRepository(opts.Image),
			"controllerManager.manager.image.tag=" + imageTag(opts.Image),
		})
		if err != nil {
			return err
		}
		for k, v := range imageValues {
			values[k] = v
		}
	}

	operatorRoot, err := resolveSourceRoot("", settings)
	if err != nil {
		return err
	}
	kubeconfigPath, err := resolveKubeconfig(operatorRoot)
	if err != nil {
		return err
	}
	kubeconfig, err := os.ReadFile(kubeconfigPath)
	if err != nil {
		return err
	}

	return newHelmClient(kubeconfig).InstallOrUpgrade(opts.Namespace, opts.Release, chartPath, values)
}

func imageRepository(image string) string {
	repo, _ := install.SplitImageRef(image)
	return repo
}

func imageTag(image string) string {
	_, tag := install.SplitImageRef(image)
	return tag
}
