package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/kueue-contrib/kueue-dev/internal/config"
	"github.com/kueue-contrib/kueue-dev/internal/container"
	"github.com/kueue-contrib/kueue-dev/internal/install"
	"github.com/kueue-contrib/kueue-dev/internal/kind"
	"github.com/kueue-contrib/kueue-dev/internal/orchestration"
	"github.com/kueue-contrib/kueue-dev/internal/ui"
)

// DeployOptions configures a deployment onto an existing kind cluster.
type DeployOptions struct {
	ClusterName string
	ImagesFile  string
	SourceRoot  string

	// UseBundle installs through OLM with operator-sdk instead of applying
	// the deploy manifests directly.
	UseBundle bool

	// SkipKueueCR leaves the cluster with only the operator installed.
	SkipKueueCR bool
	Frameworks  []string
	Namespace   string
}

// DeployFullOptions additionally creates the cluster first.
type DeployFullOptions struct {
	DeployOptions
	CNI   string
	Force bool
}

// DeployKind deploys the operator and its dependencies onto an existing kind
// cluster. Image loading runs in the background while the dependency
// installers fan out; both must finish before the operator itself goes in.
func DeployKind(ctx context.Context, opts DeployOptions) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	opts.applyDefaults(settings)

	sourceRoot, err := resolveSourceRoot(opts.SourceRoot, settings)
	if err != nil {
		return err
	}

	cluster := newClusterManager(opts.ClusterName, kind.CNIDefault, nil, prompterFor(false))
	exists, err := cluster.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("cluster %q does not exist, run 'kueue-dev cluster create' or 'kueue-dev deploy kind-full' first", opts.ClusterName)
	}

	kubeconfigPath, err := resolveKubeconfig(sourceRoot)
	if err != nil {
		return err
	}

	images, err := resolveImageSet(opts.ImagesFile, sourceRoot)
	if err != nil {
		return err
	}

	runtime, err := detectRuntime()
	if err != nil {
		return err
	}

	return deploySequence(ctx, settings, opts, sourceRoot, kubeconfigPath, images, runtime)
}

// DeployKindFull creates the cluster, installs the CNI if needed, labels the
// worker nodes, and then runs the regular kind deployment.
func DeployKindFull(ctx context.Context, opts DeployFullOptions) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	opts.applyDefaults(settings)
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

	cluster := newClusterManager(opts.ClusterName, cni, kindEnvFor(runtime), prompterFor(opts.Force || !settings.Behavior.ConfirmDestructive))
	kubeconfigPath := kubeconfigPathFor(sourceRoot)
	if err := cluster.Create(ctx, kubeconfigPath); err != nil {
		return err
	}

	installer, err := newDepInstaller(kubeconfigPath)
	if err != nil {
		return err
	}
	if cni == kind.CNICalico {
		if err := installer.InstallCalico(ctx, settings.Versions.Calico); err != nil {
			return err
		}
	} else {
		if err := waitForClusterNodes(ctx, cluster); err != nil {
			return err
		}
	}

	if err := labelWorkerNodes(ctx, kubeconfigPath); err != nil {
		return err
	}

	images, err := resolveImageSet(opts.ImagesFile, sourceRoot)
	if err != nil {
		return err
	}
	return deploySequence(ctx, settings, opts.DeployOptions, sourceRoot, kubeconfigPath, images, runtime)
}

// deploySequence is the shared tail of both kind deployments: stage images in
// the background, fan out the dependency installers, then install the
// operator and optionally the Kueue CR.
func deploySequence(ctx context.Context, settings *config.Settings, opts DeployOptions, sourceRoot, kubeconfigPath string, images *config.ImageSet, runtime container.Runtime) error {
	fmt.Println(ui.Banner(fmt.Sprintf("Deploying Kueue operator to cluster %q", opts.ClusterName)))

	loader := newImageLoader(runtime, opts.ClusterName)

	var bg *orchestration.Handle
	if opts.UseBundle {
		// OLM pulls the bundle from the registry; only make sure it is
		// present locally so a broken reference fails early.
		if err := loader.EnsureBundle(ctx, images); err != nil {
			return err
		}
	} else {
		bg = loader.LoadAllBackground(ctx, images)
	}

	installer, err := newDepInstaller(kubeconfigPath)
	if err != nil {
		return err
	}

	v := settings.Versions
	tasks := []orchestration.Task{
		{Name: "cert-manager", Func: func(ctx context.Context) error { return installer.Install(ctx, install.CertManager(v)) }},
		{Name: "jobset", Func: func(ctx context.Context) error { return installer.Install(ctx, install.JobSet(v)) }},
		{Name: "leaderworkerset", Func: func(ctx context.Context) error { return installer.Install(ctx, install.LeaderWorkerSet(v)) }},
		{Name: "appwrapper", Func: func(ctx context.Context) error { return installer.Install(ctx, install.AppWrapper(v)) }},
		{Name: "training-operator", Func: func(ctx context.Context) error { return installer.Install(ctx, install.TrainingOperator(v)) }},
	}
	if err := runTasks(ctx, tasks); err != nil {
		return err
	}

	if bg != nil {
		if err := bg.Wait(); err != nil {
			return err
		}
	}

	operator, err := newOperatorInstaller(kubeconfigPath, sourceRoot)
	if err != nil {
		return err
	}
	if err := operator.InstallCRDs(ctx); err != nil {
		return err
	}

	var cr *config.KueueCR
	if !opts.SkipKueueCR {
		cr, err = config.NewKueueCR(settings, opts.Frameworks, opts.Namespace)
		if err != nil {
			return err
		}
	}

	if opts.UseBundle {
		return deployBundle(ctx, kubeconfigPath, images, operator, cr)
	}
	return operator.Install(ctx, images, cr)
}

// deployBundle installs the operator through OLM and then creates the Kueue
// CR the direct path would have created.
func deployBundle(ctx context.Context, kubeconfigPath string, images *config.ImageSet, operator operatorInstaller, cr *config.KueueCR) error {
	installer, err := newDepInstaller(kubeconfigPath)
	if err != nil {
		return err
	}
	if err := installer.InstallOLM(ctx); err != nil {
		return err
	}

	bundleImage, err := images.Bundle()
	if err != nil {
		return err
	}
	if err := newBundleInstaller(kubeconfigPath).Install(ctx, bundleImage); err != nil {
		return err
	}

	// OLM reports the CSV installed before the operator deployment is
	// necessarily serving; gate on it like the direct path does.
	if err := operator.WaitUntilReady(ctx); err != nil {
		return err
	}

	if cr == nil {
		log.Printf("[deploy] Skipping Kueue CR creation")
		return nil
	}
	return operator.CreateKueueCR(ctx, cr)
}

func (o *DeployOptions) applyDefaults(s *config.Settings) {
	if o.ClusterName == "" {
		o.ClusterName = s.Defaults.ClusterName
	}
	if o.ImagesFile == "" {
		o.ImagesFile = s.Defaults.ImagesFile
	}
}
