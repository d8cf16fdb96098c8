package handlers

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kueue-contrib/kueue-dev/internal/config"
	"github.com/kueue-contrib/kueue-dev/internal/container"
	"github.com/kueue-contrib/kueue-dev/internal/orchestration"
)

// BuildOptions configures image builds from the operator source.
type BuildOptions struct {
	Components []string
	ImagesFile string
	SourceRoot string
	Parallel   bool
	Push       bool
}

// imageBuilder is the build and push surface of container.Engine.
type imageBuilder interface {
	Build(ctx context.Context, dockerfile, contextDir, tag string, buildArgs map[string]string) error
	Push(ctx context.Context, image string) error
}

var newImageBuilder = func(runtime container.Runtime) imageBuilder {
	return container.NewEngine(runtime)
}

// buildableComponents maps each component to its dockerfile, relative to the
// source root.
var buildableComponents = map[string]string{
	config.ImageOperator:   "Dockerfile",
	config.ImageOperand:    "Dockerfile.kueue",
	config.ImageMustGather: "must-gather/Dockerfile",
	config.ImageBundle:     "bundle.developer.Dockerfile",
}

// Build builds the requested component images, optionally in parallel, and
// pushes them when asked. With no components given, everything buildable is
// built.
func Build(ctx context.Context, opts BuildOptions) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if opts.ImagesFile == "" {
		opts.ImagesFile = settings.Defaults.ImagesFile
	}

	sourceRoot, err := resolveSourceRoot(opts.SourceRoot, settings)
	if err != nil {
		return err
	}
	images, err := resolveImageSet(opts.ImagesFile, sourceRoot)
	if err != nil {
		return err
	}

	components := opts.Components
	if len(components) == 0 {
		components = []string{config.ImageOperator, config.ImageOperand, config.ImageMustGather, config.ImageBundle}
	}
	for _, c := range components {
		if _, ok := buildableComponents[c]; !ok {
			return fmt.Errorf("unknown component %q", c)
		}
	}

	runtime, err := detectRuntime()
	if err != nil {
		return err
	}
	builder := newImageBuilder(runtime)

	tasks := make([]orchestration.Task, 0, len(components))
	for _, component := range components {
		component := component
		tasks = append(tasks, orchestration.Task{
			Name: component,
			Func: func(ctx context.Context) error {
				return buildComponent(ctx, builder, images, component, sourceRoot, opts)
			},
		})
	}

	if opts.Parallel {
		return runTasks(ctx, tasks)
	}
	for _, task := range tasks {
		if err := task.Func(ctx); err != nil {
			return fmt.Errorf("build %s: %w", task.Name, err)
		}
	}
	return nil
}

func buildComponent(ctx context.Context, builder imageBuilder, images *config.ImageSet, component, sourceRoot string, opts BuildOptions) error {
	tag, err := images.Get(component)
	if err != nil {
		return err
	}

	var buildArgs map[string]string
	if component == config.ImageBundle {
		// The bundle build bakes in the images file it should resolve
		// related images from.
		buildArgs = map[string]string{
			"RELATED_IMAGE_FILE": filepath.Base(opts.ImagesFile),
		}
	}

	dockerfile := filepath.Join(sourceRoot, buildableComponents[component])
	if err := builder.Build(ctx, dockerfile, sourceRoot, tag, buildArgs); err != nil {
		return err
	}
	if opts.Push {
		return builder.Push(ctx, tag)
	}
	return nil
}
