// Package images stages the images under test onto a kind cluster's nodes so
// nothing depends on registry pulls mid-test.
package images

import (
	"context"
	"fmt"
	"log"

	"github.com/kueue-contrib/kueue-dev/internal/config"
	"github.com/kueue-contrib/kueue-dev/internal/container"
	"github.com/kueue-contrib/kueue-dev/internal/orchestration"
)

// Loader copies the configured images into a kind cluster.
type Loader struct {
	engine      *container.Engine
	clusterName string
}

// NewLoader returns a loader targeting the named cluster.
func NewLoader(engine *container.Engine, clusterName string) *Loader {
	return &Loader{engine: engine, clusterName: clusterName}
}

// LoadAll ensures each image is in local storage and loads it into the
// cluster. The bundle image is only pulled, never loaded: OLM pulls it from
// the registry itself.
func (l *Loader) LoadAll(ctx context.Context, set *config.ImageSet) error {
	operator, err := set.Operator()
	if err != nil {
		return err
	}
	operand, err := set.Operand()
	if err != nil {
		return err
	}
	mustGather, err := set.MustGather()
	if err != nil {
		return err
	}
	workload := set.Workload()

	for _, image := range []string{operator, operand, mustGather, workload} {
		log.Printf("[images] Loading %s into cluster %s...", image, l.clusterName)
		if err := l.engine.EnsureImage(ctx, image); err != nil {
			return err
		}
		if err := l.engine.LoadToKind(ctx, l.clusterName, image); err != nil {
			return err
		}
	}

	log.Printf("[images] All images loaded into cluster %s", l.clusterName)
	return nil
}

// LoadAllBackground starts LoadAll concurrently and returns a handle to join
// it once the dependency installs are done.
func (l *Loader) LoadAllBackground(ctx context.Context, set *config.ImageSet) *orchestration.Handle {
	return orchestration.Background(ctx, "image load", func(ctx context.Context) error {
		return l.LoadAll(ctx, set)
	})
}

// EnsureBundle makes sure the bundle image is pullable before operator-sdk
// needs it.
func (l *Loader) EnsureBundle(ctx context.Context, set *config.ImageSet) error {
	bundle, err := set.Bundle()
	if err != nil {
		return err
	}
	if err := l.engine.EnsureImage(ctx, bundle); err != nil {
		return fmt.Errorf("bundle image is not available: %w", err)
	}
	return nil
}
