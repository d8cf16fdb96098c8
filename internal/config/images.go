package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Image component names used throughout the tool.
const (
	ImageOperator   = "operator"
	ImageOperand    = "operand"
	ImageMustGather = "must-gather"
	ImageBundle     = "bundle"
	ImageWorkload   = "workload"
)

// DefaultWorkloadImage is used by test workloads (Jobs, Pods) when the
// CONTAINER_IMAGE environment variable is not set.
const DefaultWorkloadImage = "quay.io/openshift/origin-cli:latest"

type relatedImage struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// ImageSet maps component names to image references, loaded from a
// related_images.json file.
type ImageSet struct {
	images map[string]string
}

// LoadImageSet reads an image set from a JSON file of {name, image} entries.
func LoadImageSet(path string) (*ImageSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image config %s: %w", path, err)
	}
	return ParseImageSet(data)
}

// ParseImageSet parses the related-images JSON document.
func ParseImageSet(data []byte) (*ImageSet, error) {
	var entries []relatedImage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse image config: %w", err)
	}
	images := make(map[string]string, len(entries))
	for _, e := range entries {
		images[e.Name] = e.Image
	}
	return &ImageSet{images: images}, nil
}

// Get returns the image reference for a component.
func (s *ImageSet) Get(name string) (string, error) {
	img, ok := s.images[name]
	if !ok {
		return "", fmt.Errorf("image %q not found in configuration", name)
	}
	return img, nil
}

// Operator returns the operator image reference.
func (s *ImageSet) Operator() (string, error) { return s.Get(ImageOperator) }

// Operand returns the operand image reference.
func (s *ImageSet) Operand() (string, error) { return s.Get(ImageOperand) }

// MustGather returns the must-gather image reference.
func (s *ImageSet) MustGather() (string, error) { return s.Get(ImageMustGather) }

// Bundle returns the OLM bundle image reference.
func (s *ImageSet) Bundle() (string, error) { return s.Get(ImageBundle) }

// Workload returns the image used by test workloads. It is taken from the
// CONTAINER_IMAGE environment variable when set.
func (s *ImageSet) Workload() string {
	if img := os.Getenv("CONTAINER_IMAGE"); img != "" {
		return img
	}
	if img, ok := s.images[ImageWorkload]; ok {
		return img
	}
	return DefaultWorkloadImage
}

// List returns all configured (name, image) pairs in name order.
func (s *ImageSet) List() [][2]string {
	out := make([][2]string, 0, len(s.images))
	for name, img := range s.images {
		out = append(out, [2]string{name, img})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
