package config

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// Framework is a workload integration enabled in the Kueue CR.
type Framework string

// Supported framework integrations.
const (
	FrameworkBatchJob        Framework = "BatchJob"
	FrameworkPod             Framework = "Pod"
	FrameworkDeployment      Framework = "Deployment"
	FrameworkStatefulSet     Framework = "StatefulSet"
	FrameworkJobSet          Framework = "JobSet"
	FrameworkLeaderWorkerSet Framework = "LeaderWorkerSet"
)

// ParseFramework validates a framework name.
func ParseFramework(s string) (Framework, error) {
	switch Framework(s) {
	case FrameworkBatchJob, FrameworkPod, FrameworkDeployment,
		FrameworkStatefulSet, FrameworkJobSet, FrameworkLeaderWorkerSet:
		return Framework(s), nil
	}
	return "", fmt.Errorf("unknown framework: %s", s)
}

// ManagementState mirrors the operator's managementState field.
type ManagementState string

// Management states accepted by the operator.
const (
	Managed   ManagementState = "Managed"
	Unmanaged ManagementState = "Unmanaged"
)

// KueueCR describes the Kueue custom resource the sequencer creates once the
// operator reports Available.
type KueueCR struct {
	Name            string
	Namespace       string
	ManagementState ManagementState
	Frameworks      []Framework
}

// NewKueueCR builds a Kueue CR from settings with optional framework and
// namespace overrides. Unknown framework names are rejected rather than
// silently dropped.
func NewKueueCR(s *Settings, frameworkOverride []string, namespaceOverride string) (*KueueCR, error) {
	namespace := s.Kueue.Namespace
	if namespaceOverride != "" {
		namespace = namespaceOverride
	}

	names := s.Kueue.Frameworks
	if len(frameworkOverride) > 0 {
		names = frameworkOverride
	}

	frameworks := make([]Framework, 0, len(names))
	for _, name := range names {
		fw, err := ParseFramework(name)
		if err != nil {
			return nil, err
		}
		frameworks = append(frameworks, fw)
	}

	return &KueueCR{
		Name:            s.Kueue.Name,
		Namespace:       namespace,
		ManagementState: Managed,
		Frameworks:      frameworks,
	}, nil
}

// ToYAML renders the CR manifest.
func (c *KueueCR) ToYAML() ([]byte, error) {
	frameworks := make([]string, len(c.Frameworks))
	for i, fw := range c.Frameworks {
		frameworks[i] = string(fw)
	}

	obj := map[string]any{
		"apiVersion": "kueue.openshift.io/v1",
		"kind":       "Kueue",
		"metadata": map[string]any{
			"name":      c.Name,
			"namespace": c.Namespace,
			"labels": map[string]string{
				"app.kubernetes.io/name": "kueue-operator",
			},
		},
		"spec": map[string]any{
			"managementState": string(c.ManagementState),
			"config": map[string]any{
				"integrations": map[string]any{
					"frameworks": frameworks,
				},
			},
		},
	}

	data, err := yaml.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to render Kueue CR: %w", err)
	}
	return data, nil
}
