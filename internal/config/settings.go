// Package config loads tool configuration: the settings file, the image set,
// and the Kueue custom resource description.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SettingsFileName is the per-project settings file looked up in the current
// directory and in the user config directory.
const SettingsFileName = "kueue-dev.yaml"

// Settings holds the full tool configuration. Every field has a usable
// default so the tool runs without a settings file.
type Settings struct {
	Defaults Defaults     `yaml:"defaults"`
	Behavior Behavior     `yaml:"behavior"`
	Kueue    KueueDefault `yaml:"kueue"`
	Tests    Tests        `yaml:"tests"`
	Versions Versions     `yaml:"versions"`
}

// Defaults are fallbacks for common command flags.
type Defaults struct {
	ClusterName string `yaml:"cluster_name"`
	CNIProvider string `yaml:"cni_provider"`
	ImagesFile  string `yaml:"images_file"`

	// OperatorSourcePath points at the kueue-operator source checkout.
	// When empty the current working directory is used. The resolved value
	// is passed explicitly to every component; nothing reads the process
	// working directory after startup.
	OperatorSourcePath string `yaml:"operator_source_path,omitempty"`

	// KubeconfigPath is where cluster credentials are written on export.
	// When empty, credentials are never written to disk.
	KubeconfigPath string `yaml:"kubeconfig_path,omitempty"`

	// UpstreamSourcePath points at an upstream Kueue checkout for the
	// upstream deploy commands.
	UpstreamSourcePath string `yaml:"upstream_source_path,omitempty"`
}

// Behavior toggles interactive conduct.
type Behavior struct {
	ConfirmDestructive bool `yaml:"confirm_destructive"`
	ParallelOperations bool `yaml:"parallel_operations"`
}

// KueueDefault configures the Kueue CR created after the operator is up.
type KueueDefault struct {
	Name       string   `yaml:"name"`
	Namespace  string   `yaml:"namespace"`
	Frameworks []string `yaml:"frameworks"`
}

// Tests configures the e2e runs.
type Tests struct {
	OperatorSkipPatterns []string `yaml:"operator_skip_patterns"`
	UpstreamSkipPatterns []string `yaml:"upstream_skip_patterns"`
}

// Versions pins the dependency releases installed into the test cluster.
type Versions struct {
	Calico             string `yaml:"calico"`
	CertManager        string `yaml:"cert_manager"`
	JobSet             string `yaml:"jobset"`
	LeaderWorkerSet    string `yaml:"leaderworkerset"`
	AppWrapper         string `yaml:"appwrapper"`
	TrainingOperator   string `yaml:"training_operator"`
	PrometheusOperator string `yaml:"prometheus_operator"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Defaults: Defaults{
			ClusterName: "kueue-test",
			CNIProvider: "calico",
			ImagesFile:  "related_images.json",
		},
		Behavior: Behavior{
			ConfirmDestructive: true,
			ParallelOperations: true,
		},
		Kueue: KueueDefault{
			Name:      "cluster",
			Namespace: "openshift-kueue-operator",
			Frameworks: []string{
				"BatchJob", "Pod", "Deployment",
				"StatefulSet", "JobSet", "LeaderWorkerSet",
			},
		},
		Tests: Tests{
			OperatorSkipPatterns: nil,
			UpstreamSkipPatterns: nil,
		},
		Versions: Versions{
			Calico:             "v3.27.3",
			CertManager:        "v1.13.3",
			JobSet:             "v0.10.1",
			LeaderWorkerSet:    "v0.7.0",
			AppWrapper:         "v1.1.2",
			TrainingOperator:   "v1.8.1",
			PrometheusOperator: "v0.79.2",
		},
	}
}

// LoadSettings reads the settings file from the current directory or the
// user config directory, falling back to defaults when no file exists.
// A malformed settings file is an error; silently ignoring it would mask
// misconfiguration.
func LoadSettings() (*Settings, error) {
	for _, path := range settingsSearchPaths() {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
		return ParseSettings(data)
	}
	return DefaultSettings(), nil
}

// ParseSettings unmarshals settings YAML on top of the defaults.
func ParseSettings(data []byte) (*Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}

func settingsSearchPaths() []string {
	paths := []string{SettingsFileName}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "kueue-dev", SettingsFileName))
	}
	return paths
}

// ResolveSourceRoot picks the operator source root: explicit flag first,
// then the settings file, then the given working directory. The result is
// absolute so downstream components never depend on the process directory.
func ResolveSourceRoot(flagValue string, s *Settings, workingDir string) (string, error) {
	candidate := flagValue
	if candidate == "" {
		candidate = s.Defaults.OperatorSourcePath
	}
	if candidate == "" {
		candidate = workingDir
	}
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("failed to resolve source root %s: %w", candidate, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("source root does not exist: %s", abs)
	}
	return abs, nil
}
