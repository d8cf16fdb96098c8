package install

import (
	"fmt"
	"time"

	"github.com/kueue-contrib/kueue-dev/internal/config"
)

const depTimeout = 300 * time.Second

// CertManager returns the cert-manager install target. Its CRDs fit in the
// last-applied annotation, so client-side apply is fine.
func CertManager(v config.Versions) Target {
	return Target{
		Name:            "cert-manager",
		Version:         v.CertManager,
		MarkerNamespace: "cert-manager",
		ManifestURL:     fmt.Sprintf("https://github.com/cert-manager/cert-manager/releases/download/%s/cert-manager.yaml", v.CertManager),
		Mode:            ClientSide,
		Readiness: []Readiness{
			{Namespace: "cert-manager", Target: "deployment/cert-manager", Condition: "condition=Available", Timeout: depTimeout},
			{Namespace: "cert-manager", Target: "deployment/cert-manager-webhook", Condition: "condition=Available", Timeout: depTimeout},
			{Namespace: "cert-manager", Target: "deployment/cert-manager-cainjector", Condition: "condition=Available", Timeout: depTimeout},
		},
	}
}

// JobSet returns the JobSet install target.
func JobSet(v config.Versions) Target {
	return Target{
		Name:            "jobset",
		Version:         v.JobSet,
		MarkerNamespace: "jobset-system",
		ManifestURL:     fmt.Sprintf("https://github.com/kubernetes-sigs/jobset/releases/download/%s/manifests.yaml", v.JobSet),
		Mode:            ServerSide,
		Readiness: []Readiness{
			{Namespace: "jobset-system", Target: "deployment/jobset-controller-manager", Condition: "condition=Available", Timeout: depTimeout},
		},
	}
}

// LeaderWorkerSet returns the LeaderWorkerSet install target.
func LeaderWorkerSet(v config.Versions) Target {
	return Target{
		Name:            "leaderworkerset",
		Version:         v.LeaderWorkerSet,
		MarkerNamespace: "lws-system",
		ManifestURL:     fmt.Sprintf("https://github.com/kubernetes-sigs/lws/releases/download/%s/manifests.yaml", v.LeaderWorkerSet),
		Mode:            ClientSide,
		Readiness: []Readiness{
			{Namespace: "lws-system", Target: "deployment/lws-controller-manager", Condition: "condition=Available", Timeout: depTimeout},
		},
	}
}

// AppWrapper returns the AppWrapper install target.
func AppWrapper(v config.Versions) Target {
	return Target{
		Name:            "appwrapper",
		Version:         v.AppWrapper,
		MarkerNamespace: "appwrapper-system",
		ManifestURL:     fmt.Sprintf("https://github.com/project-codeflare/appwrapper/releases/download/%s/install.yaml", v.AppWrapper),
		Mode:            ServerSide,
		Readiness: []Readiness{
			{Namespace: "appwrapper-system", Target: "deployment/appwrapper-controller-manager", Condition: "condition=Available", Timeout: depTimeout},
		},
	}
}

// TrainingOperator returns the Kubeflow training-operator install target,
// applied from its upstream kustomize overlay.
func TrainingOperator(v config.Versions) Target {
	return Target{
		Name:            "training-operator",
		Version:         v.TrainingOperator,
		MarkerNamespace: "kubeflow",
		KustomizeRef:    fmt.Sprintf("github.com/kubeflow/training-operator.git/manifests/overlays/standalone?ref=%s", v.TrainingOperator),
		Mode:            Kustomize,
		Readiness: []Readiness{
			{Namespace: "kubeflow", Target: "deployment/training-operator", Condition: "condition=Available", Timeout: depTimeout},
		},
	}
}

// PrometheusOperator returns the prometheus-operator install target. The
// bundle installs into the default namespace and has no namespace of its own
// to probe, so it is always applied.
func PrometheusOperator(v config.Versions) Target {
	return Target{
		Name:        "prometheus-operator",
		Version:     v.PrometheusOperator,
		ManifestURL: fmt.Sprintf("https://github.com/prometheus-operator/prometheus-operator/releases/download/%s/bundle.yaml", v.PrometheusOperator),
		Mode:        ServerSide,
		Readiness: []Readiness{
			{Namespace: "default", Target: "deployment/prometheus-operator", Condition: "condition=Available", Timeout: depTimeout},
		},
	}
}
