package e2e

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kueue-contrib/kueue-dev/internal/k8s"
)

// These specs run against a cluster prepared by `kueue-dev deploy kind-full`
// and verify the deployed state the e2e test runner depends on.
var _ = Describe("operator deployment", func() {
	var client *k8s.Client

	BeforeEach(func() {
		var err error
		client, err = k8s.NewClient(kubeconfigPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("runs the operator in its namespace", func(ctx context.Context) {
		exists, err := client.NamespaceExists(ctx, "openshift-kueue-operator")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())

		err = client.WaitForDeploymentAvailable(ctx, "openshift-kueue-operator", "openshift-kueue-operator", 2*time.Minute)
		Expect(err).NotTo(HaveOccurred())
	})

	It("reconciles the Kueue resource into a controller deployment", func(ctx context.Context) {
		err := client.WaitForDeploymentExists(ctx, "openshift-kueue-operator", "kueue-controller-manager", time.Minute)
		Expect(err).NotTo(HaveOccurred())

		err = client.WaitForDeploymentAvailable(ctx, "openshift-kueue-operator", "kueue-controller-manager", 2*time.Minute)
		Expect(err).NotTo(HaveOccurred())
	})

	It("has the parallel-installed dependencies available", Label("dependencies"), func(ctx context.Context) {
		for _, dep := range []struct {
			namespace  string
			deployment string
		}{
			{"cert-manager", "cert-manager"},
			{"jobset-system", "jobset-controller-manager"},
			{"lws-system", "lws-controller-manager"},
			{"appwrapper-system", "appwrapper-controller-manager"},
			{"kubeflow", "training-operator"},
		} {
			exists, err := client.NamespaceExists(ctx, dep.namespace)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue(), "namespace %s", dep.namespace)

			err = client.WaitForDeploymentAvailable(ctx, dep.namespace, dep.deployment, 2*time.Minute)
			Expect(err).NotTo(HaveOccurred(), "deployment %s/%s", dep.namespace, dep.deployment)
		}
	})

	It("keeps all nodes ready", func(ctx context.Context) {
		Expect(client.WaitForNodesReady(ctx, time.Minute)).To(Succeed())
	})
})
