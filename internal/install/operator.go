package install

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kueue-contrib/kueue-dev/internal/config"
)

// Placeholder images in the operator's checked-in deployment manifest.
const (
	placeholderOperator   = "registry.redhat.io/kueue/kueue-rhel9-operator:latest"
	placeholderOperand    = "registry.redhat.io/kueue/kueue-rhel9:latest"
	placeholderMustGather = "registry.redhat.io/kueue/kueue-must-gather-rhel9:latest"
)

// deploymentManifest is the file inside deploy/ carrying the image
// references.
const deploymentManifest = "07_deployment.yaml"

// operatorManifests is the apply order for the deploy/ directory. Later
// manifests reference objects from earlier ones.
var operatorManifests = []string{
	"01_namespace.yaml",
	"02_clusterrole.yaml",
	"02_role.yaml",
	"03_clusterrolebinding.yaml",
	"03_rolebinding.yaml",
	"04_serviceaccount.yaml",
	"05_clusterrole_kueue-batch.yaml",
	"06_clusterrole_kueue-admin.yaml",
	"07_deployment.yaml",
}

// OperatorInstaller deploys the kueue-operator from a source checkout and
// gates the Kueue CR on the operator actually reconciling it.
type OperatorInstaller struct {
	kubectl    Applier
	poller     Poller
	sourceRoot string

	// controllerSettle is the pause after the operator deployment reports
	// Available, covering the gap until its controllers accept custom
	// resources. The deployment condition is the only signal the operator
	// exposes, and it fires before the controllers are serving.
	controllerSettle time.Duration
}

// NewOperatorInstaller wires an operator installer rooted at the operator
// source checkout.
func NewOperatorInstaller(kubectl Applier, poller Poller, sourceRoot string) *OperatorInstaller {
	return &OperatorInstaller{
		kubectl:          kubectl,
		poller:           poller,
		sourceRoot:       sourceRoot,
		controllerSettle: 30 * time.Second,
	}
}

// InstallCRDs applies every CRD from the source checkout with server-side
// apply. Kueue's CRDs exceed the last-applied annotation size limit.
func (o *OperatorInstaller) InstallCRDs(ctx context.Context) error {
	crdDir := filepath.Join(o.sourceRoot, "deploy", "crd")
	entries, err := os.ReadDir(crdDir)
	if err != nil {
		return fmt.Errorf("CRD directory not found: %s: %w", crdDir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	log.Printf("[operator] Installing CRDs from %s...", crdDir)
	for _, name := range files {
		if err := o.kubectl.ApplyFileServerSide(ctx, filepath.Join(crdDir, name)); err != nil {
			return fmt.Errorf("failed to apply CRD %s: %w", name, err)
		}
	}
	log.Printf("[operator] CRDs installed successfully")
	return nil
}

// Install deploys the operator with images from the image set, waits for its
// deployment, and creates the Kueue CR when one is given.
func (o *OperatorInstaller) Install(ctx context.Context, images *config.ImageSet, cr *config.KueueCR) error {
	operatorImage, err := images.Operator()
	if err != nil {
		return err
	}
	operandImage, err := images.Operand()
	if err != nil {
		return err
	}
	mustGatherImage, err := images.MustGather()
	if err != nil {
		return err
	}

	log.Printf("[operator] Installing kueue-operator...")
	log.Printf("[operator] Using operator image: %s", operatorImage)
	log.Printf("[operator] Using operand image: %s", operandImage)

	tempDir, err := os.MkdirTemp("", "kueue-deploy-")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	if err := o.copyDeployFiles(tempDir); err != nil {
		return err
	}
	if err := rewriteDeploymentImages(tempDir, operatorImage, operandImage, mustGatherImage); err != nil {
		return err
	}

	for _, name := range operatorManifests {
		path := filepath.Join(tempDir, name)
		if _, err := os.Stat(path); err != nil {
			log.Printf("[operator] Manifest not found: %s, skipping", name)
			continue
		}
		log.Printf("[operator] Applying %s...", name)
		if err := o.kubectl.ApplyFile(ctx, path); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
	}

	if err := o.WaitUntilReady(ctx); err != nil {
		return err
	}

	if cr != nil {
		return o.CreateKueueCR(ctx, cr)
	}
	return nil
}

// WaitUntilReady gates on the operator deployment reporting Available and
// then pauses for the controller settle. Both install paths run this before
// the Kueue CR goes in.
func (o *OperatorInstaller) WaitUntilReady(ctx context.Context) error {
	log.Printf("[operator] Waiting for operator deployment to be available...")
	err := o.poller.WaitForDeploymentAvailable(ctx, operatorNamespace, operatorDeployment, depTimeout)
	if err != nil {
		return fmt.Errorf("operator deployment not available: %w", err)
	}

	log.Printf("[operator] Waiting for operator controllers to be ready...")
	time.Sleep(o.controllerSettle)
	return nil
}

// CreateKueueCR applies the Kueue CR and verifies the operator reconciles it
// into a running controller manager. The existence wait is separate from the
// availability wait so a dead operator is reported as such instead of as a
// generic timeout.
func (o *OperatorInstaller) CreateKueueCR(ctx context.Context, cr *config.KueueCR) error {
	log.Printf("[operator] Creating Kueue CR: %s/%s", cr.Namespace, cr.Name)

	manifest, err := cr.ToYAML()
	if err != nil {
		return err
	}
	// Server-side apply: the operator defaults unset spec fields, and a
	// client-side re-apply would fight it over ownership.
	if err := o.kubectl.ApplyServerSide(ctx, manifest); err != nil {
		return fmt.Errorf("failed to create Kueue CR: %w", err)
	}

	log.Printf("[operator] Waiting for operator to create kueue-controller-manager deployment...")
	err = o.poller.WaitForDeploymentExists(ctx, cr.Namespace, "kueue-controller-manager", 60*time.Second)
	if err != nil {
		return fmt.Errorf("kueue-controller-manager deployment was not created: %w", err)
	}

	log.Printf("[operator] Waiting for kueue-controller-manager deployment to be available...")
	err = o.poller.WaitForDeploymentAvailable(ctx, cr.Namespace, "kueue-controller-manager", depTimeout)
	if err != nil {
		return fmt.Errorf("kueue-controller-manager deployment did not become available: %w", err)
	}

	log.Printf("[operator] Kueue controller-manager deployment is available")
	return nil
}

func (o *OperatorInstaller) copyDeployFiles(tempDir string) error {
	deployDir := filepath.Join(o.sourceRoot, "deploy")
	entries, err := os.ReadDir(deployDir)
	if err != nil {
		return fmt.Errorf("deploy directory not found: %s: %w", deployDir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(deployDir, e.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(tempDir, e.Name()), data, 0o600); err != nil {
			return fmt.Errorf("failed to copy %s: %w", e.Name(), err)
		}
	}
	return nil
}

// rewriteDeploymentImages swaps the registry placeholders for the images
// under test and verifies each replacement landed, so a drifted manifest is
// caught before anything reaches the cluster.
func rewriteDeploymentImages(tempDir, operatorImage, operandImage, mustGatherImage string) error {
	path := filepath.Join(tempDir, deploymentManifest)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("deployment file not found: %s: %w", path, err)
	}

	content := string(data)
	content = strings.ReplaceAll(content, "image: "+placeholderOperator, "image: "+operatorImage)
	content = strings.ReplaceAll(content, "value: "+placeholderOperand, "value: "+operandImage)
	content = strings.ReplaceAll(content, "value: "+placeholderMustGather, "value: "+mustGatherImage)
	// Locally loaded images are not pullable from a registry.
	content = strings.ReplaceAll(content, "imagePullPolicy: Always", "imagePullPolicy: IfNotPresent")

	for _, image := range []string{operatorImage, operandImage, mustGatherImage} {
		if !strings.Contains(content, image) {
			return fmt.Errorf("failed to update image %s in %s", image, deploymentManifest)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write updated deployment file: %w", err)
	}
	return nil
}
