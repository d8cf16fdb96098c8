package install

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const olmReleaseAPI = "https://api.github.com/repos/operator-framework/operator-lifecycle-manager/releases/latest"

// IsOLMInstalled reports whether OLM is present with its core deployments.
func (i *Installer) IsOLMInstalled(ctx context.Context) bool {
	exists, err := i.poller.NamespaceExists(ctx, "olm")
	if err != nil || !exists {
		return false
	}
	for _, name := range []string{"olm-operator", "catalog-operator"} {
		found, err := i.poller.DeploymentExists(ctx, "olm", name)
		if err != nil || !found {
			return false
		}
	}
	return true
}

// latestOLMVersion resolves the newest OLM release tag from the GitHub API.
var latestOLMVersion = func(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, olmReleaseAPI, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "kueue-dev")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch OLM releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch OLM releases: status %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("failed to decode OLM release: %w", err)
	}
	if release.TagName == "" {
		return "", fmt.Errorf("OLM release response had no tag name")
	}
	return release.TagName, nil
}

// InstallOLM installs the latest Operator Lifecycle Manager release. An
// existing installation is left untouched.
func (i *Installer) InstallOLM(ctx context.Context) error {
	if i.IsOLMInstalled(ctx) {
		log.Printf("[olm] OLM is already installed, skipping installation")
		return nil
	}

	version, err := latestOLMVersion(ctx)
	if err != nil {
		return err
	}
	log.Printf("[olm] Installing OLM version: %s", version)

	base := fmt.Sprintf("https://github.com/operator-framework/operator-lifecycle-manager/releases/download/%s", version)

	if err := i.kubectl.ApplyFileServerSide(ctx, base+"/crds.yaml"); err != nil {
		return fmt.Errorf("failed to apply OLM CRDs: %w", err)
	}
	if err := i.kubectl.ApplyFileServerSide(ctx, base+"/olm.yaml"); err != nil {
		return fmt.Errorf("failed to apply OLM manifests: %w", err)
	}

	log.Printf("[olm] Waiting for OLM to be ready...")
	for _, name := range []string{"catalog-operator", "olm-operator", "packageserver"} {
		err := i.kubectl.WaitFor(ctx, "olm", "deployment/"+name, "condition=Available", depTimeout)
		if err != nil {
			log.Printf("[olm] Warning: %s not available: %v", name, err)
		}
	}

	log.Printf("[olm] OLM installed successfully")
	return nil
}

// IsOperatorInstalled reports whether a kueue-operator install (direct or
// bundle) is already present.
func (i *Installer) IsOperatorInstalled(ctx context.Context) bool {
	exists, err := i.poller.NamespaceExists(ctx, operatorNamespace)
	if err != nil || !exists {
		return false
	}
	if found, err := i.poller.DeploymentExists(ctx, operatorNamespace, operatorDeployment); err == nil && found {
		return true
	}
	if found, err := i.kubectl.Get(ctx, operatorNamespace, "catalogsource", catalogSourceName); err == nil && found {
		return true
	}
	return false
}

// UninstallOperator removes an existing operator installation via
// operator-sdk cleanup, then deletes the namespace and any remaining Kueue
// custom resources. Missing pieces are tolerated.
func (i *Installer) UninstallOperator(ctx context.Context, sdk SDKRunner) error {
	if !i.IsOperatorInstalled(ctx) {
		log.Printf("[operator] No existing operator installation detected")
		return nil
	}

	log.Printf("[operator] Existing operator installation detected, uninstalling...")
	if err := sdk.Cleanup(ctx, operatorName, operatorNamespace); err != nil {
		log.Printf("[operator] Warning: cleanup had issues: %v", err)
	}

	// Poll for the deployment to disappear before removing the namespace.
	deadline := time.Now().Add(60 * time.Second)
	for {
		found, err := i.poller.DeploymentExists(ctx, operatorNamespace, operatorDeployment)
		if err == nil && !found {
			break
		}
		if time.Now().After(deadline) {
			log.Printf("[operator] Warning: operator deployment still exists after cleanup timeout")
			break
		}
		time.Sleep(5 * time.Second)
	}

	if err := i.kubectl.Delete(ctx, "", "namespace", operatorNamespace); err != nil {
		log.Printf("[operator] Warning: failed to delete namespace: %v", err)
	}

	log.Printf("[operator] Operator uninstall complete")
	return nil
}
