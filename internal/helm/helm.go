// Package helm deploys local charts with the Helm SDK instead of the helm
// binary, so chart deploys share the tool's kubeconfig handling.
package helm

import (
	"fmt"
	"log"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/strvals"
)

// Client handles Helm operations against one cluster.
type Client struct {
	kubeconfig []byte
}

// NewClient creates a Helm client from kubeconfig bytes.
func NewClient(kubeconfig []byte) *Client {
	return &Client{kubeconfig: kubeconfig}
}

func (c *Client) actionConfig(namespace string) (*action.Configuration, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(c.kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create rest config: %w", err)
	}

	actionConfig := new(action.Configuration)
	clientGetter := &genericRESTClientGetter{
		config:    restConfig,
		namespace: namespace,
	}

	if err := actionConfig.Init(clientGetter, namespace, os.Getenv("HELM_DRIVER"), log.Printf); err != nil {
		return nil, fmt.Errorf("failed to init action config: %w", err)
	}
	return actionConfig, nil
}

// BuildValues merges a values file with --set style overrides, later values
// winning.
func BuildValues(valuesFile string, setValues []string) (map[string]interface{}, error) {
	values := map[string]interface{}{}
	if valuesFile != "" {
		fileValues, err := chartutil.ReadValuesFile(valuesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read values file %s: %w", valuesFile, err)
		}
		values = fileValues.AsMap()
	}
	for _, set := range setValues {
		if err := strvals.ParseInto(set, values); err != nil {
			return nil, fmt.Errorf("failed to parse --set value %q: %w", set, err)
		}
	}
	return values, nil
}

// InstallOrUpgrade deploys a chart from a local path, upgrading when the
// release already exists.
func (c *Client) InstallOrUpgrade(namespace, releaseName, chartPath string, values map[string]interface{}) error {
	actionConfig, err := c.actionConfig(namespace)
	if err != nil {
		return err
	}

	chart, err := loader.Load(chartPath)
	if err != nil {
		return fmt.Errorf("failed to load chart %s: %w", chartPath, err)
	}

	histClient := action.NewHistory(actionConfig)
	histClient.Max = 1
	if _, err := histClient.Run(releaseName); err == nil {
		upgrade := action.NewUpgrade(actionConfig)
		upgrade.Namespace = namespace
		upgrade.Wait = true
		upgrade.Timeout = 5 * time.Minute
		if _, err := upgrade.Run(releaseName, chart, values); err != nil {
			return fmt.Errorf("helm upgrade failed: %w", err)
		}
		return nil
	}

	install := action.NewInstall(actionConfig)
	install.Namespace = namespace
	install.ReleaseName = releaseName
	install.CreateNamespace = true
	install.Wait = true
	install.Timeout = 5 * time.Minute
	if _, err := install.Run(chart, values); err != nil {
		return fmt.Errorf("helm install failed: %w", err)
	}
	return nil
}

// Uninstall removes a release. A missing release is not an error.
func (c *Client) Uninstall(namespace, releaseName string) error {
	actionConfig, err := c.actionConfig(namespace)
	if err != nil {
		return err
	}

	histClient := action.NewHistory(actionConfig)
	histClient.Max = 1
	if _, err := histClient.Run(releaseName); err != nil {
		return nil
	}

	uninstall := action.NewUninstall(actionConfig)
	if _, err := uninstall.Run(releaseName); err != nil {
		return fmt.Errorf("helm uninstall failed: %w", err)
	}
	return nil
}

// genericRESTClientGetter implements basic RESTClientGetter for Helm.
type genericRESTClientGetter struct {
	config    *rest.Config
	namespace string
}

func (g *genericRESTClientGetter) ToRESTConfig() (*rest.Config, error) {
	return g.config, nil
}

func (g *genericRESTClientGetter) ToDiscoveryClient() (discovery.CachedDiscoveryInterface, error) {
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(g.config)
	if err != nil {
		return nil, err
	}
	return memory.NewMemCacheClient(discoveryClient), nil
}

func (g *genericRESTClientGetter) ToRESTMapper() (meta.RESTMapper, error) {
	discoveryClient, err := g.ToDiscoveryClient()
	if err != nil {
		return nil, err
	}
	return restmapper.NewDeferredDiscoveryRESTMapper(discoveryClient), nil
}

func (g *genericRESTClientGetter) ToRawKubeConfigLoader() clientcmd.ClientConfig {
	return clientcmd.NewDefaultClientConfig(*clientcmdapi.NewConfig(), &clientcmd.ConfigOverrides{})
}
