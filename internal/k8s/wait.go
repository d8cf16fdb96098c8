package k8s

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// pollInterval is the shared cadence for every readiness gate.
const pollInterval = 5 * time.Second

// waitFor polls cond until it reports true or the timeout elapses. A timeout
// is returned as *TimeoutError carrying the budget and message; errors from
// cond itself pass through unchanged.
func waitFor(ctx context.Context, timeout time.Duration, message string, cond func(context.Context) (bool, error)) error {
	err := wait.PollUntilContextTimeout(ctx, pollInterval, timeout, true, cond)
	if err == nil {
		return nil
	}
	if wait.Interrupted(err) {
		return &TimeoutError{Budget: timeout, Message: message}
	}
	return err
}

// retryableQueryError reports errors worth re-polling: the object not being
// there yet, or the apiserver briefly overloaded. Anything else is a real
// failure and stops the wait so it is never misreported as a timeout.
func retryableQueryError(err error) bool {
	return apierrors.IsNotFound(err) ||
		apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err)
}

// WaitForDeploymentAvailable waits until the deployment reports the Available
// condition.
func (c *Client) WaitForDeploymentAvailable(ctx context.Context, namespace, name string, timeout time.Duration) error {
	msg := fmt.Sprintf("deployment %s/%s did not become available", namespace, name)
	return waitFor(ctx, timeout, msg, func(ctx context.Context) (bool, error) {
		deployment, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			if retryableQueryError(err) {
				return false, nil
			}
			return false, err
		}
		return isDeploymentAvailable(deployment), nil
	})
}

// WaitForDeploymentExists waits until the deployment object appears at all,
// which catches an operator that accepted a custom resource but never
// reconciled it.
func (c *Client) WaitForDeploymentExists(ctx context.Context, namespace, name string, timeout time.Duration) error {
	msg := fmt.Sprintf("deployment %s/%s was never created; the operator may not be reconciling", namespace, name)
	return waitFor(ctx, timeout, msg, func(ctx context.Context) (bool, error) {
		_, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			if retryableQueryError(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
}

// WaitForPodsReady waits for at least one pod matching the selector to exist
// and for every match to be ready.
func (c *Client) WaitForPodsReady(ctx context.Context, namespace, labelSelector string, timeout time.Duration) error {
	msg := fmt.Sprintf("pods %s in %s did not become ready", labelSelector, namespace)
	return waitFor(ctx, timeout, msg, func(ctx context.Context) (bool, error) {
		podList, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
			LabelSelector: labelSelector,
		})
		if err != nil {
			if retryableQueryError(err) {
				return false, nil
			}
			return false, err
		}
		if len(podList.Items) == 0 {
			return false, nil
		}
		for _, pod := range podList.Items {
			if !isPodReady(&pod) {
				return false, nil
			}
		}
		return true, nil
	})
}

// WaitForNodesReady waits for every node in the cluster to report Ready. CNI
// installation gates on this.
func (c *Client) WaitForNodesReady(ctx context.Context, timeout time.Duration) error {
	return waitFor(ctx, timeout, "cluster nodes did not become ready", func(ctx context.Context) (bool, error) {
		nodeList, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
		if err != nil {
			if retryableQueryError(err) {
				return false, nil
			}
			return false, err
		}
		if len(nodeList.Items) == 0 {
			return false, nil
		}
		for _, node := range nodeList.Items {
			if !isNodeReady(&node) {
				return false, nil
			}
		}
		return true, nil
	})
}

func isDeploymentAvailable(deployment *appsv1.Deployment) bool {
	for _, condition := range deployment.Status.Conditions {
		if condition.Type == appsv1.DeploymentAvailable &&
			condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

func isPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady &&
			condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

func isNodeReady(node *corev1.Node) bool {
	for _, condition := range node.Status.Conditions {
		if condition.Type == corev1.NodeReady &&
			condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
