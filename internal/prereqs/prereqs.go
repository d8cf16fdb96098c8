// Package prereqs verifies the host tools the workflows shell out to.
package prereqs

import (
	"fmt"
	"os/exec"
	"strings"
)

// Prerequisite is one required host binary with an installation hint.
type Prerequisite struct {
	Name string
	Hint string
}

// Error reports missing prerequisites. The CLI maps it to its own exit code
// so scripts can tell a bad environment from a failed deployment.
type Error struct {
	Missing []Prerequisite
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d missing prerequisite(s):", len(e.Missing))
	for _, p := range e.Missing {
		fmt.Fprintf(&b, "\n  %s: %s", p.Name, p.Hint)
	}
	return b.String()
}

// lookPath is a seam for tests.
var lookPath = exec.LookPath

// Common lists the tools every workflow needs. The container runtime is
// checked separately because either docker or podman satisfies it.
func Common() []Prerequisite {
	return []Prerequisite{
		{Name: "kind", Hint: "https://kind.sigs.k8s.io/docs/user/quick-start/#installation"},
		{Name: "kubectl", Hint: "https://kubernetes.io/docs/tasks/tools/"},
		{Name: "go", Hint: "https://go.dev/doc/install"},
	}
}

// OperatorSDK is needed only by the bundle deployment path.
func OperatorSDK() Prerequisite {
	return Prerequisite{Name: "operator-sdk", Hint: "https://sdk.operatorframework.io/docs/installation/"}
}

// CheckAll probes every prerequisite and the container runtime. It returns
// the names that were found and an *Error listing everything missing.
func CheckAll(required []Prerequisite) ([]string, error) {
	var found []string
	var missing []Prerequisite
	for _, p := range required {
		if _, err := lookPath(p.Name); err != nil {
			missing = append(missing, p)
			continue
		}
		found = append(found, p.Name)
	}

	if _, err := lookPath("docker"); err == nil {
		found = append(found, "docker")
	} else if _, err := lookPath("podman"); err == nil {
		found = append(found, "podman")
	} else {
		missing = append(missing, Prerequisite{
			Name: "docker or podman",
			Hint: "install a container runtime",
		})
	}

	if len(missing) > 0 {
		return found, &Error{Missing: missing}
	}
	return found, nil
}
