// Package main is the entry point for the kueue-dev CLI.
//
// kueue-dev automates the Kueue operator development loop: it creates kind
// test clusters, installs the operator's dependencies in parallel, deploys
// the operator directly or through OLM, and runs the e2e suite.
//
// Commands: cluster, deploy, build, test, cleanup, check.
//
// For detailed usage information, run:
//
//	kueue-dev --help
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/kueue-contrib/kueue-dev/cmd/kueue-dev/commands"
	"github.com/kueue-contrib/kueue-dev/internal/prereqs"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var prereqErr *prereqs.Error
		if errors.As(err, &prereqErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
