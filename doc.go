/*
Package kraken is a task orchestration core: projects and tasks form a
hierarchical, colon-addressed tree, typed properties connect task outputs to
task inputs lazily, and address selectors pick the goals of a run. The
dependency graph derived from explicit relationships and property connections
is executed sequentially, with skips and failures propagating through it, and
the result persisted as resumable run state.

# Concept

A build is a tree of projects, each owning tasks under one name namespace.
Tasks are addressed by colon-separated paths (":lib:deep:compile") and
selected by patterns ("compile" matches at any depth, "lib:" selects a
project's default tasks). Task inputs and outputs are typed properties;
pointing one task's input at another task's output both transfers the value
at execution time and implies the dependency.

# Usage

Assemble a project tree, register tasks, and hand the tree to a build
context:

	package main

	import (
		"context"
		"log"

		"github.com/kraken-build/kraken"
		"github.com/kraken-build/kraken/pkg/build"
		"github.com/kraken-build/kraken/pkg/system"
	)

	func main() {
		root := system.NewRootProject()
		// register tasks on root / subprojects here

		ctx := kraken.New(root)
		err := ctx.Run(context.Background(), build.RunOptions{
			Selectors: []string{":test"},
		})
		if err != nil {
			log.Fatal(err)
		}
	}

The pkg/build package documents the run options: excluding tasks, resuming
from persisted state, and choosing a state store. cmd/kraken wraps the same
API in a CLI driven by kraken.yaml manifests.
*/
package kraken
