package kraken

import (
	"github.com/kraken-build/kraken/pkg/build"
	"github.com/kraken-build/kraken/pkg/system"
)

// Version is the library version, reported by the CLI's version command.
var Version = "0.1.0"

// New constructs a build context over the given project tree. It is the
// high-level entry point for library consumers; see pkg/build for the
// available options.
func New(root *system.Project, opts ...build.Option) *build.Context {
	return build.NewContext(root, opts...)
}
