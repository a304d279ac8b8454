// Package version reports build-time identification, set via -ldflags at
// build time.
package version

import "fmt"

var (
	// VERSION is the tagged release version, e.g. "v1.2.3".
	VERSION = "unknown"
	// REVISION is the git commit hash.
	REVISION = "unknown"
	// BUILTAT is the build timestamp.
	BUILTAT = "unknown"
)

// String renders the version banner printed by the "version" subcommand.
func String() string {
	return fmt.Sprintf(
		"Version:   %s\nGit hash:  %s\nBuilt at:  %s\n",
		VERSION, REVISION, BUILTAT,
	)
}
