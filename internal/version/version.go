// Package version holds build identity, overridable at link time with
// -ldflags "-X github.com/planweave/planweave/internal/version.Version=...".
package version

var (
	// Version is the release version.
	Version = "0.1.0"
	// Commit is the git commit the binary was built from.
	Commit = "dev"
)

// String returns the human-readable version line.
func String() string {
	return Version + " (" + Commit + ")"
}
