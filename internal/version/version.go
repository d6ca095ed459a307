// Package version holds build metadata injected with -ldflags, e.g.
//
//	-X github.com/banshee-data/kittiscan/internal/version.Version=v0.3.0
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for -version output.
func String(name string) string {
	return name + " " + Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
