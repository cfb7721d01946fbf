// Package version holds the symbolic version of the running binary.
package version

// Version is set at build time via
// -ldflags "-X github.com/m-lab/iperf3-wrapper/pkg/version.Version=..."
var Version = "v0.0.0-dev"
