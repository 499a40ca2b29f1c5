// Package version exposes build metadata shared by the agent, appliance,
// and ingest daemon binaries.
package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns build metadata in the user-facing version output format,
// prefixed with the calling binary's name.
func String(binary string) string {
	return binary + " " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}
