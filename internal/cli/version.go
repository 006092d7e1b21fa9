package cli

import "fmt"

// Version information, set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Version returns the human-readable version string.
func Version() string {
	return fmt.Sprintf("covlight %s (%s, %s)", version, commit, date)
}
