// Package misc keeps build time information about the program.
package misc

// These are set with -ldflags "-X tocview/misc.version=..." during release builds.
var (
	version = "dev"
	gitHash = "unknown"
)

// GetAppName returns the program name used for logs, temporary files and reports.
func GetAppName() string {
	return "tocview"
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
