// Package misc keeps build time information about the program.
package misc

import (
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X htmlns/misc.version=... -X htmlns/misc.gitHash=...".
var (
	appName = "hns"
	version = "dev"
	gitHash = ""
)

var buildInfo = sync.OnceValue(func() map[string]string {
	settings := make(map[string]string)
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			settings[s.Key] = s.Value
		}
	}
	return settings
})

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns commit the binary was built from, falling back to VCS
// information embedded by the toolchain.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	hash := buildInfo()["vcs.revision"]
	if len(hash) == 0 {
		return "unknown"
	}
	if len(hash) > 12 {
		hash = hash[:12]
	}
	if buildInfo()["vcs.modified"] == "true" {
		hash += "-dirty"
	}
	return hash
}
