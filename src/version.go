package imogen

import (
	"fmt"
	"runtime/debug"
	"strconv"

	"github.com/charmbracelet/log"
)

// Set at build time via `-ldflags "-X 'github.com/sdwarwick/imogen/src.IMOGEN_VERSION=X'"`
var IMOGEN_VERSION string

func getBuildSettingOrDefault(bi *debug.BuildInfo, key string, defaultValue string) string {
	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}

	return defaultValue
}

// PrintVersion writes a one-line version banner (followed by a build-info
// dump when verbose) to stdout, pulling the commit and dirty-tree flag out of the
// binary's embedded VCS build info rather than baked-in constants.
func PrintVersion(verbose bool) {
	var buildInfo, _ = debug.ReadBuildInfo()

	var buildTimeStr = getBuildSettingOrDefault(buildInfo, "vcs.time", "UNKNOWN")

	var (
		buildCommit               = getBuildSettingOrDefault(buildInfo, "vcs.revision", "UNKNOWN")
		buildDirtyStr             = getBuildSettingOrDefault(buildInfo, "vcs.modified", "INVALID")
		buildDirty, buildDirtyErr = strconv.ParseBool(buildDirtyStr)
	)

	if buildDirty {
		buildCommit += "-DIRTY"
	} else if buildDirtyErr != nil {
		log.Warn("could not parse vcs.modified build setting", "value", buildDirtyStr, "err", buildDirtyErr)

		buildCommit += "-UNKNOWNDIRTY"
	}

	var version = IMOGEN_VERSION
	if version == "" {
		version = "!UNKNOWN!"
	}

	fmt.Printf("Imogen - Version %s (revision %s, built at %s)\n", version, buildCommit, buildTimeStr)

	if verbose {
		fmt.Printf("\nBuildInfo: %+v\n", buildInfo)
	}
}
