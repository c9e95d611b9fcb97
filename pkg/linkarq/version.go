package linkarq

import (
	"fmt"

	"github.com/bft-labs/linkarq/pkg/arq"
	"github.com/bft-labs/linkarq/pkg/channel"
	"github.com/bft-labs/linkarq/pkg/crc"
	"github.com/bft-labs/linkarq/pkg/frame"
	"github.com/bft-labs/linkarq/pkg/lifecycle"
	"github.com/bft-labs/linkarq/pkg/log"
)

// Version information for the linkarq module.
const (
	// Version is the current version of the linkarq module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)

type moduleVersion struct {
	version    string
	minVersion string
}

func modules() map[string]moduleVersion {
	return map[string]moduleVersion{
		"crc":       {crc.Version, crc.MinCompatibleVersion},
		"frame":     {frame.Version, frame.MinCompatibleVersion},
		"arq":       {arq.Version, arq.MinCompatibleVersion},
		"channel":   {channel.Version, channel.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}
}

// ModuleVersions returns the version of every sub-module.
func ModuleVersions() map[string]string {
	out := make(map[string]string)
	for name, m := range modules() {
		out[name] = m.version
	}
	out["linkarq"] = Version
	return out
}

// CompatibilityMatrix returns the minimum compatible version of every
// sub-module.
func CompatibilityMatrix() map[string]string {
	out := make(map[string]string)
	for name, m := range modules() {
		out[name] = m.minVersion
	}
	out["linkarq"] = MinCompatibleVersion
	return out
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	for name, m := range modules() {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("linkarq: module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible reports whether version >= minVersion. Versions
// are "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
