package utils

import "fmt"

// set via -ldflags at build time
var (
	BuildVersion string
	BuildRelease string
	Buildtime    string
)

func GetVersion() string {
	version := fmt.Sprintf("git-%v", BuildVersion)
	if BuildRelease != "" {
		version = fmt.Sprintf("%v (%v)", BuildRelease, version)
	}
	if Buildtime != "" {
		version = fmt.Sprintf("%v, built %v", version, Buildtime)
	}
	return version
}
