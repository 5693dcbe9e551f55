package common

import "runtime"

// Platform identifies the running OS/architecture pair as used by the
// {scie.platform}/{scie.platform.arch}/{scie.platform.os} placeholders
// (spec.md §4.3).
func Platform() string {
	return runtime.GOOS + "-" + runtime.GOARCH
}

func PlatformOS() string {
	return runtime.GOOS
}

func PlatformArch() string {
	return runtime.GOARCH
}

// IsWindows reports whether stem (not basename) selection and spawn
// (not exec) semantics apply (spec.md §4.6, §4.8).
func IsWindows() bool {
	return runtime.GOOS == "windows"
}
