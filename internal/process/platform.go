package process

import "runtime"

// Platform selects the shell wrapper used to run a command line.
type Platform int

const (
	// PlatformPOSIX wraps commands as `sh -c <command>`.
	PlatformPOSIX Platform = iota

	// PlatformWindows wraps commands as `cmd /C <command>`.
	PlatformWindows
)

// CurrentPlatform returns the platform of the running binary.
func CurrentPlatform() Platform {
	return platformFor(runtime.GOOS)
}

func platformFor(goos string) Platform {
	if goos == "windows" {
		return PlatformWindows
	}
	return PlatformPOSIX
}

// String returns "posix" or "windows".
func (p Platform) String() string {
	switch p {
	case PlatformPOSIX:
		return "posix"
	case PlatformWindows:
		return "windows"
	default:
		return "unknown"
	}
}

// ShellArgv returns the argv that runs command through the platform's shell.
// The command is passed through verbatim: no quoting, no tokenization.
func ShellArgv(command string, p Platform) []string {
	if p == PlatformWindows {
		return []string{"cmd", "/C", command}
	}
	return []string{"sh", "-c", command}
}

// OSName returns "windows", "macos", "linux" or "unknown".
func OSName() string {
	return osName(runtime.GOOS)
}

func osName(goos string) string {
	switch goos {
	case "windows":
		return "windows"
	case "darwin":
		return "macos"
	case "linux":
		return "linux"
	default:
		return "unknown"
	}
}

// IsWindows reports whether the binary runs on Windows.
func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// IsUnix reports whether the binary runs on a Unix-like system.
func IsUnix() bool {
	switch runtime.GOOS {
	case "windows", "plan9", "js", "wasip1":
		return false
	default:
		return true
	}
}
