package project

import "strings"

// Platform is a build target's Apple platform, spec §6 "Platform string
// forms". Canonical string forms are exact-case; parsing from any of the
// source forms below defaults to Unknown on no match.
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformIOS
	PlatformWatchOS
	PlatformTvOS
	PlatformMacOS
)

// String returns the canonical wire form, or "" for Unknown — matching
// original_source/daemon/src/project/platform.rs's ToString impl, which
// maps Unknown to an empty string rather than the literal word "Unknown".
func (p Platform) String() string {
	switch p {
	case PlatformIOS:
		return "iOS"
	case PlatformWatchOS:
		return "watchOS"
	case PlatformTvOS:
		return "tvOS"
	case PlatformMacOS:
		return "macOS"
	default:
		return ""
	}
}

// ParsePlatform parses a canonical platform string, defaulting to Unknown
// for anything else (the source's FromStr never actually errors).
func ParsePlatform(s string) Platform {
	switch s {
	case "iOS":
		return PlatformIOS
	case "watchOS":
		return PlatformWatchOS
	case "tvOS":
		return PlatformTvOS
	case "macOS":
		return PlatformMacOS
	default:
		return PlatformUnknown
	}
}

// PlatformFromSDKRoot maps an Xcode SDK root name to a Platform.
func PlatformFromSDKRoot(sdkRoot string) Platform {
	switch sdkRoot {
	case "iphoneos":
		return PlatformIOS
	case "macosx":
		return PlatformMacOS
	case "appletvos":
		return PlatformTvOS
	case "watchos":
		return PlatformWatchOS
	default:
		return PlatformUnknown
	}
}

// simRuntimePrefix is stripped from a CoreSimulator runtime identifier
// before taking the platform token.
const simRuntimePrefix = "com.apple.CoreSimulator.SimRuntime."

// PlatformFromIdentifier maps a CoreSimulator runtime identifier (e.g.
// "com.apple.CoreSimulator.SimRuntime.iOS-17-0") to a Platform.
func PlatformFromIdentifier(identifier string) Platform {
	name := strings.ReplaceAll(identifier, simRuntimePrefix, "")
	token, _, _ := strings.Cut(name, "-")
	return ParsePlatform(token)
}

// PlatformFromDisplayName maps an Xcode build-setting PLATFORM_DISPLAY_NAME
// (e.g. "iOS Simulator", "macOS") to a Platform.
func PlatformFromDisplayName(display string) Platform {
	value := display
	if strings.Contains(display, "Simulator") {
		token, _, _ := strings.Cut(display, " ")
		value = token
	}
	return ParsePlatform(value)
}
