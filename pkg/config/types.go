// Package config manages the launcher's directory layout and settings.
// It follows XDG specifications for storing cache, configuration, and data.
package config

import (
	"launcher/pkg/common"
)

// OSType represents a target operating system.
type OSType = common.OSType

const (
	OSLinux   OSType = common.OSLinux
	OSDarwin  OSType = common.OSDarwin
	OSWindows OSType = common.OSWindows
	OSUnknown OSType = common.OSUnknown
)

// ArchType represents a target CPU architecture.
type ArchType = common.ArchType

const (
	ArchX64     ArchType = common.ArchX64
	ArchArm64   ArchType = common.ArchArm64
	ArchUnknown ArchType = common.ArchUnknown
)
