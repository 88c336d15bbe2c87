package dotnet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Architecture is the processor width of the runtime to install.
type Architecture int

const (
	// ArchX64 is the 64-bit runtime, the default on modern machines.
	ArchX64 Architecture = iota
	// ArchX86 is the 32-bit runtime, installable on 64-bit hosts as well.
	ArchX86
)

// ErrUnknownArchitecture is returned when an architecture name is not recognized.
var ErrUnknownArchitecture = errors.New("unknown architecture")

// defaultWindowsDir is used when the windir environment variable is unset.
const defaultWindowsDir = `C:\Windows`

// architectureSpec holds the per-architecture naming and filesystem roots.
type architectureSpec struct {
	// name is the architecture name accepted on the command line and
	// embedded in installer filenames.
	name string
	// rootEnvs are the environment variables naming the Program Files root,
	// tried in order. The 32-bit list falls back to the plain Program Files
	// variable for 32-bit hosts where the (x86) variant is unset.
	rootEnvs []string
	// rootDefault is the Program Files root used when no variable is set.
	rootDefault string
	// prerequisiteInstaller is the VC++ redistributable installer filename.
	prerequisiteInstaller string
}

var architectureTable = map[Architecture]architectureSpec{
	ArchX64: {
		name:                  "x64",
		rootEnvs:              []string{"ProgramFiles"},
		rootDefault:           `C:\Program Files`,
		prerequisiteInstaller: "vc_redist.x64.exe",
	},
	ArchX86: {
		name:                  "x86",
		rootEnvs:              []string{"ProgramFiles(x86)", "ProgramFiles"},
		rootDefault:           `C:\Program Files (x86)`,
		prerequisiteInstaller: "vc_redist.x86.exe",
	},
}

// ParseArchitecture maps a case-insensitive architecture name to its Architecture.
func ParseArchitecture(s string) (Architecture, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	for arch, spec := range architectureTable {
		if spec.name == s {
			return arch, nil
		}
	}

	return 0, fmt.Errorf("%q: %w", s, ErrUnknownArchitecture)
}

// ArchitectureNames returns the accepted architecture names in stable order.
func ArchitectureNames() []string {
	names := make([]string, 0, len(architectureTable))
	for _, spec := range architectureTable {
		names = append(names, spec.name)
	}

	sort.Strings(names)

	return names
}

// String returns the command-line name of the architecture.
func (a Architecture) String() string {
	return architectureTable[a].name
}

// Suffix returns the fragment embedded in installer filenames.
func (a Architecture) Suffix() string {
	return architectureTable[a].name
}

// PrerequisiteInstaller returns the VC++ redistributable installer filename
// for this architecture.
func (a Architecture) PrerequisiteInstaller() string {
	return architectureTable[a].prerequisiteInstaller
}

// InstallRoot returns the dotnet installation root for this architecture,
// derived from the Program Files environment of the host.
func (a Architecture) InstallRoot() string {
	spec := architectureTable[a]

	for _, env := range spec.rootEnvs {
		if root := os.Getenv(env); root != "" {
			return filepath.Join(root, "dotnet")
		}
	}

	return filepath.Join(spec.rootDefault, "dotnet")
}

// SystemDir returns the system directory holding the VC++ runtime library
// for this architecture. 32-bit libraries live in SysWOW64 on a 64-bit host.
func (a Architecture) SystemDir(hostIs64Bit bool) string {
	windowsDir := os.Getenv("windir")
	if windowsDir == "" {
		windowsDir = defaultWindowsDir
	}

	if a == ArchX86 && hostIs64Bit {
		return filepath.Join(windowsDir, "SysWOW64")
	}

	return filepath.Join(windowsDir, "System32")
}

// HostIs64Bit reports whether the operating system is 64-bit. The processor
// architecture environment reflects the OS even for a 32-bit process, which
// additionally sees PROCESSOR_ARCHITEW6432 on a 64-bit host.
func HostIs64Bit() bool {
	if os.Getenv("PROCESSOR_ARCHITEW6432") != "" {
		return true
	}

	switch strings.ToUpper(os.Getenv("PROCESSOR_ARCHITECTURE")) {
	case "AMD64", "ARM64", "X86_64", "IA64":
		return true
	case "X86", "386", "ARM":
		return false
	}

	return strings.Contains(runtime.GOARCH, "64")
}
