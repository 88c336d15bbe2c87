package dotnet

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Channel is a flavor of the installable .NET runtime. Each channel has its
// own remote index layout and local installation directory.
type Channel int

const (
	// ChannelRuntime is the base .NET runtime.
	ChannelRuntime Channel = iota
	// ChannelASPCore is the ASP.NET Core runtime.
	ChannelASPCore
	// ChannelWindowsDesktop is the Windows Desktop runtime.
	ChannelWindowsDesktop
)

// ErrUnknownChannel is returned when a channel name is not recognized.
var ErrUnknownChannel = errors.New("unknown runtime channel")

// channelSpec holds the per-channel naming used by the remote index and the
// local installation layout.
type channelSpec struct {
	// name is the channel name accepted on the command line.
	name string
	// indexPath is the path prefix of the channel on the release index.
	indexPath string
	// sharedDir is the directory name under {install root}/shared.
	sharedDir string
	// installerPattern renders the installer filename from the product
	// version and the architecture suffix.
	installerPattern string
}

// channelTable is the single place where channel naming is defined.
// The ASP.NET Core channel lives under a distinct Runtime path prefix;
// the Windows Desktop channel shares the base Runtime prefix.
var channelTable = map[Channel]channelSpec{
	ChannelRuntime: {
		name:             "dotnet",
		indexPath:        "Runtime",
		sharedDir:        "Microsoft.NETCore.App",
		installerPattern: "dotnet-runtime-%s-win-%s.exe",
	},
	ChannelASPCore: {
		name:             "aspcore",
		indexPath:        "aspnetcore/Runtime",
		sharedDir:        "Microsoft.AspNetCore.App",
		installerPattern: "aspnetcore-runtime-%s-win-%s.exe",
	},
	ChannelWindowsDesktop: {
		name:             "windowsdesktop",
		indexPath:        "Runtime",
		sharedDir:        "Microsoft.WindowsDesktop.App",
		installerPattern: "windowsdesktop-runtime-%s-win-%s.exe",
	},
}

// ParseChannel maps a case-insensitive channel name to its Channel.
func ParseChannel(s string) (Channel, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	for channel, spec := range channelTable {
		if spec.name == s {
			return channel, nil
		}
	}

	return 0, fmt.Errorf("%q: %w", s, ErrUnknownChannel)
}

// ChannelNames returns the accepted channel names in stable order.
func ChannelNames() []string {
	names := make([]string, 0, len(channelTable))
	for _, spec := range channelTable {
		names = append(names, spec.name)
	}

	sort.Strings(names)

	return names
}

// String returns the command-line name of the channel.
func (c Channel) String() string {
	return channelTable[c].name
}

// IndexPath returns the channel's path prefix on the release index.
func (c Channel) IndexPath() string {
	return channelTable[c].indexPath
}

// SharedDir returns the channel's directory name under {install root}/shared.
func (c Channel) SharedDir() string {
	return channelTable[c].sharedDir
}

// InstallerFileName renders the installer filename for a product version and
// architecture, e.g. "dotnet-runtime-5.0.17-win-x64.exe".
func (c Channel) InstallerFileName(productVersion string, arch Architecture) string {
	return fmt.Sprintf(channelTable[c].installerPattern, productVersion, arch.Suffix())
}
