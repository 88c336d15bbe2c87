package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goversion "github.com/hashicorp/go-version"

	"github.com/oshokin/dotnet-bootstrap/internal/dotnet"
	"github.com/oshokin/dotnet-bootstrap/internal/logger"
)

// sharedDirName is the directory under the install root holding shared runtimes.
const sharedDirName = "shared"

// Service checks whether a requested runtime version is installed locally.
type Service struct {
	installRoot string
}

// Option configures the service.
type Option func(*Service)

// WithInstallRoot overrides the architecture-derived installation root.
func WithInstallRoot(root string) Option {
	return func(s *Service) {
		if root != "" {
			s.installRoot = root
		}
	}
}

// New creates an installation probe.
func New(opts ...Option) *Service {
	s := new(Service)
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// IsInstalled reports whether some installed version of the channel satisfies
// the request interpreted as a version range. A missing installation root is
// a normal "nothing installed" state, not an error.
func (s *Service) IsInstalled(
	ctx context.Context,
	arch dotnet.Architecture,
	channel dotnet.Channel,
	request dotnet.VersionRequest,
) (bool, error) {
	root := s.installRoot
	if root == "" {
		root = arch.InstallRoot()
	}

	channelDir := filepath.Join(root, sharedDirName, channel.SharedDir())

	entries, err := os.ReadDir(channelDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.DebugKV(ctx, "Installation directory does not exist", "path", channelDir)
			return false, nil
		}

		return false, fmt.Errorf("list %s: %w", channelDir, err)
	}

	constraint, err := request.Constraint()
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		// Non-version directory names are expected here; skip them.
		installed, err := goversion.NewVersion(entry.Name())
		if err != nil {
			continue
		}

		if constraint.Check(installed) {
			logger.InfoKV(ctx, "Found installed runtime satisfying request",
				"channel", channel.String(), "version", installed.String(), "path", channelDir)

			return true, nil
		}
	}

	return false, nil
}
