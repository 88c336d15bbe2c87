package resolver

import (
	"context"
	"errors"
	"fmt"

	goversion "github.com/hashicorp/go-version"

	"github.com/oshokin/dotnet-bootstrap/internal/dotnet"
	"github.com/oshokin/dotnet-bootstrap/internal/index"
	"github.com/oshokin/dotnet-bootstrap/internal/logger"
)

var (
	// ErrResolution is returned when the release index is unreachable,
	// answers with an unexpected status, or serves unparseable content.
	ErrResolution = errors.New("unable to resolve version against release index")
	// ErrNoVersionsAvailable is returned when the minor probe finds nothing
	// published even at minor 0.
	ErrNoVersionsAvailable = errors.New("no available versions found")
)

// Service resolves version requests against the release index.
type Service struct {
	index *index.Client
}

// New creates a resolver backed by the provided index client.
func New(indexClient *index.Client) *Service {
	return &Service{index: indexClient}
}

// Resolve determines the concrete release version satisfying the request.
// A fully-specified request is returned as-is without any network access.
func (s *Service) Resolve(
	ctx context.Context,
	channel dotnet.Channel,
	request dotnet.VersionRequest,
) (*goversion.Version, error) {
	if request.IsExact() {
		exact, err := request.Exact()
		if err != nil {
			return nil, err
		}

		logger.DebugKV(ctx, "Request is fully specified, skipping resolution", "version", exact.String())

		return exact, nil
	}

	minor := request.Minor
	if !request.HasMinor() {
		newest, err := s.newestMinor(ctx, channel, request.Major)
		if err != nil {
			return nil, err
		}

		logger.InfoKV(ctx, "Discovered newest minor version",
			"channel", channel.String(), "major", request.Major, "minor", newest)

		minor = newest
	}

	resolved, err := s.index.LatestVersion(ctx, channel, request.Major, minor)
	if err != nil {
		return nil, fmt.Errorf("latest version of %s %d.%d: %v: %w",
			channel, request.Major, minor, err, ErrResolution)
	}

	return resolved, nil
}

// ProductVersion resolves the version string embedded in the installer
// filename. When the auxiliary resource answers with a non-success status the
// release's own text is substituted: some releases simply lack the resource,
// so this is a degrade path rather than an error.
func (s *Service) ProductVersion(
	ctx context.Context,
	channel dotnet.Channel,
	release *goversion.Version,
) (string, error) {
	productVersion, err := s.index.ProductVersion(ctx, channel, release)

	switch {
	case err == nil:
		return productVersion, nil
	case errors.Is(err, index.ErrNotFound), errors.Is(err, index.ErrUnexpectedStatus):
		logger.WarnKV(ctx, "Product version resource unavailable, using release version",
			"release", release.String(), "error", err)

		return release.String(), nil
	default:
		return "", fmt.Errorf("product version of %s: %w", release, err)
	}
}
