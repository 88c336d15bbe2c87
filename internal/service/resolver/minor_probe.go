package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/dotnet-bootstrap/internal/dotnet"
	"github.com/oshokin/dotnet-bootstrap/internal/index"
)

// maxMinorProbes bounds the ascending scan. The index has no listing
// endpoint, so discovery is a linear probe; realistic minor counts stay well
// under this bound, and hitting it means the index stopped answering
// not-found rather than that so many minors exist.
const maxMinorProbes = 256

// minorProbe answers whether a major.minor release line is published.
// Errors mean the question could not be answered at all.
type minorProbe func(ctx context.Context, major, minor uint64) (bool, error)

// newestMinor scans minors of a major ascending from 0 and applies the
// termination rule: the first unpublished candidate ends the scan, and the
// previous candidate is the newest available minor. An unpublished minor 0
// means the major has no releases at all.
func newestMinor(ctx context.Context, probe minorProbe, major uint64) (uint64, error) {
	for minor := uint64(0); minor < maxMinorProbes; minor++ {
		published, err := probe(ctx, major, minor)
		if err != nil {
			return 0, fmt.Errorf("probe %d.%d: %v: %w", major, minor, err, ErrResolution)
		}

		if published {
			continue
		}

		if minor == 0 {
			return 0, fmt.Errorf("major %d: %w", major, ErrNoVersionsAvailable)
		}

		return minor - 1, nil
	}

	return 0, fmt.Errorf("no unpublished minor of major %d within %d probes: %w",
		major, maxMinorProbes, ErrResolution)
}

// newestMinor discovers the newest published minor of the major on the
// channel by probing latest.version markers.
func (s *Service) newestMinor(ctx context.Context, channel dotnet.Channel, major uint64) (uint64, error) {
	probe := func(ctx context.Context, major, minor uint64) (bool, error) {
		_, err := s.index.LatestVersion(ctx, channel, major, minor)

		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, index.ErrNotFound):
			return false, nil
		default:
			return false, err
		}
	}

	return newestMinor(ctx, probe, major)
}
