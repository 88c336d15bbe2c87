package dotnet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// ErrInvalidVersionRequest is returned when a version request string is not
// one to three dot-separated unsigned integers.
var ErrInvalidVersionRequest = errors.New("invalid version request")

// maxVersionParts limits a request to major, minor and patch components.
const maxVersionParts = 3

// VersionRequest is a possibly-partial runtime version typed by the user.
// Major is always present; trailing components may be omitted, so patch can
// only be present when minor is. The zero components of an omitted tail are
// not meaningful; check HasMinor/HasPatch first.
//
// A request is immutable once parsed.
type VersionRequest struct {
	// Major is the major version component, always present.
	Major uint64
	// Minor is the minor version component, valid only when hasMinor is set.
	Minor uint64
	// Patch is the patch version component, valid only when hasPatch is set.
	Patch uint64

	hasMinor bool
	hasPatch bool
}

// ParseVersionRequest parses "major[.minor[.patch]]" into a VersionRequest.
func ParseVersionRequest(s string) (VersionRequest, error) {
	var request VersionRequest

	s = strings.TrimSpace(s)
	if s == "" {
		return request, fmt.Errorf("empty string: %w", ErrInvalidVersionRequest)
	}

	parts := strings.Split(s, ".")
	if len(parts) > maxVersionParts {
		return request, fmt.Errorf("%q has more than %d components: %w", s, maxVersionParts, ErrInvalidVersionRequest)
	}

	numbers := make([]uint64, 0, len(parts))

	for _, part := range parts {
		number, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return request, fmt.Errorf("%q: %w", s, ErrInvalidVersionRequest)
		}

		numbers = append(numbers, number)
	}

	request.Major = numbers[0]

	if len(numbers) > 1 {
		request.Minor = numbers[1]
		request.hasMinor = true
	}

	if len(numbers) > 2 {
		request.Patch = numbers[2]
		request.hasPatch = true
	}

	return request, nil
}

// HasMinor reports whether the minor component was specified.
func (r VersionRequest) HasMinor() bool {
	return r.hasMinor
}

// HasPatch reports whether the patch component was specified.
func (r VersionRequest) HasPatch() bool {
	return r.hasPatch
}

// IsExact reports whether all three components were specified,
// in which case no remote resolution is needed.
func (r VersionRequest) IsExact() bool {
	return r.hasMinor && r.hasPatch
}

// String renders only the components that were specified.
func (r VersionRequest) String() string {
	var b strings.Builder

	b.WriteString(strconv.FormatUint(r.Major, 10))

	if r.hasMinor {
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(r.Minor, 10))

		if r.hasPatch {
			b.WriteByte('.')
			b.WriteString(strconv.FormatUint(r.Patch, 10))
		}
	}

	return b.String()
}

// Exact returns the concrete version for a fully-specified request.
func (r VersionRequest) Exact() (*goversion.Version, error) {
	if !r.IsExact() {
		return nil, fmt.Errorf("request %s is not fully specified: %w", r, ErrInvalidVersionRequest)
	}

	resolved, err := goversion.NewVersion(r.String())
	if err != nil {
		return nil, fmt.Errorf("build exact version: %w", err)
	}

	return resolved, nil
}

// Constraint interprets the request as a version-matching range: a bare major
// matches any release of that major, major.minor matches any patch of that
// pair, and a full triple matches only itself.
func (r VersionRequest) Constraint() (goversion.Constraints, error) {
	var expression string

	switch {
	case r.IsExact():
		expression = fmt.Sprintf("= %d.%d.%d", r.Major, r.Minor, r.Patch)
	case r.hasMinor:
		expression = fmt.Sprintf("~> %d.%d.0", r.Major, r.Minor)
	default:
		expression = fmt.Sprintf("~> %d.0", r.Major)
	}

	constraint, err := goversion.NewConstraint(expression)
	if err != nil {
		return nil, fmt.Errorf("build constraint for %s: %w", r, err)
	}

	return constraint, nil
}
