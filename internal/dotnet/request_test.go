package dotnet

import (
	"testing"

	goversion "github.com/hashicorp/go-version"
	"github.com/stretchr/testify/require"
)

// TestParseVersionRequest verifies parsing of partial and full requests and
// rejection of malformed input.
func TestParseVersionRequest(t *testing.T) {
	t.Parallel()

	request, err := ParseVersionRequest("5")
	require.NoError(t, err)
	require.Equal(t, uint64(5), request.Major)
	require.False(t, request.HasMinor())
	require.False(t, request.HasPatch())
	require.False(t, request.IsExact())
	require.Equal(t, "5", request.String())

	request, err = ParseVersionRequest("5.1")
	require.NoError(t, err)
	require.True(t, request.HasMinor())
	require.Equal(t, uint64(1), request.Minor)
	require.False(t, request.IsExact())
	require.Equal(t, "5.1", request.String())

	request, err = ParseVersionRequest("5.1.3")
	require.NoError(t, err)
	require.True(t, request.IsExact())
	require.Equal(t, uint64(3), request.Patch)
	require.Equal(t, "5.1.3", request.String())

	for _, input := range []string{"", "5.1.3.7", "five", "5.x", "5.", "-5", "5.-1"} {
		_, err = ParseVersionRequest(input)
		require.ErrorIs(t, err, ErrInvalidVersionRequest, "input %q", input)
	}
}

// TestVersionRequestExact verifies that only fully-specified requests produce
// a concrete version.
func TestVersionRequestExact(t *testing.T) {
	t.Parallel()

	request, err := ParseVersionRequest("6.0.12")
	require.NoError(t, err)

	exact, err := request.Exact()
	require.NoError(t, err)
	require.Equal(t, "6.0.12", exact.String())

	request, err = ParseVersionRequest("6.0")
	require.NoError(t, err)

	_, err = request.Exact()
	require.ErrorIs(t, err, ErrInvalidVersionRequest)
}

// TestVersionRequestConstraint checks range interpretation of partial requests.
func TestVersionRequestConstraint(t *testing.T) {
	t.Parallel()

	cases := []struct {
		request   string
		version   string
		satisfies bool
	}{
		{"5", "5.0.0", true},
		{"5", "5.7.2", true},
		{"5", "6.0.0", false},
		{"5", "4.9.9", false},
		{"5.1", "5.1.0", true},
		{"5.1", "5.1.14", true},
		{"5.1", "5.2.0", false},
		{"5.1", "5.0.9", false},
		{"5.1.3", "5.1.3", true},
		{"5.1.3", "5.1.4", false},
	}

	for _, tc := range cases {
		request, err := ParseVersionRequest(tc.request)
		require.NoError(t, err)

		constraint, err := request.Constraint()
		require.NoError(t, err)

		candidate, err := goversion.NewVersion(tc.version)
		require.NoError(t, err)

		require.Equal(t, tc.satisfies, constraint.Check(candidate),
			"request %s against %s", tc.request, tc.version)
	}
}
