package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/oshokin/dotnet-bootstrap/internal/config"
	"github.com/oshokin/dotnet-bootstrap/internal/dotnet"
)

// latestVersionFilename marks the newest patch release of a major.minor line.
const latestVersionFilename = "latest.version"

// productVersionFilename carries the version string embedded in installer
// filenames, which may differ from the release version.
const productVersionFilename = "productVersion.txt"

var (
	// ErrNotFound is returned when the index reports a resource as absent.
	ErrNotFound = errors.New("resource not found on release index")
	// ErrUnexpectedStatus is returned on any other non-success status.
	ErrUnexpectedStatus = errors.New("unexpected http status")
	// errEmptyVersionFile is returned when a latest.version resource holds
	// no parseable content.
	errEmptyVersionFile = errors.New("version file did not contain expected version text")
)

// HTTPClient is the minimal HTTP capability the client needs,
// satisfied by *http.Client and easy to fake in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches version markers and installer binaries from the release index.
type Client struct {
	httpClient HTTPClient
	baseURL    string
	cdnURL     string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient specifies a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBaseURL overrides the release index base URL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithCDNURL overrides the CDN base URL serving auxiliary version resources.
func WithCDNURL(cdn string) Option {
	return func(c *Client) {
		if cdn != "" {
			c.cdnURL = cdn
		}
	}
}

// New creates a release index client from the provided settings.
func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.IndexURL,
		cdnURL:     cfg.CDNURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// LatestVersion fetches the newest patch version of the major.minor release
// line for the channel. Returns ErrNotFound when the index has no such line,
// which is how the caller discovers where a channel's minor versions end.
func (c *Client) LatestVersion(
	ctx context.Context,
	channel dotnet.Channel,
	major, minor uint64,
) (*goversion.Version, error) {
	markerURL, err := joinURL(c.baseURL,
		channel.IndexPath(),
		fmt.Sprintf("%d.%d", major, minor),
		latestVersionFilename)
	if err != nil {
		return nil, err
	}

	body, err := c.getBody(ctx, markerURL)
	if err != nil {
		return nil, err
	}

	// The marker may carry a commit hash on its first line;
	// the version is the last non-empty line.
	versionText := lastNonEmptyLine(body)
	if versionText == "" {
		return nil, fmt.Errorf("%s: %w", markerURL, errEmptyVersionFile)
	}

	latest, err := goversion.NewVersion(versionText)
	if err != nil {
		return nil, fmt.Errorf("parse %q from %s: %w", versionText, markerURL, err)
	}

	return latest, nil
}

// ProductVersion fetches the product version string for a resolved release.
// Returns ErrNotFound or ErrUnexpectedStatus when the auxiliary resource is
// unavailable; the caller decides whether that is fatal.
func (c *Client) ProductVersion(
	ctx context.Context,
	channel dotnet.Channel,
	release *goversion.Version,
) (string, error) {
	productURL, err := joinURL(c.cdnURL, channel.IndexPath(), release.String(), productVersionFilename)
	if err != nil {
		return "", err
	}

	body, err := c.getBody(ctx, productURL)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(body), nil
}

// InstallerURL constructs the download URL of the installer binary.
func (c *Client) InstallerURL(
	channel dotnet.Channel,
	release *goversion.Version,
	productVersion string,
	arch dotnet.Architecture,
) (string, error) {
	return joinURL(c.baseURL,
		channel.IndexPath(),
		release.String(),
		channel.InstallerFileName(productVersion, arch))
}

// Fetch performs a GET request and returns the response unread, whatever its
// status, so large bodies can be streamed and statuses classified by the
// caller. The caller owns the body.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	return response, nil
}

// getBody fetches a small text resource, classifying non-success statuses.
func (c *Client) getBody(ctx context.Context, rawURL string) (string, error) {
	response, err := c.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	switch {
	case response.StatusCode == http.StatusOK:
	case response.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%s: %w", rawURL, ErrNotFound)
	default:
		return "", fmt.Errorf("%s, %s: %w", rawURL, response.Status, ErrUnexpectedStatus)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}

	return string(body), nil
}

// lastNonEmptyLine returns the last line of s holding non-blank content.
func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}

	return ""
}

// joinURL appends path segments to a base URL, normalizing slashes.
func joinURL(base string, parts ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL %q: %w", base, err)
	}

	u.Path = path.Join(append([]string{u.Path}, parts...)...)

	return u.String(), nil
}
