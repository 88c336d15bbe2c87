package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/oshokin/dotnet-bootstrap/internal/config"
	"github.com/oshokin/dotnet-bootstrap/internal/dotnet"
	"github.com/oshokin/dotnet-bootstrap/internal/index"
	"github.com/oshokin/dotnet-bootstrap/internal/logger"
	"github.com/oshokin/dotnet-bootstrap/internal/service/probe"
	"github.com/oshokin/dotnet-bootstrap/internal/service/resolver"
)

var (
	// ErrVersionNotFound is returned when the resolved installer does not
	// exist upstream.
	ErrVersionNotFound = errors.New("requested runtime version does not exist")
	// ErrDownloadFailed is returned when the installer download answers any
	// other non-success status.
	ErrDownloadFailed = errors.New("failed to download installer")
	// ErrUnsupportedArchitecture is returned when a 64-bit runtime is
	// requested on a 32-bit operating system.
	ErrUnsupportedArchitecture = errors.New("64-bit runtime requested on a 32-bit operating system")
	// ErrAlreadyRunning is returned when another bootstrapper run holds the marker.
	ErrAlreadyRunning = errors.New("the bootstrapper is already running")
)

// silentInstallArgs launch an installer without UI or reboot.
var silentInstallArgs = []string{"/quiet", "/norestart"}

// Process seams swapped in tests: launching a downloaded installer and
// detecting host bitness are not reproducible in a test environment.
//
//nolint:gochecknoglobals // Test seams, same approach as exec.Command redirection.
var (
	launchProcess = func(ctx context.Context, path string, args ...string) error {
		return exec.CommandContext(ctx, path, args...).Run()
	}
	hostIs64Bit = dotnet.HostIs64Bit
)

// Options are inputs accepted by the bootstrapper entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Version is the requested version string, "major[.minor[.patch]]".
	Version string
	// Runtime is the channel name (dotnet, aspcore or windowsdesktop).
	Runtime string
	// Arch is the optional architecture name (x86 or x64); empty means x64.
	Arch string
}

// runner holds the state and collaborators of a single bootstrapper run.
// It is intentionally unexported; call Run(ctx, Options) from callers.
type runner struct {
	cfg     *config.Config
	request dotnet.VersionRequest
	channel dotnet.Channel
	arch    dotnet.Architecture

	index    *index.Client
	resolver *resolver.Service
	probe    *probe.Service

	markerCreated      bool
	temporaryDirectory string
}

// Run executes the bootstrapper lifecycle and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, baseExecutableName)

	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	defer r.cleanup(ctx)

	if err = r.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Bootstrapper run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Bootstrapper completed")

	return nil
}

// newRunner loads settings, parses the request and wires the collaborators.
// It also writes the run marker to avoid concurrent runs.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	r := new(runner)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return r, err
	}

	r.cfg = cfg

	if r.request, err = dotnet.ParseVersionRequest(opts.Version); err != nil {
		return r, err
	}

	if r.channel, err = dotnet.ParseChannel(opts.Runtime); err != nil {
		return r, err
	}

	archName := opts.Arch
	if archName == "" {
		archName = dotnet.ArchX64.String()
	}

	if r.arch, err = dotnet.ParseArchitecture(archName); err != nil {
		return r, err
	}

	if isBootstrapperRunningNow(ctx) {
		return r, ErrAlreadyRunning
	}

	marker, err := os.Create(markerPath())
	if err != nil {
		return r, fmt.Errorf("create run marker: %w", err)
	}

	if err = marker.Close(); err != nil {
		return r, err
	}

	r.markerCreated = true

	r.index = index.New(cfg)
	r.resolver = resolver.New(r.index)
	r.probe = probe.New(probe.WithInstallRoot(cfg.InstallRoot))

	return r, nil
}

// run executes the pipeline:
// 1) Validate architecture against the host.
// 2) Ensure the VC++ runtime prerequisite.
// 3) Probe the local installation and exit early on a match.
// 4) Resolve the release and product versions.
// 5) Download the installer to a run-scoped temporary directory.
// 6) Launch it silently and wait.
func (r *runner) run(ctx context.Context) error {
	ctx = logger.WithKV(ctx, "channel", r.channel.String())
	ctx = logger.WithKV(ctx, "request", r.request.String())

	if err := r.validateArchitecture(ctx); err != nil {
		return err
	}

	if err := r.ensurePrerequisite(ctx); err != nil {
		return fmt.Errorf("ensure VC++ runtime prerequisite: %w", err)
	}

	installed, err := r.probe.IsInstalled(ctx, r.arch, r.channel, r.request)
	if err != nil {
		return fmt.Errorf("probe local installation: %w", err)
	}

	if installed {
		logger.Info(ctx, "Requested runtime is already installed, nothing to do")
		return nil
	}

	release, err := r.resolver.Resolve(ctx, r.channel, r.request)
	if err != nil {
		return err
	}

	productVersion, err := r.resolver.ProductVersion(ctx, r.channel, release)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Resolved runtime version",
		"release", release.String(),
		"product_version", productVersion,
		"arch", r.arch.String())

	return r.downloadAndInstall(ctx, release, productVersion)
}

// validateArchitecture fails fast when the host cannot run what was requested.
func (r *runner) validateArchitecture(_ context.Context) error {
	if r.arch == dotnet.ArchX64 && !hostIs64Bit() {
		return ErrUnsupportedArchitecture
	}

	return nil
}

// ensurePrerequisite installs the VC++ redistributable when its runtime
// library is missing from the architecture-correct system directory. The
// runtime installer may hard-require it, so this happens synchronously first.
func (r *runner) ensurePrerequisite(ctx context.Context) error {
	systemDir := r.cfg.SystemDir
	if systemDir == "" {
		systemDir = r.arch.SystemDir(hostIs64Bit())
	}

	libraryPath := filepath.Join(systemDir, prerequisiteLibrary)

	if _, err := os.Stat(libraryPath); err == nil {
		logger.DebugKV(ctx, "VC++ runtime prerequisite is present", "path", libraryPath)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	installerName := r.arch.PrerequisiteInstaller()

	logger.InfoKV(ctx, "VC++ runtime prerequisite is missing, installing it first",
		"library", libraryPath, "installer", installerName)

	redistURL, err := url.JoinPath(r.cfg.VCRedistBaseURL, installerName)
	if err != nil {
		return fmt.Errorf("build redistributable URL: %w", err)
	}

	tempDir, err := r.ensureTemporaryDirectory()
	if err != nil {
		return err
	}

	installerPath := filepath.Join(tempDir, installerName)

	status, err := r.fetchToFile(ctx, redistURL, installerPath)
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		return fmt.Errorf("%s, status %d: %w", installerName, status, ErrDownloadFailed)
	}

	return r.launchInstaller(ctx, installerPath, append([]string{"/install"}, silentInstallArgs...)...)
}

// downloadAndInstall fetches the resolved installer and launches it silently.
// A not-found answer means the resolved version does not exist upstream.
func (r *runner) downloadAndInstall(
	ctx context.Context,
	release *goversion.Version,
	productVersion string,
) error {
	downloadURL, err := r.index.InstallerURL(r.channel, release, productVersion, r.arch)
	if err != nil {
		return err
	}

	tempDir, err := r.ensureTemporaryDirectory()
	if err != nil {
		return err
	}

	installerPath := filepath.Join(tempDir, r.channel.InstallerFileName(productVersion, r.arch))

	logger.InfoKV(ctx, "Downloading installer", "url", downloadURL)

	status, err := r.fetchToFile(ctx, downloadURL, installerPath)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK:
		return r.launchInstaller(ctx, installerPath, silentInstallArgs...)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", release, ErrVersionNotFound)
	default:
		return fmt.Errorf("%s, status %d: %w", productVersion, status, ErrDownloadFailed)
	}
}

// ensureTemporaryDirectory lazily creates the run-scoped download directory.
// cleanup removes it on every exit path.
func (r *runner) ensureTemporaryDirectory() (string, error) {
	if r.temporaryDirectory != "" {
		return r.temporaryDirectory, nil
	}

	tempDir, err := os.MkdirTemp("", baseExecutableName+"-")
	if err != nil {
		return "", fmt.Errorf("create temporary directory: %w", err)
	}

	r.temporaryDirectory = tempDir

	return tempDir, nil
}

// fetchToFile streams the resource at rawURL into path when the index answers
// success, returning the HTTP status code in any case. The file is flushed
// and closed before returning so it can be executed immediately.
func (r *runner) fetchToFile(ctx context.Context, rawURL, path string) (int, error) {
	response, err := r.index.Fetch(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return response.StatusCode, nil
	}

	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	if _, err = io.Copy(file, response.Body); err != nil {
		_ = file.Close()

		return 0, fmt.Errorf("write %s: %w", path, err)
	}

	if err = file.Sync(); err != nil {
		_ = file.Close()

		return 0, fmt.Errorf("flush %s: %w", path, err)
	}

	if err = file.Close(); err != nil {
		return 0, err
	}

	return response.StatusCode, nil
}

// launchInstaller starts the downloaded installer and waits for it to exit.
// The installer's own logging is authoritative, so a non-zero exit code is
// reported but does not fail the run.
func (r *runner) launchInstaller(ctx context.Context, path string, args ...string) error {
	logger.InfoKV(ctx, "Launching installer", "path", path, "args", strings.Join(args, " "))

	err := launchProcess(ctx, path, args...)

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.WarnKV(ctx, "Installer exited with non-zero code", "exit_code", exitErr.ExitCode())
		return nil
	}

	if err != nil {
		return fmt.Errorf("launch %s: %w", path, err)
	}

	return nil
}

// cleanup removes the temporary directory and the run marker.
func (r *runner) cleanup(ctx context.Context) {
	if r.markerCreated {
		if _, err := os.Stat(markerPath()); err == nil {
			_ = os.Remove(markerPath())
		}
	}

	if r.temporaryDirectory != "" {
		if _, err := os.Stat(r.temporaryDirectory); err == nil {
			_ = os.RemoveAll(r.temporaryDirectory)
		}
	}

	logger.Debug(ctx, "The bootstrapper has been stopped")
}
