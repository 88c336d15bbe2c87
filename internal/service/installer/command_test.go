package installer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/dotnet-bootstrap/internal/config"
)

// Tests in this package share the global run marker and the process seams,
// so they do not run in parallel.

// launchCall records one installer launch performed by a fake launcher.
type launchCall struct {
	path string
	args []string
}

// stubSeams replaces the process seams for the duration of a test and
// returns the recorded launches.
func stubSeams(t *testing.T, is64Bit bool) *[]launchCall {
	t.Helper()

	origLaunch := launchProcess
	origHost := hostIs64Bit

	t.Cleanup(func() {
		launchProcess = origLaunch
		hostIs64Bit = origHost
	})

	var calls []launchCall

	launchProcess = func(_ context.Context, path string, args ...string) error {
		// The downloaded file must be complete and closed at launch time.
		if _, err := os.Stat(path); err != nil {
			t.Errorf("launched %s before it existed: %v", path, err)
		}

		calls = append(calls, launchCall{path: path, args: args})

		return nil
	}

	hostIs64Bit = func() bool { return is64Bit }

	return &calls
}

// testEnv bundles the fake index server and local directory layout of a run.
type testEnv struct {
	configPath  string
	installRoot string
	systemDir   string
	requests    *atomic.Int64
}

// newTestEnv prepares a config file pointing every endpoint at the handler
// and, unless noPrerequisite is set, a system dir already holding the VC++
// runtime library so the prerequisite step is a no-op.
func newTestEnv(t *testing.T, handler http.Handler, noPrerequisite bool) testEnv {
	t.Helper()

	var requests atomic.Int64

	counting := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		handler.ServeHTTP(w, r)
	})

	server := httptest.NewServer(counting)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	installRoot := filepath.Join(dir, "dotnet")
	systemDir := filepath.Join(dir, "System32")
	require.NoError(t, os.MkdirAll(systemDir, 0o755))

	if !noPrerequisite {
		require.NoError(t, os.WriteFile(
			filepath.Join(systemDir, prerequisiteLibrary), []byte("stub"), 0o600))
	}

	configPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, config.Save(configPath, &config.Config{
		IndexURL:        server.URL,
		CDNURL:          server.URL,
		VCRedistBaseURL: server.URL,
		InstallRoot:     installRoot,
		SystemDir:       systemDir,
	}))

	return testEnv{
		configPath:  configPath,
		installRoot: installRoot,
		systemDir:   systemDir,
		requests:    &requests,
	}
}

// TestRunAlreadyInstalled exits successfully with no network traffic and no
// launch when a satisfying version is already on disk.
func TestRunAlreadyInstalled(t *testing.T) {
	calls := stubSeams(t, true)

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "should not be called", http.StatusInternalServerError)
	}), false)

	installedDir := filepath.Join(env.installRoot, "shared", "Microsoft.NETCore.App", "5.1.3")
	require.NoError(t, os.MkdirAll(installedDir, 0o755))

	err := Run(context.Background(), &Options{
		ConfigPath: env.configPath,
		Version:    "5.1.3",
		Runtime:    "dotnet",
	})
	require.NoError(t, err)
	require.Zero(t, env.requests.Load())
	require.Empty(t, *calls)
}

// TestRunDownloadsAndLaunches resolves a bare major through the minor probe,
// downloads the installer and launches it with silent flags.
func TestRunDownloadsAndLaunches(t *testing.T) {
	calls := stubSeams(t, true)

	installerBody := []byte("MZ fake installer bytes")

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Runtime/5.0/latest.version":
			_, _ = w.Write([]byte("5.0.17\n"))
		case "/Runtime/5.1/latest.version":
			_, _ = w.Write([]byte("5.1.9\n"))
		case "/Runtime/5.1.9/productVersion.txt":
			_, _ = w.Write([]byte("5.1.9\n"))
		case "/Runtime/5.1.9/dotnet-runtime-5.1.9-win-x64.exe":
			_, _ = w.Write(installerBody)
		default:
			http.Error(w, "no such blob", http.StatusNotFound)
		}
	}), false)

	err := Run(context.Background(), &Options{
		ConfigPath: env.configPath,
		Version:    "5",
		Runtime:    "dotnet",
		Arch:       "x64",
	})
	require.NoError(t, err)

	require.Len(t, *calls, 1)

	call := (*calls)[0]
	require.Equal(t, "dotnet-runtime-5.1.9-win-x64.exe", filepath.Base(call.path))
	require.Equal(t, silentInstallArgs, call.args)

	// The run-scoped directory is removed after the run.
	require.NoDirExists(t, filepath.Dir(call.path))
}

// TestRunVersionNotFound maps a missing installer blob to ErrVersionNotFound
// and removes the temporary directory on the failure path.
func TestRunVersionNotFound(t *testing.T) {
	stubSeams(t, true)

	env := newTestEnv(t, http.NotFoundHandler(), false)

	ctx := context.Background()

	r, err := newRunner(ctx, &Options{
		ConfigPath: env.configPath,
		Version:    "9.9.9",
		Runtime:    "dotnet",
	})
	require.NoError(t, err)

	err = r.run(ctx)
	require.ErrorIs(t, err, ErrVersionNotFound)
	require.NotEmpty(t, r.temporaryDirectory)

	r.cleanup(ctx)
	require.NoDirExists(t, r.temporaryDirectory)
	require.NoFileExists(t, markerPath())
}

// TestRunDownloadFailed maps any other non-success download status to
// ErrDownloadFailed carrying the product version.
func TestRunDownloadFailed(t *testing.T) {
	stubSeams(t, true)

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Runtime/6.0.1/productVersion.txt" {
			_, _ = w.Write([]byte("6.0.1\n"))
			return
		}

		http.Error(w, "throttled", http.StatusServiceUnavailable)
	}), false)

	err := Run(context.Background(), &Options{
		ConfigPath: env.configPath,
		Version:    "6.0.1",
		Runtime:    "dotnet",
	})
	require.ErrorIs(t, err, ErrDownloadFailed)
	require.ErrorContains(t, err, "6.0.1")
}

// TestRunUnsupportedArchitecture fails fast when x64 is requested on a
// 32-bit host, before any network or filesystem work.
func TestRunUnsupportedArchitecture(t *testing.T) {
	stubSeams(t, false)

	env := newTestEnv(t, http.NotFoundHandler(), false)

	err := Run(context.Background(), &Options{
		ConfigPath: env.configPath,
		Version:    "5",
		Runtime:    "dotnet",
		Arch:       "x64",
	})
	require.ErrorIs(t, err, ErrUnsupportedArchitecture)
	require.Zero(t, env.requests.Load())
}

// TestRunInstallsPrerequisiteFirst downloads and launches the VC++
// redistributable before the runtime installer when the library is missing.
func TestRunInstallsPrerequisiteFirst(t *testing.T) {
	calls := stubSeams(t, true)

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/vc_redist.x64.exe":
			_, _ = w.Write([]byte("fake redistributable"))
		case "/Runtime/5.0/latest.version":
			_, _ = w.Write([]byte("5.0.17\n"))
		case "/Runtime/5.0.17/productVersion.txt":
			_, _ = w.Write([]byte("5.0.17\n"))
		case "/Runtime/5.0.17/dotnet-runtime-5.0.17-win-x64.exe":
			_, _ = w.Write([]byte("MZ fake installer bytes"))
		default:
			http.Error(w, "no such blob", http.StatusNotFound)
		}
	}), true)

	err := Run(context.Background(), &Options{
		ConfigPath: env.configPath,
		Version:    "5.0",
		Runtime:    "dotnet",
	})
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	require.Equal(t, "vc_redist.x64.exe", filepath.Base((*calls)[0].path))
	require.Equal(t, append([]string{"/install"}, silentInstallArgs...), (*calls)[0].args)
	require.Equal(t, "dotnet-runtime-5.0.17-win-x64.exe", filepath.Base((*calls)[1].path))
}

// TestRunAlreadyRunning refuses to start when a fresh run marker exists.
func TestRunAlreadyRunning(t *testing.T) {
	stubSeams(t, true)

	env := newTestEnv(t, http.NotFoundHandler(), false)

	marker, err := os.Create(markerPath())
	require.NoError(t, err)
	require.NoError(t, marker.Close())

	t.Cleanup(func() {
		_ = os.Remove(markerPath())
	})

	err = Run(context.Background(), &Options{
		ConfigPath: env.configPath,
		Version:    "5",
		Runtime:    "dotnet",
	})
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

// TestRunRejectsMalformedInput surfaces parse errors for version, runtime and
// architecture before any work happens.
func TestRunRejectsMalformedInput(t *testing.T) {
	stubSeams(t, true)

	env := newTestEnv(t, http.NotFoundHandler(), false)

	err := Run(context.Background(), &Options{
		ConfigPath: env.configPath,
		Version:    "5.x",
		Runtime:    "dotnet",
	})
	require.Error(t, err)

	err = Run(context.Background(), &Options{
		ConfigPath: env.configPath,
		Version:    "5",
		Runtime:    "mono",
	})
	require.Error(t, err)

	err = Run(context.Background(), &Options{
		ConfigPath: env.configPath,
		Version:    "5",
		Runtime:    "dotnet",
		Arch:       "sparc",
	})
	require.Error(t, err)
	require.Zero(t, env.requests.Load())
}
