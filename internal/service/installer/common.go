package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/dotnet-bootstrap/internal/logger"
)

const (
	// MarkerFilename marks that a bootstrapper run is in progress to avoid
	// parallel execution. The marker lives in the system temp directory.
	MarkerFilename = "dotnet-bootstrap-marker.bin"

	// prerequisiteLibrary is the VC++ runtime library the downloaded
	// installer may itself require.
	prerequisiteLibrary = "vcruntime140.dll"

	// baseExecutableName is the bootstrapper binary name without extension.
	baseExecutableName = "dotnet-bootstrap"

	// markerLifetime is the period after which a run marker is considered
	// stale. Installer runs include a download and a child-process wait, so
	// this is generous.
	markerLifetime = 15 * time.Minute
)

// markerPath returns the location of the run marker.
func markerPath() string {
	return filepath.Join(os.TempDir(), MarkerFilename)
}

// isBootstrapperRunningNow checks presence of the run marker and attempts
// recovery when it looks stale.
func isBootstrapperRunningNow(ctx context.Context) bool {
	logger.Debug(ctx, "Checking for the presence of a run marker")

	fileInfo, err := os.Stat(markerPath())
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The run marker is too old, attempting cleanup")

		if err = terminateProcessByName(bootstrapperExecutable()); err != nil {
			return true
		}

		if err = os.Remove(markerPath()); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	logger.Infof(ctx, "Unable to read run marker: %v", err)

	return false
}

// terminateProcessByName tries to kill processes with the provided executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// getExecutableExtension returns ".exe" on Windows and "" elsewhere.
func getExecutableExtension() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return ".exe"
	}

	return ""
}

func bootstrapperExecutable() string {
	return baseExecutableName + getExecutableExtension()
}
