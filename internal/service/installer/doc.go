// Package installer drives the fetch-and-install pipeline.
//
// A run validates the requested architecture against the host, ensures the
// VC++ runtime prerequisite, short-circuits when the requested runtime is
// already installed, otherwise resolves the version to install, downloads the
// installer into a run-scoped temporary directory, and launches it silently.
// The temporary directory is removed on every exit path, and a marker file
// guards against concurrent runs.
package installer
