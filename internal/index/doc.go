// Package index is the HTTP client for the .NET release index.
//
// The index has no listing endpoint; it is a plain file layout under a base
// URL: {base}/{channel}/{major.minor}/latest.version marks the newest patch
// of a release line, {cdn}/{channel}/{version}/productVersion.txt carries the
// product version embedded in installer filenames, and the installer binaries
// sit next to them. Base URLs are injected so tests can point the client at a
// local fake server.
package index
