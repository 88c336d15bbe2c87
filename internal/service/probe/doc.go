// Package probe inspects the local dotnet installation layout to decide
// whether a runtime satisfying the requested version range is already present,
// short-circuiting the download pipeline.
//
// Installed runtimes are directories named after their version under
// {install root}/shared/{channel}. A missing root means nothing is installed,
// not a fault, and directory names that do not parse as versions are skipped:
// installation directories occasionally contain non-version artifacts.
package probe
