// Package resolver turns a possibly-partial version request into the concrete
// release to install.
//
// A fully-specified request resolves without touching the network. Otherwise
// the newest minor of the requested major is discovered by probing the release
// index ascending from minor 0 until the first not-found answer (the index
// has no listing endpoint, so a linear probe is the only discovery mechanism),
// and the latest.version marker of the chosen line supplies the patch. The
// resolver also maps a release to the product version string embedded in
// installer filenames, degrading to the release's own text when the auxiliary
// resource is missing.
package resolver
