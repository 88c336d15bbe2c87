// Package config defines the bootstrapper settings and provides helpers to
// load, validate and save them in YAML format.
//
// Settings cover the release index and CDN base URLs, the VC++ redistributable
// location, and optional local path overrides. Every field has a default, so
// running without a config file targets the public release index.
package config
