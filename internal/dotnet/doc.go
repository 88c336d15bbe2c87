// Package dotnet defines the domain vocabulary of the bootstrapper.
//
// It models the possibly-partial version request typed by the user, the
// runtime channel (which flavor of the .NET runtime to install), and the
// processor architecture. Channels and architectures carry static lookup
// tables mapping each variant to its remote index path, local installation
// directory, and installer filename fragments, so adding a variant is a
// one-table edit.
package dotnet
