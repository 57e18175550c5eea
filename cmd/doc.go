// Package cmd implements the command-line interface for dkvfvr, an embedded
// multi-tenant versioned key-value store. It provides a hierarchical command
// structure for running the background maintenance daemon and for inspecting
// and publishing data directly against a data root.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for operating on a single logical database (get, put, clear, info)
//   - serve: Command for running the maintenance daemon against a data root
//   - util: Shared utilities for command-line processing (internal use)
//
// See dkvfvr -help for a list of all commands.
package cmd
