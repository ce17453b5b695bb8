// Package match implements the build coordinator. It scans a source tree for match files, turns
// them into targets, configures all targets one after another and then builds them concurrently.
// Targets don't declare dependencies on each other; a target that needs a file another target
// produces simply waits for that file's gate to open.
package match
