// Package deletion implements the safety checklist and sequential execution
// engine for removing duplicate audio files. Groups pass through an ordered
// set of checkpoints before anything touches disk; execution supports dry
// runs, verified backups, and per-file failure isolation.
package deletion
