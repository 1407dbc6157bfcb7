// Package probe exposes the filesystem primitives the deletion engine relies
// on (existence, size, permission, free space, copy, delete) behind a small
// interface so tests can substitute failure-injecting fakes.
package probe
