// Package duplicate models groups of files believed to represent the same
// track, including the recommended keep/delete split and grouping confidence.
package duplicate
