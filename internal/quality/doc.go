// Package quality models per-file audio quality: the Record value type with
// its construction-time invariants and derived indicators, and the
// UpgradeCandidate pairing a file with a proposed higher-quality target.
package quality
