// Package quality computes the deterministic quality score used to rank
// assets inside a duplicate group. The score is a sum of resolution, codec,
// bitrate, audio, subtitle, and HDR components clamped to [0,200].
package quality
