// Package fileutil provides shared filesystem helpers: verified copies,
// cross-device safe moves, and collision-free destination names.
package fileutil
