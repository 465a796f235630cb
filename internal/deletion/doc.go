// Package deletion implements the two-phase deletion staging workflow.
// Files are first moved into a dated holding area, then permanently removed
// only after an explicit approval from outside this package. Every
// filesystem-effective mutation is logged as an archive operation.
package deletion
