// Command mediavault is the CLI for the media library custodian: scanning
// NAS roots into the catalog, rebuilding duplicate groups, and driving the
// two-phase deletion staging workflow.
package main
