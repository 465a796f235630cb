// Package services defines the shared error taxonomy and retry helpers used
// by the scanner, duplicate engine, and deletion workflow. Errors are tagged
// with sentinel markers so callers can classify failures without string
// matching.
package services
