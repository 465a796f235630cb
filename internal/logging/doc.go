// Package logging provides slog construction and shared structured-logging
// conventions for MediaVault. It offers a human-oriented console handler and
// a JSON handler, typed attribute helpers, and context-scoped loggers keyed
// by run and asset identifiers.
package logging
