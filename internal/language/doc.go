// Package language normalizes ISO-639 language codes found in media stream
// tags and provides the English-audio predicates used by the duplicate
// engine's language guardrails.
package language
