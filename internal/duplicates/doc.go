// Package duplicates builds duplicate groups over the live asset set:
// exact groups keyed by content fingerprint and fuzzy groups keyed by
// parsed identity similarity. Members are ranked by quality and each
// non-best member carries a recommendation shaped by language guardrails.
package duplicates
