// Package paths maps logical NAS paths recorded in the catalog onto
// concrete filesystem paths. Shares move between hosts; the resolver tries
// an ordered candidate list instead of trusting the stored path.
package paths
