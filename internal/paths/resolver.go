package paths

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mediavault/internal/config"
	"mediavault/internal/logging"
)

// Resolver turns logical catalog paths into accessible filesystem paths by
// probing an ordered candidate list. Resolution never fails; an
// inaccessible path resolves to the empty string and the caller decides
// what that means.
type Resolver struct {
	shareMountPrefix  string
	devFallbackPrefix string
	stageRoots        []string
	logger            *slog.Logger
}

// NewResolver builds a resolver from the configured path prefixes.
func NewResolver(cfg *config.Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		shareMountPrefix:  strings.TrimSpace(cfg.Paths.ShareMountPrefix),
		devFallbackPrefix: strings.TrimSpace(cfg.Paths.DevFallbackPrefix),
		stageRoots:        append([]string(nil), cfg.Paths.StageRootCandidates...),
		logger:            logger.With(logging.String(logging.FieldComponent, "paths")),
	}
}

// Resolve returns the first candidate for logical that exists on the local
// filesystem, or the empty string when none does. Candidates are tried in
// order: the path as given, the path re-rooted under the share mount
// prefix, the path re-rooted under the development fallback prefix.
func (r *Resolver) Resolve(logical string) string {
	logical = strings.TrimSpace(logical)
	if logical == "" {
		return ""
	}

	for _, candidate := range r.candidates(logical) {
		if _, err := os.Stat(candidate); err == nil {
			if candidate != logical {
				r.logger.Debug("resolved logical path via prefix rewrite",
					logging.String(logging.FieldPath, logical),
					logging.String("resolved_path", candidate))
			}
			return candidate
		}
	}

	r.logger.Debug("logical path unresolved", logging.String(logging.FieldPath, logical))
	return ""
}

func (r *Resolver) candidates(logical string) []string {
	out := make([]string, 0, 3)
	out = append(out, logical)
	if rewritten := rewriteUnder(logical, r.shareMountPrefix); rewritten != "" {
		out = append(out, rewritten)
	}
	if rewritten := rewriteUnder(logical, r.devFallbackPrefix); rewritten != "" {
		out = append(out, rewritten)
	}
	return out
}

// rewriteUnder re-roots an absolute logical path under prefix. A path that
// already lives under the prefix is not rewritten again.
func rewriteUnder(logical, prefix string) string {
	if prefix == "" || strings.HasPrefix(logical, prefix+string(filepath.Separator)) || logical == prefix {
		return ""
	}
	return filepath.Join(prefix, strings.TrimPrefix(logical, "/"))
}

// ResolveParent returns the first candidate for logical whose parent
// directory exists, or the empty string when none does. Used when a file is
// about to be created at the logical location, so the path itself is not
// required to exist.
func (r *Resolver) ResolveParent(logical string) string {
	logical = strings.TrimSpace(logical)
	if logical == "" {
		return ""
	}
	for _, candidate := range r.candidates(logical) {
		if info, err := os.Stat(filepath.Dir(candidate)); err == nil && info.IsDir() {
			return candidate
		}
	}
	return ""
}

// StageRoots returns the ordered holding-directory candidates. The caller
// probes each for writability.
func (r *Resolver) StageRoots() []string {
	return append([]string(nil), r.stageRoots...)
}
