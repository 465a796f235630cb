package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// candidate is a file selected by the walk for probing.
type candidate struct {
	logicalPath  string
	resolvedPath string
	sizeBytes    int64
	modTime      time.Time
}

// devIno identifies a directory across symlinks for cycle detection.
type devIno struct {
	dev uint64
	ino uint64
}

// sourceLikeSegments names directory segments where small files with media
// extensions are usually fixtures or samples rather than library content.
var sourceLikeSegments = map[string]struct{}{
	"src":      {},
	"source":   {},
	"sources":  {},
	"code":     {},
	"scripts":  {},
	"test":     {},
	"tests":    {},
	"testdata": {},
	"fixtures": {},
	"samples":  {},
}

type walker struct {
	mediaExts    map[string]struct{}
	archiveExts  map[string]struct{}
	denyDirs     map[string]struct{}
	minBytes     int64
	visited      map[devIno]struct{}
	emit         func(candidate) error
	skippedDirs  int
	skippedFiles int
}

func newWalker(mediaExts, archiveExts, denyDirs map[string]struct{}, minBytes int64, emit func(candidate) error) *walker {
	return &walker{
		mediaExts:   mediaExts,
		archiveExts: archiveExts,
		denyDirs:    denyDirs,
		minBytes:    minBytes,
		visited:     make(map[devIno]struct{}),
		emit:        emit,
	}
}

// walk crawls resolvedRoot depth-first in directory-entry order, handing
// each candidate to the emit callback under its logical path as it is
// found. Symlinks are followed once; a directory already visited under
// another name is skipped.
func (w *walker) walk(logicalRoot, resolvedRoot string) error {
	info, err := os.Stat(resolvedRoot)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root is not a directory: %s", resolvedRoot)
	}
	if !w.markVisited(info) {
		return nil
	}
	return w.walkDir(logicalRoot, resolvedRoot)
}

func (w *walker) walkDir(logicalDir, resolvedDir string) error {
	entries, err := os.ReadDir(resolvedDir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", resolvedDir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		logical := filepath.Join(logicalDir, name)
		resolved := filepath.Join(resolvedDir, name)

		// Stat follows symlinks, so a link to a directory recurses and a
		// link to a file classifies like a regular file.
		info, err := os.Stat(resolved)
		if err != nil {
			w.skippedFiles++
			continue
		}

		if info.IsDir() {
			if _, denied := w.denyDirs[strings.ToLower(name)]; denied {
				w.skippedDirs++
				continue
			}
			if !w.markVisited(info) {
				w.skippedDirs++
				continue
			}
			if err := w.walkDir(logical, resolved); err != nil {
				return err
			}
			continue
		}

		if !w.isMedia(logical, info) {
			w.skippedFiles++
			continue
		}
		if err := w.emit(candidate{
			logicalPath:  logical,
			resolvedPath: resolved,
			sizeBytes:    info.Size(),
			modTime:      info.ModTime(),
		}); err != nil {
			return err
		}
	}
	return nil
}

// markVisited records a directory's device/inode pair and reports whether
// this is its first visit.
func (w *walker) markVisited(info fs.FileInfo) bool {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return true
	}
	key := devIno{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}
	if _, seen := w.visited[key]; seen {
		return false
	}
	w.visited[key] = struct{}{}
	return true
}

// isMedia classifies by extension set. The size floor rejects files only
// under source-like directory segments; elsewhere a short clip is still
// media, and a file exactly at the floor always is. Archive extensions
// never qualify.
func (w *walker) isMedia(logical string, info fs.FileInfo) bool {
	ext := strings.ToLower(filepath.Ext(logical))
	if ext == "" {
		return false
	}
	if _, archive := w.archiveExts[ext]; archive {
		return false
	}
	if _, media := w.mediaExts[ext]; !media {
		return false
	}
	if info.Size() < w.minBytes && underSourceLikeDir(logical) {
		return false
	}
	return true
}

// underSourceLikeDir reports whether any directory segment of the path
// matches the source-tree name set.
func underSourceLikeDir(logical string) bool {
	dir := filepath.Dir(logical)
	for _, segment := range strings.Split(dir, string(filepath.Separator)) {
		if _, ok := sourceLikeSegments[strings.ToLower(segment)]; ok {
			return true
		}
	}
	return false
}
