// Package projectroot locates the directory that anchors persisted
// capture output.
package projectroot

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// EnvOverride is the environment variable holding an absolute-path
// override for the project root.
const EnvOverride = "TDD_GUARD_PROJECT_ROOT"

// Marker groups checked at each level of the upward walk, highest
// priority first: a version-control root, then a build manifest, then
// a marker directory this system created on a previous run. Build
// manifest entries are glob patterns matched against directory
// contents.
var defaultMarkerGroups = [][]string{
	{".git"},
	{"go.mod", "package.json", "*.sln", "*.csproj", "Cargo.toml", "pyproject.toml"},
	{".claude/tdd-guard"},
}

// Resolver walks upward from a starting directory looking for root
// markers. The zero value is not usable; construct with New.
type Resolver struct {
	log          *zap.Logger
	markerGroups [][]string
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithMarkerGroups replaces the default marker priority list. Each
// inner slice is one priority tier of glob patterns.
func WithMarkerGroups(groups [][]string) Option {
	return func(r *Resolver) {
		if len(groups) > 0 {
			r.markerGroups = groups
		}
	}
}

// New returns a Resolver with the default marker priorities.
func New(log *zap.Logger, opts ...Option) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{log: log, markerGroups: defaultMarkerGroups}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the absolute directory that should anchor persisted
// output.
//
// An absolute override wins unconditionally and is not checked for
// existence; the caller may create it later. Otherwise the walk starts
// at startDir and climbs toward the filesystem root, testing each
// marker group in priority order at every level. When no marker exists
// anywhere on the path, Resolve falls back to the starting directory
// rather than failing; a capture sink that refuses to run is worse
// than one anchored imperfectly.
func (r *Resolver) Resolve(override, startDir string) string {
	if override != "" && filepath.IsAbs(override) {
		return filepath.Clean(override)
	}
	if override != "" {
		r.log.Warn("ignoring non-absolute project root override", zap.String("override", override))
	}

	start, err := filepath.Abs(startDir)
	if err != nil {
		r.log.Warn("cannot absolutize start directory", zap.String("dir", startDir), zap.Error(err))
		return startDir
	}

	dir := start
	for {
		if r.hasMarker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			r.log.Debug("no root marker found, falling back to start directory",
				zap.String("start", start))
			return start
		}
		dir = parent
	}
}

// hasMarker reports whether any marker group matches in dir, checking
// groups in priority order.
func (r *Resolver) hasMarker(dir string) bool {
	for _, group := range r.markerGroups {
		for _, pattern := range group {
			if matchMarker(dir, pattern) {
				return true
			}
		}
	}
	return false
}

// matchMarker tests one marker pattern against a directory. Patterns
// without metacharacters are stat'd directly (covers nested markers
// like ".claude/tdd-guard"); glob patterns are matched against the
// immediate directory entries.
func matchMarker(dir, pattern string) bool {
	if !hasGlobMeta(pattern) {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(pattern)))
		return err == nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if ok, err := doublestar.Match(pattern, e.Name()); err == nil && ok {
			return true
		}
	}
	return false
}

func hasGlobMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
