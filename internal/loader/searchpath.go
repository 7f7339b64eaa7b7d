package loader

import (
	"os"
	"path/filepath"
	"strings"

	xenv "github.com/xyproto/env/v2"
)

// SearchPath implements the library search order of spec.md §7:
// DT_RPATH (legacy, only when DT_RUNPATH is absent), LD_LIBRARY_PATH,
// DT_RUNPATH, then a fixed default path list (the ld.so.cache lookup
// glibc also performs is not done here).
type SearchPath struct {
	LDLibraryPath []string
	Default       []string
}

// NewSearchPath builds a SearchPath from the environment, reading
// LD_LIBRARY_PATH the way xyproto/env's typed accessors do elsewhere
// in this module's configuration surface.
func NewSearchPath() *SearchPath {
	raw := xenv.Str("LD_LIBRARY_PATH")
	var dirs []string
	if raw != "" {
		for _, d := range strings.Split(raw, ":") {
			if d != "" {
				dirs = append(dirs, d)
			}
		}
	}
	return &SearchPath{
		LDLibraryPath: dirs,
		Default:       []string{"/lib", "/usr/lib", "/lib64", "/usr/lib64"},
	}
}

// Resolve finds the on-disk path for a DT_NEEDED name, searching (in
// priority order): an absolute/relative name as-is, the requesting
// DSO's DT_RPATH (only if it has no DT_RUNPATH), LD_LIBRARY_PATH, the
// requesting DSO's DT_RUNPATH, then the default system paths.
func (s *SearchPath) Resolve(name, origin, rpath, runpath string) (string, error) {
	if strings.Contains(name, "/") {
		if fileExists(name) {
			return name, nil
		}
		return "", os.ErrNotExist
	}

	var candidates []string
	if runpath == "" && rpath != "" {
		candidates = append(candidates, expandOrigin(splitPath(rpath), origin)...)
	}
	candidates = append(candidates, s.LDLibraryPath...)
	if runpath != "" {
		candidates = append(candidates, expandOrigin(splitPath(runpath), origin)...)
	}
	candidates = append(candidates, s.Default...)

	for _, dir := range candidates {
		full := filepath.Join(dir, name)
		if fileExists(full) {
			return full, nil
		}
	}
	return "", os.ErrNotExist
}

func splitPath(p string) []string {
	var out []string
	for _, d := range strings.Split(p, ":") {
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// expandOrigin substitutes the $ORIGIN token (the requesting object's
// own directory) the way DF_ORIGIN-flagged RPATH/RUNPATH entries
// require.
func expandOrigin(dirs []string, origin string) []string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(d, "$ORIGIN", origin), "${ORIGIN}", origin)
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
