package loader

import (
	"fmt"
	"path/filepath"

	"github.com/appsworld/go-rtld/internal/dso"
)

// LoadGraph loads rootPath and then breadth-first walks its DT_NEEDED
// chain, loading each not-yet-registered dependency exactly once.
// Cycles (A needs B needs A) are handled naturally: the second
// encounter of an already-registered realpath just bumps its refcount
// via Load's registry lookup instead of recursing again.
func (l *Loader) LoadGraph(rootPath string) (*dso.DSO, error) {
	root, err := l.Load(rootPath, 0)
	if err != nil {
		return nil, err
	}

	visited := map[*dso.DSO]bool{root: true}
	queue := []*dso.DSO{root}
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]

		origin := filepath.Dir(d.Path)
		for _, needed := range d.Needed {
			path, err := l.Search.Resolve(needed, origin, d.RPath, d.RunPath)
			if err != nil {
				return nil, fmt.Errorf("loader: cannot locate dependency %q needed by %s: %w", needed, d.Path, err)
			}
			dep, err := l.Load(path, 0)
			if err != nil {
				return nil, fmt.Errorf("loader: loading dependency %q: %w", needed, err)
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return root, nil
}
