// Command ldtree is the supplemental ldd(1)-style tool: given an ELF
// object, it loads the object's full DT_NEEDED dependency graph (but
// does not relocate or initialize anything) and prints each resolved
// dependency's path and load address, the same report `ldd` produces.
//
// Shape grounded on go-macho/cmd/dtest: a short main wired straight
// against the library, no flag framework.
package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/internal/loader"
	"github.com/appsworld/go-rtld/pkg/osshim"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: ldtree PROG")
		os.Exit(1)
	}
	os.Exit(run(os.Args[1]))
}

func run(path string) int {
	osImpl := osshim.Linux{}
	reg := dso.NewRegistry()
	search := loader.NewSearchPath()
	ld := &loader.Loader{OS: osImpl, Registry: reg, Search: search}

	root, err := ld.LoadGraph(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ldtree:", err)
		return 1
	}

	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader([]string{"Name", "Path", "Load Bias", "Refs"})
	for _, d := range dso.DependencyScope(root, func(d *dso.DSO) []*dso.DSO {
		return childrenOf(reg, d)
	}) {
		name := d.SoName
		if name == "" {
			name = d.Path
		}
		tbl.Append([]string{
			name,
			d.Path,
			fmt.Sprintf("%#x", d.LoadBias),
			fmt.Sprintf("%d", d.RefCount()),
		})
	}
	tbl.Render()
	return 0
}

func childrenOf(reg *dso.Registry, d *dso.DSO) []*dso.DSO {
	var out []*dso.DSO
	for _, name := range d.Needed {
		for _, cand := range reg.All() {
			if cand.SoName == name || cand.Path == name {
				out = append(out, cand)
				break
			}
		}
	}
	return out
}
