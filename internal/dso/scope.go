package dso

// Scope is an ordered, non-owning symbol search path: the sequence of
// DSOs a resolution walks through, per spec.md §5's two-level scope
// (an object's own dependency scope, then the global scope for
// RTLD_GLOBAL/main-executable symbols).
type Scope []*DSO

// GlobalScope builds the process-wide scope: every DSO loaded with
// RTLD_GLOBAL, in link-map order. The resolver falls back to this
// scope when an object's own local scope misses and the lookup isn't
// RTLD_LOCAL-restricted.
func GlobalScope(r *Registry, global map[*DSO]bool) Scope {
	var s Scope
	for _, d := range r.All() {
		if global[d] {
			s = append(s, d)
		}
	}
	return s
}

// DependencyScope performs a breadth-first walk of root's DT_NEEDED
// graph (as already-resolved DSO pointers reachable via the
// registry), producing the object's own local search scope. Objects
// are visited once each, first occurrence wins — this is what gives
// load order priority during symbol interposition.
func DependencyScope(root *DSO, deps func(*DSO) []*DSO) Scope {
	seen := map[*DSO]bool{root: true}
	order := Scope{root}
	queue := []*DSO{root}
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		for _, child := range deps(d) {
			if child == nil || seen[child] {
				continue
			}
			seen[child] = true
			order = append(order, child)
			queue = append(queue, child)
		}
	}
	return order
}

// Contains reports whether d appears anywhere in the scope.
func (s Scope) Contains(d *DSO) bool {
	for _, e := range s {
		if e == d {
			return true
		}
	}
	return false
}

// DependencyPostOrder performs a depth-first, post-order walk of
// root's dependency graph: a node is only appended once every
// dependency reachable from it has already been appended, so a
// dependency always precedes every object that needs it. This is the
// order spec.md §4.4 requires for relocation and initialization across
// DSOs (dependency-first; finalization runs the reverse).
//
// DependencyScope's breadth-first walk is the right shape for symbol
// search priority (closest-loaded-first interposition), but it is not
// a topological order: on a diamond (app needs [libssl, libc], libssl
// also needs libc), BFS discovers libc and libssl at the same
// level, in DT_NEEDED table order, with no guarantee libc precedes
// libssl. This walk recurses into a node's dependencies before
// appending the node itself, so libc always lands before libssl
// regardless of discovery order. onStack breaks any dependency cycle
// by refusing to re-enter a node already being visited, per spec.md
// §4.2's cycle-tolerant load requirement.
func DependencyPostOrder(root *DSO, deps func(*DSO) []*DSO) Scope {
	visited := map[*DSO]bool{}
	onStack := map[*DSO]bool{}
	var order Scope

	var visit func(d *DSO)
	visit = func(d *DSO) {
		if d == nil || visited[d] || onStack[d] {
			return
		}
		onStack[d] = true
		for _, child := range deps(d) {
			visit(child)
		}
		onStack[d] = false
		visited[d] = true
		order = append(order, d)
	}
	visit(root)
	return order
}

// Merge concatenates scopes into one search path, keeping only the
// first occurrence of each DSO: earlier scopes take priority over
// later ones, matching spec.md §5's two-level lookup order (an
// object's own dependency scope first, the process-wide global scope
// as fallback).
func Merge(scopes ...Scope) Scope {
	seen := map[*DSO]bool{}
	var out Scope
	for _, s := range scopes {
		for _, d := range s {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
