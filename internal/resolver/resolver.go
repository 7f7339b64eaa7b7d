// Package resolver implements symbol lookup across a scope: walking
// each candidate DSO's GNU or SysV hash table, filtering by symbol
// versioning, and caching the (scope, name) -> result mapping the way
// spec.md §5 describes. It plays the role the teacher's Symtab/
// Dysymtab lookups play in file.go, generalized from "find this
// symbol in this one file" to "find this symbol across an ordered
// scope, honoring version requirements and interposition order".
package resolver

import (
	"fmt"
	"unsafe"

	lru "github.com/hashicorp/golang-lru"

	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/types"
)

// Result is a resolved symbol: which DSO defines it and its absolute
// runtime address.
type Result struct {
	DSO    *dso.DSO
	Sym    types.Sym
	Addr   uint64
}

// Request describes one lookup: a symbol name, an optional version
// requirement (empty if none), and the scope to search.
type Request struct {
	Name    string
	Version string
	Scope   dso.Scope
	// Skip, if non-nil, is excluded from the search — used by
	// RTLD_NEXT-style lookups that must skip the requesting object.
	Skip *dso.DSO
}

type cacheKey struct {
	name    string
	version string
	scopeID uintptr // address of the scope's first element as a cheap identity
}

// Resolver performs scoped symbol lookups with an LRU result cache.
// The cache is invalidated implicitly: a dlopen/dlclose that mutates
// any DSO's link-map membership changes the scope slice's identity
// (new backing array), which changes scopeID, so stale entries simply
// stop being looked up rather than needing active invalidation.
type Resolver struct {
	cache *lru.Cache
}

// New returns a Resolver with a cache sized for cacheSize distinct
// (scope, name, version) lookups.
func New(cacheSize int) (*Resolver, error) {
	c, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("resolver: creating cache: %w", err)
	}
	return &Resolver{cache: c}, nil
}

// Resolve searches req.Scope in order for the first DSO defining
// req.Name, filtering candidates by req.Version when set, and
// preferring the first STB_GLOBAL (strong) definition found anywhere
// in the scope over any STB_WEAK one — scopes are already ordered by
// load/dependency priority, but per spec.md §4.3 a weak match earlier
// in the scope does not shadow a strong definition later in it. A
// weak match is kept as a fallback candidate and only returned if the
// rest of the scope never yields a strong definition.
func (r *Resolver) Resolve(req Request) (Result, bool) {
	key := cacheKey{name: req.Name, version: req.Version, scopeID: scopeIdentity(req.Scope)}
	if v, ok := r.cache.Get(key); ok {
		res := v.(Result)
		return res, res.DSO != nil
	}

	var weak Result
	haveWeak := false
	for _, d := range req.Scope {
		if d == req.Skip {
			continue
		}
		sym, ok := lookupInDSO(d, req.Name, req.Version)
		if !ok {
			continue
		}
		res := Result{DSO: d, Sym: sym, Addr: uint64(d.LoadBias) + sym.Value}
		if sym.Bind == types.STB_WEAK {
			if !haveWeak {
				weak = res
				haveWeak = true
			}
			continue
		}
		r.cache.Add(key, res)
		return res, true
	}
	if haveWeak {
		r.cache.Add(key, weak)
		return weak, true
	}
	r.cache.Add(key, Result{})
	return Result{}, false
}

// scopeIdentity returns a cheap, stable-for-the-slice's-lifetime
// identity for a scope: the address of its backing array. Any
// lifecycle mutation (dlopen/dlclose) that changes scope membership
// always rebuilds the scope slice from scratch (see dso.Scope
// construction in internal/lifecycle), so this is a correct cache key
// without tracking generation counters explicitly.
func scopeIdentity(s dso.Scope) uintptr {
	if len(s) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(s)))
}
