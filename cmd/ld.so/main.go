// Command ld.so is the standalone dynamic linker entry point:
// `ld.so [--argv0 NAME] [--library-path DIRS] PROG [ARGS…]`. It loads
// PROG and its transitive DT_NEEDED graph, relocates and initializes
// every object in dependency order, and reports the outcome with the
// same exit-code contract a real ld.so gives the kernel: 0 on success,
// 127 on load failure, 126 on a permission failure.
//
// Mirrors go-macho/cmd/dtest and cmd/swiftparity's shape: a short,
// flag-free main wired directly against the library rather than a
// general-purpose CLI framework — the teacher has no precedent for one
// and this binary's argv grammar (options, then an opaque PROG ARGS…
// tail that must not be touched) does not fit the stdlib flag
// package's "flags, then positional args" model anyway, so argv is
// walked by hand exactly as glibc's own ld.so does.
package main

import (
	"fmt"
	"os"
	"strings"

	xenv "github.com/xyproto/env/v2"

	rtld "github.com/appsworld/go-rtld"
)

type options struct {
	argv0       string
	libraryPath string
	prog        string
	progArgs    []string
}

func parseArgs(argv []string) (options, error) {
	var o options
	i := 0
	for i < len(argv) {
		switch {
		case argv[i] == "--argv0":
			if i+1 >= len(argv) {
				return o, fmt.Errorf("--argv0 requires a value")
			}
			o.argv0 = argv[i+1]
			i += 2
		case strings.HasPrefix(argv[i], "--argv0="):
			o.argv0 = strings.TrimPrefix(argv[i], "--argv0=")
			i++
		case argv[i] == "--library-path":
			if i+1 >= len(argv) {
				return o, fmt.Errorf("--library-path requires a value")
			}
			o.libraryPath = argv[i+1]
			i += 2
		case strings.HasPrefix(argv[i], "--library-path="):
			o.libraryPath = strings.TrimPrefix(argv[i], "--library-path=")
			i++
		default:
			o.prog = argv[i]
			o.progArgs = argv[i+1:]
			i = len(argv)
		}
	}
	if o.prog == "" {
		return o, fmt.Errorf("usage: ld.so [--argv0 NAME] [--library-path DIRS] PROG [ARGS...]")
	}
	if o.argv0 == "" {
		o.argv0 = o.prog
	}
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	opts, err := parseArgs(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ld.so:", err)
		return 127
	}

	if opts.libraryPath != "" {
		ldLibraryPath := opts.libraryPath
		if existing := xenv.Str("LD_LIBRARY_PATH"); existing != "" {
			ldLibraryPath += ":" + existing
		}
		os.Setenv("LD_LIBRARY_PATH", ldLibraryPath)
	}
	bindNow := xenv.Str("LD_BIND_NOW") != ""
	ldDebug := xenv.Str("LD_DEBUG")
	preload := splitPreload(xenv.Str("LD_PRELOAD"))

	linker := rtld.New(rtld.Config{LDDebug: ldDebug})
	linker.Debug.Printf("libs", "argv0=%s prog=%s library-path=%s", opts.argv0, opts.prog, xenv.Str("LD_LIBRARY_PATH"))

	mode := rtld.RTLD_GLOBAL
	if bindNow {
		mode |= rtld.RTLD_NOW
	} else {
		mode |= rtld.RTLD_LAZY
	}

	for _, p := range preload {
		if _, err := linker.Dlopen(p, mode); err != nil {
			fmt.Fprintln(os.Stderr, "ld.so: LD_PRELOAD:", err)
			return exitCodeFor(err)
		}
	}

	_, err = linker.Dlopen(opts.prog, mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ld.so:", err)
		return exitCodeFor(err)
	}

	linker.Debug.Printf("libs", "loaded %d objects", len(linker.LinkMap()))
	// Transferring control to PROG's entry point requires an
	// architecture-specific call trampoline this linker does not
	// implement (see internal/lifecycle's documented limitation on
	// invoking foreign machine code from a hosted Go runtime); a real
	// ld.so's exit code past this point is PROG's own exit status.
	return 0
}

func splitPreload(raw string) []string {
	raw = strings.ReplaceAll(raw, ":", " ")
	return strings.Fields(raw)
}

func exitCodeFor(err error) int {
	if os.IsPermission(err) {
		return 126
	}
	return 127
}
