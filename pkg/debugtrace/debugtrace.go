// Package debugtrace renders LD_DEBUG-style diagnostic output: tabular
// dumps of the link map and relocation activity via
// github.com/olekukonko/tablewriter, a verbose structure dump via
// github.com/davecgh/go-spew for the "all" token, colorized via
// github.com/mattn/go-colorable / github.com/mattn/go-isatty when the
// destination is a terminal. The teacher has no structured logger of
// its own — file.go and cmds.go lean on ad hoc String() methods and
// occasional log.Println — so this package follows that same texture
// rather than introducing a logging framework the teacher doesn't use.
package debugtrace

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
)

// Token is one LD_DEBUG category.
type Token string

const (
	TokenLibs    Token = "libs"
	TokenReloc   Token = "reloc"
	TokenSymbols Token = "symbols"
	TokenBindings Token = "bindings"
	TokenAll     Token = "all"
)

// ParseTokens splits an LD_DEBUG value's comma-separated token list
// (e.g. "libs,reloc") into a set, the way glibc's own LD_DEBUG parser
// does.
func ParseTokens(raw string) map[Token]bool {
	set := make(map[Token]bool)
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			set[Token(tok)] = true
		}
	}
	return set
}

// Tracer writes LD_DEBUG output for whichever tokens are enabled.
type Tracer struct {
	tokens map[Token]bool
	out    io.Writer
}

// New builds a Tracer writing to stderr, colorized through
// go-colorable/go-isatty when stderr is an actual terminal (matching
// the pattern curlwget-CortexTheseus uses for its own console output).
func New(raw string) *Tracer {
	var out io.Writer = os.Stderr
	if f, ok := out.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			out = colorable.NewColorable(f)
		} else {
			out = colorable.NewNonColorable(f)
		}
	}
	return &Tracer{tokens: ParseTokens(raw), out: out}
}

// Enabled reports whether t (or the "all" token) was requested.
func (tr *Tracer) Enabled(t Token) bool {
	return tr.tokens[TokenAll] || tr.tokens[t]
}

// Printf writes a one-line trace message for token t, if enabled.
func (tr *Tracer) Printf(t Token, format string, args ...interface{}) {
	if !tr.Enabled(t) {
		return
	}
	fmt.Fprintf(tr.out, "["+string(t)+"] "+format+"\n", args...)
}

// DumpAll writes a verbose go-spew structure dump of v, gated on the
// "all" token — this is deliberately the noisiest and least
// human-curated of the trace outputs, matching LD_DEBUG=all's real
// behavior of dumping everything the linker knows.
func (tr *Tracer) DumpAll(label string, v interface{}) {
	if !tr.tokens[TokenAll] {
		return
	}
	fmt.Fprintf(tr.out, "=== %s ===\n", label)
	spew.Fdump(tr.out, v)
}

// Table renders rows as an aligned table under header, the format
// TokenLibs uses for its link-map dump and TokenReloc uses for its
// per-relocation summary.
func (tr *Tracer) Table(t Token, header []string, rows [][]string) {
	if !tr.Enabled(t) {
		return
	}
	tbl := tablewriter.NewWriter(tr.out)
	tbl.SetHeader(header)
	for _, row := range rows {
		tbl.Append(row)
	}
	tbl.Render()
}
