package debugtrace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTokensSplitsCommaList(t *testing.T) {
	set := ParseTokens("libs,reloc, symbols")
	assert.True(t, set[TokenLibs])
	assert.True(t, set[TokenReloc])
	assert.True(t, set[TokenSymbols])
	assert.False(t, set[TokenBindings])
}

func TestParseTokensEmptyString(t *testing.T) {
	set := ParseTokens("")
	assert.Empty(t, set)
}

func TestTracerEnabledRespectsAllToken(t *testing.T) {
	tr := &Tracer{tokens: ParseTokens("all"), out: &bytes.Buffer{}}
	assert.True(t, tr.Enabled(TokenLibs))
	assert.True(t, tr.Enabled(TokenReloc))
}

func TestTracerPrintfGatedByToken(t *testing.T) {
	var buf bytes.Buffer
	tr := &Tracer{tokens: ParseTokens("reloc"), out: &buf}
	tr.Printf(TokenLibs, "should not appear")
	assert.Empty(t, buf.String())

	tr.Printf(TokenReloc, "applied %d relocations", 3)
	assert.Contains(t, buf.String(), "[reloc] applied 3 relocations")
}

func TestTracerTableGatedByToken(t *testing.T) {
	var buf bytes.Buffer
	tr := &Tracer{tokens: ParseTokens("libs"), out: &buf}
	tr.Table(TokenLibs, []string{"Path", "Base"}, [][]string{{"/lib/libc.so.6", "0x7f0000"}})
	assert.Contains(t, buf.String(), "libc.so.6")

	buf.Reset()
	tr.Table(TokenSymbols, []string{"Name"}, [][]string{{"foo"}})
	assert.Empty(t, buf.String())
}

func TestTracerDumpAllOnlyUnderAllToken(t *testing.T) {
	var buf bytes.Buffer
	tr := &Tracer{tokens: ParseTokens("reloc"), out: &buf}
	tr.DumpAll("scope", struct{ X int }{X: 1})
	assert.Empty(t, buf.String())

	tr2 := &Tracer{tokens: ParseTokens("all"), out: &buf}
	tr2.DumpAll("scope", struct{ X int }{X: 1})
	assert.Contains(t, buf.String(), "scope")
}
