package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseELFHeaderAndPhdrs(t *testing.T) {
	data := []byte{0xc3, 0x90, 0x90, 0x90} // ret; nop; nop; nop
	img := minimalELF(0x1000, data, 0x1000)

	parsed, err := parseELF(byteReaderAt{img})
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), parsed.Header.Entry)
	require.Len(t, parsed.Phdrs, 1)
	assert.True(t, parsed.Phdrs[0].Flags.Execute())
	assert.False(t, parsed.Phdrs[0].Flags.Write())
}

func TestSearchPathResolveMissingLibrary(t *testing.T) {
	sp := &SearchPath{Default: []string{"/usr/lib"}}
	_, err := sp.Resolve("libnonexistent-xyz.so", "/some/dir", "", "")
	assert.Error(t, err)
}

func TestSearchPathAbsoluteNameMissing(t *testing.T) {
	sp := &SearchPath{}
	_, err := sp.Resolve("/definitely/not/there.so", "", "", "")
	assert.Error(t, err)
}

func TestSearchPathOriginExpansion(t *testing.T) {
	got := expandOrigin([]string{"$ORIGIN/../lib", "${ORIGIN}/plugins"}, "/opt/app/bin")
	assert.Equal(t, []string{"/opt/app/bin/../lib", "/opt/app/bin/plugins"}, got)
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"/a", "/b"}, splitPath("/a:/b"))
	assert.Nil(t, splitPath(""))
}
