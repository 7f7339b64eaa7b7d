package reloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/pkg/osshim"
)

type recordingOS struct {
	mprotectAddr uintptr
	mprotectLen  int
	mprotectProt osshim.Prot
	called       bool
}

func (r *recordingOS) Open(path string) (osshim.File, error)  { return nil, nil }
func (r *recordingOS) Mmap(fd osshim.File, offset int64, addr uintptr, length int, prot osshim.Prot, flags osshim.MapFlags) (uintptr, error) {
	return 0, nil
}
func (r *recordingOS) MmapAnon(addr uintptr, length int, prot osshim.Prot, flags osshim.MapFlags) (uintptr, error) {
	return 0, nil
}
func (r *recordingOS) Munmap(addr uintptr, length int) error { return nil }
func (r *recordingOS) Mprotect(addr uintptr, length int, prot osshim.Prot) error {
	r.called = true
	r.mprotectAddr, r.mprotectLen, r.mprotectProt = addr, length, prot
	return nil
}
func (r *recordingOS) PageSize() int                      { return 4096 }
func (r *recordingOS) ThreadPointer() (uintptr, error)    { return 0, nil }
func (r *recordingOS) SetThreadPointer(p uintptr) error   { return nil }

func TestRelockReprotectsRelroRange(t *testing.T) {
	os := &recordingOS{}
	d := &dso.DSO{RelroStart: 0x2000, RelroEnd: 0x2800}

	require.NoError(t, Relock(os, d))
	assert.True(t, os.called)
	assert.Equal(t, uintptr(0x2000), os.mprotectAddr)
	assert.Equal(t, 4096, os.mprotectLen)
	assert.Equal(t, osshim.ProtRead, os.mprotectProt)
}

func TestRelockNoopWithoutRelro(t *testing.T) {
	os := &recordingOS{}
	d := &dso.DSO{}
	require.NoError(t, Relock(os, d))
	assert.False(t, os.called)
}
