package bootstrap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appsworld/go-rtld/internal/arch"
	"github.com/appsworld/go-rtld/types"
)

func TestParseAuxvExtractsFields(t *testing.T) {
	entries := []AuxEntry{
		{Type: AT_PHDR, Val: 0x400040},
		{Type: AT_PHENT, Val: 56},
		{Type: AT_PHNUM, Val: 9},
		{Type: AT_PAGESZ, Val: 4096},
		{Type: AT_ENTRY, Val: 0x401000},
		{Type: AT_NULL, Val: 0},
	}
	info, err := ParseAuxv(entries)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x400040), info.Phdr)
	assert.Equal(t, uint64(9), info.Phnum)
	assert.Equal(t, uint64(4096), info.PageSize)
}

func TestParseAuxvMissingTerminatorFails(t *testing.T) {
	_, err := ParseAuxv([]AuxEntry{{Type: AT_PHDR, Val: 1}})
	assert.Error(t, err)
}

func TestParseAuxvMissingRequiredFieldFails(t *testing.T) {
	_, err := ParseAuxv([]AuxEntry{{Type: AT_NULL}})
	assert.Error(t, err)
}

func TestSelfRelocateRejectsNonRelative(t *testing.T) {
	h, err := currentHandlerForTest()
	require.NoError(t, err)
	nonRelative := firstTypeNotClassifiedAs(h, types.RelRelative)
	err = SelfRelocate(h, 0, []types.RelEntry{{Type: nonRelative}})
	assert.Error(t, err)
}

func TestSelfRelocateAppliesRelative(t *testing.T) {
	h, err := currentHandlerForTest()
	require.NoError(t, err)

	buf := make([]uint64, 1)
	bias := int64(uintptr(unsafe.Pointer(&buf[0])))

	relType := firstTypeClassifiedAs(h, types.RelRelative)
	err = SelfRelocate(h, bias, []types.RelEntry{{Offset: 0, Type: relType, Addend: 0x20}})
	require.NoError(t, err)
	assert.Equal(t, uint64(bias)+0x20, buf[0])
}

func currentHandlerForTest() (arch.Handler, error) {
	a, err := arch.Current()
	if err != nil {
		return nil, err
	}
	h, ok := arch.For(a)
	if !ok {
		return nil, assertionErr("no handler registered")
	}
	return h, nil
}

type assertionErr string

func (e assertionErr) Error() string { return string(e) }

func firstTypeClassifiedAs(h arch.Handler, class types.RelClass) types.RelType {
	for t := types.RelType(0); t < 2048; t++ {
		if h.Classify(t) == class {
			return t
		}
	}
	return 0
}

func firstTypeNotClassifiedAs(h arch.Handler, class types.RelClass) types.RelType {
	for t := types.RelType(0); t < 2048; t++ {
		if h.Classify(t) != class && h.Classify(t) != types.RelNone {
			return t
		}
	}
	return 0
}
