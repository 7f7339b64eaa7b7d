//go:build linux && 386

package osshim

import "errors"

// i686's thread pointer lives in the GS segment, installed via
// set_thread_area rather than arch_prctl; wiring the full GDT-slot
// dance is out of scope for this module's i686 support (relocation
// and static-TLS-layout only), so callers get an explicit error
// instead of a silently wrong value.
func threadPointer() (uintptr, error) {
	return 0, errors.New("osshim: thread pointer read unsupported on i686")
}

func setThreadPointer(p uintptr) error {
	return errors.New("osshim: thread pointer write unsupported on i686")
}
