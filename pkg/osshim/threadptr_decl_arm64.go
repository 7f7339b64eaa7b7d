//go:build linux && arm64

package osshim

func readTPIDR() uintptr
func writeTPIDR(p uintptr)
