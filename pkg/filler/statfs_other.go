//go:build !linux && !darwin && !freebsd

package filler

// VolumeFreeBytes is not available here; FreeBytes degrades to 0.
func VolumeFreeBytes(string) (uint64, error) {
	return 0, ErrUnsupported
}
