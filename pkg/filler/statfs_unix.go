//go:build linux || darwin || freebsd

package filler

import "golang.org/x/sys/unix"

// VolumeFreeBytes returns the bytes available to unprivileged users on the
// volume containing dir.
func VolumeFreeBytes(dir string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, err
	}

	// Field widths and signedness differ between platforms.
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil //nolint:gosec,unconvert // kernel values are non-negative
}
