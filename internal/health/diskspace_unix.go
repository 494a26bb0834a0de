//go:build linux || darwin

package health

import "golang.org/x/sys/unix"

// freeBytes returns the free disk space available at path.
func freeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil //nolint:gosec // Bsize is always non-negative on real filesystems
}
