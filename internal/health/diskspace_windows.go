//go:build windows

package health

import "golang.org/x/sys/windows"

// freeBytes returns the free disk space available at path.
func freeBytes(path string) (uint64, error) {
	var freeAvail, total, free uint64
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeAvail, &total, &free); err != nil {
		return 0, err
	}
	return freeAvail, nil
}
