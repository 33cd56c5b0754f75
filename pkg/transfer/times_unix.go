//go:build linux || darwin

package transfer

import (
	"golang.org/x/sys/unix"
)

// applyTimes sets atime and mtime on the destination with nanosecond
// resolution. ctime is owned by the filesystem on POSIX systems and
// cannot be set from userspace, so the captured value is not applied.
func applyTimes(path string, atime, mtime, _ int64) error {
	ts := []unix.Timespec{
		unix.NsecToTimespec(atime),
		unix.NsecToTimespec(mtime),
	}
	return unix.UtimesNanoAt(unix.AT_FDCWD, path, ts, 0)
}
