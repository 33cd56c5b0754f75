//go:build linux

package scanner

import (
	"io/fs"
	"syscall"
)

// statTimes extracts atime and ctime in nanoseconds from the
// platform stat structure. mtime comes from fs.FileInfo directly.
func statTimes(info fs.FileInfo) (atime, ctime int64) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return st.Atim.Nano(), st.Ctim.Nano()
}
