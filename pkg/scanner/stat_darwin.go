//go:build darwin

package scanner

import (
	"io/fs"
	"syscall"
)

func statTimes(info fs.FileInfo) (atime, ctime int64) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return st.Atimespec.Nano(), st.Ctimespec.Nano()
}
