//go:build !linux && !darwin

package scanner

import "io/fs"

// Platforms without a POSIX stat structure fall back to mtime only;
// atime is reported as mtime, ctime stays zero, and the writer applies
// mtime twice.
func statTimes(info fs.FileInfo) (atime, ctime int64) {
	return info.ModTime().UnixNano(), 0
}
