//go:build !linux && !darwin

package transfer

import (
	"os"
	"time"
)

func applyTimes(path string, atime, mtime, _ int64) error {
	return os.Chtimes(path, time.Unix(0, atime), time.Unix(0, mtime))
}
