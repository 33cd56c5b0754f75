package sweeper

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mirandadam/hsync/pkg/catalog"
	"github.com/mirandadam/hsync/pkg/log"
	"github.com/mirandadam/hsync/pkg/types"
)

func init() {
	log.Init(log.Config{Level: log.ErrorLevel})
}

func setup(t *testing.T) (src, dst string, cat *catalog.Catalog, s *Sweeper) {
	t.Helper()
	src = t.TempDir()
	dst = t.TempDir()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "hsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	s = New(Config{SourceRoot: src, DestRoot: dst, Catalog: cat})
	return src, dst, cat, s
}

func TestDeletesExtraWhenSourceAbsent(t *testing.T) {
	_, dst, cat, s := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(dst, "extra.txt"), []byte("x"), 0644))
	require.NoError(t, cat.PutDestEntry(&types.DestEntry{RelPath: "extra.txt", Size: 1}))

	out := s.Run(context.Background())
	require.NoError(t, out.Err)
	require.Equal(t, int64(1), out.Deleted)

	_, err := os.Stat(filepath.Join(dst, "extra.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestKeepsFileWhenLiveCheckFindsSource(t *testing.T) {
	src, dst, cat, s := setup(t)
	// Not in the catalog (created after the scan), but present live
	require.NoError(t, os.WriteFile(filepath.Join(src, "late.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "late.txt"), []byte("x"), 0644))
	require.NoError(t, cat.PutDestEntry(&types.DestEntry{RelPath: "late.txt", Size: 1}))

	out := s.Run(context.Background())
	require.NoError(t, out.Err)
	require.Zero(t, out.Deleted)
	require.Equal(t, int64(1), out.FilesSkip)

	_, err := os.Stat(filepath.Join(dst, "late.txt"))
	require.NoError(t, err)
}

func TestKeepsFileKnownToCatalog(t *testing.T) {
	src, dst, cat, s := setup(t)
	srcPath := filepath.Join(src, "keep.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "keep.txt"), []byte("x"), 0644))
	require.NoError(t, cat.UpsertScanned(&types.FileRecord{
		SourcePath: srcPath,
		DestPath:   filepath.Join(dst, "keep.txt"),
		Size:       1,
	}, false))
	require.NoError(t, cat.PutDestEntry(&types.DestEntry{RelPath: "keep.txt", Size: 1}))

	out := s.Run(context.Background())
	require.Zero(t, out.Deleted)

	_, err := os.Stat(filepath.Join(dst, "keep.txt"))
	require.NoError(t, err)
}

func TestLiveCheckErrorSkipsCandidate(t *testing.T) {
	src, dst, cat, s := setup(t)
	// A parent directory without execute permission makes the stat
	// fail with EACCES rather than ENOENT.
	locked := filepath.Join(src, "locked")
	require.NoError(t, os.MkdirAll(locked, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dst, "locked"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "locked", "f.txt"), nil, 0644))
	require.NoError(t, cat.PutDestEntry(&types.DestEntry{
		RelPath: filepath.Join("locked", "f.txt"),
	}))
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	if os.Getuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	out := s.Run(context.Background())
	require.NoError(t, out.Err)
	require.Zero(t, out.Deleted)

	_, err := os.Stat(filepath.Join(dst, "locked", "f.txt"))
	require.NoError(t, err)
}

func TestStaleRecordDropped(t *testing.T) {
	src, dst, cat, s := setup(t)
	srcPath := filepath.Join(src, "gone.txt")
	// Synced in a previous run, since deleted at the source
	require.NoError(t, cat.UpsertScanned(&types.FileRecord{
		SourcePath: srcPath,
		DestPath:   filepath.Join(dst, "gone.txt"),
		Size:       1,
	}, false))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "gone.txt"), []byte("x"), 0644))
	require.NoError(t, cat.PutDestEntry(&types.DestEntry{RelPath: "gone.txt", Size: 1}))

	out := s.Run(context.Background())
	require.NoError(t, out.Err)
	// The stale row does not protect the file: the live check rules
	require.Equal(t, int64(1), out.Deleted)

	_, err := os.Stat(filepath.Join(dst, "gone.txt"))
	require.True(t, os.IsNotExist(err))
	_, err = cat.GetRecord(srcPath)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}
