package orchestrator

import (
	"bytes"
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mirandadam/hsync/pkg/catalog"
	"github.com/mirandadam/hsync/pkg/hasher"
	"github.com/mirandadam/hsync/pkg/log"
	"github.com/mirandadam/hsync/pkg/types"
)

func init() {
	log.Init(log.Config{Level: log.ErrorLevel})
}

type env struct {
	src, dst, db, logPath string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	return &env{
		src:     filepath.Join(dir, "src"),
		dst:     filepath.Join(dir, "dst"),
		db:      filepath.Join(dir, "hsync.db"),
		logPath: filepath.Join(dir, "hsync.log"),
	}
}

func (e *env) config() Config {
	return Config{
		SourceRoot:    e.src,
		DestRoot:      e.dst,
		DBPath:        e.db,
		LogPath:       e.logPath,
		Algorithm:     hasher.SHA256,
		BlockSize:     64 * 1024,
		QueueCapacity: 8,
		Quiet:         true,
	}
}

func (e *env) write(t *testing.T, rel string, content []byte) string {
	t.Helper()
	path := filepath.Join(e.src, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func (e *env) openCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Open(e.db)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat
}

func TestFreshSync(t *testing.T) {
	e := newEnv(t)
	small := []byte("Hello World\n")
	big := make([]byte, 512*1024)
	_, err := rand.Read(big)
	require.NoError(t, err)
	smallPath := e.write(t, "a.txt", small)
	bigPath := e.write(t, "big.bin", big)

	require.NoError(t, New(e.config()).Run(context.Background()))

	got, err := os.ReadFile(filepath.Join(e.dst, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, small, got)

	got, err = os.ReadFile(filepath.Join(e.dst, "big.bin"))
	require.NoError(t, err)
	require.True(t, bytes.Equal(big, got))

	cat := e.openCatalog(t)
	for _, p := range []string{smallPath, bigPath} {
		rec, err := cat.GetRecord(p)
		require.NoError(t, err)
		require.Equal(t, types.StatusSynced, rec.Status)
		require.NotEmpty(t, rec.Hash)
	}

	// Catalog and audit log exist on disk
	_, err = os.Stat(e.db)
	require.NoError(t, err)
	_, err = os.Stat(e.logPath)
	require.NoError(t, err)
}

func TestSecondRunSkipsEverything(t *testing.T) {
	e := newEnv(t)
	p := e.write(t, "a.txt", []byte("Hello World\n"))

	require.NoError(t, New(e.config()).Run(context.Background()))

	cat := e.openCatalog(t)
	rec, err := cat.GetRecord(p)
	require.NoError(t, err)
	firstHash := rec.Hash
	lifetime, err := cat.LifetimeBytes()
	require.NoError(t, err)
	cat.Close()

	// Unchanged source: the second run rescans (empty backlog) and
	// resolves everything to synced without moving a byte.
	require.NoError(t, New(e.config()).Run(context.Background()))

	cat2 := e.openCatalog(t)
	rec, err = cat2.GetRecord(p)
	require.NoError(t, err)
	require.Equal(t, types.StatusSynced, rec.Status)
	require.Equal(t, firstHash, rec.Hash, "hash must survive a benign rescan")

	after, err := cat2.LifetimeBytes()
	require.NoError(t, err)
	require.Equal(t, lifetime, after, "no bytes should be copied on a no-op run")
}

func TestUpdateRetransfersChangedFile(t *testing.T) {
	e := newEnv(t)
	p := e.write(t, "a.txt", []byte("Hello World\n"))
	require.NoError(t, New(e.config()).Run(context.Background()))

	// Shrink the file; mtime moves too
	time.Sleep(10 * time.Millisecond)
	e.write(t, "a.txt", []byte("Hi\n"))

	require.NoError(t, New(e.config()).Run(context.Background()))

	got, err := os.ReadFile(filepath.Join(e.dst, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("Hi\n"), got)

	cat := e.openCatalog(t)
	rec, err := cat.GetRecord(p)
	require.NoError(t, err)
	require.Equal(t, types.StatusSynced, rec.Status)
	// sha256 of "Hi\n"
	require.Equal(t, "c01a4cfa25cb895cdd0bb25181ba9c1622e93895a6de6f533a7299f70d6b0cfb", rec.Hash)
}

func TestResumeSkipsScan(t *testing.T) {
	e := newEnv(t)
	e.write(t, "a.txt", []byte("payload"))

	// Seed the catalog with a pending backlog, then add a second source
	// file that the scanner would otherwise pick up: a resumed run must
	// trust the backlog and not rescan.
	require.NoError(t, os.MkdirAll(e.dst, 0755))
	cat, err := catalog.Open(e.db)
	require.NoError(t, err)
	info, err := os.Stat(filepath.Join(e.src, "a.txt"))
	require.NoError(t, err)
	require.NoError(t, cat.UpsertScanned(&types.FileRecord{
		SourcePath: filepath.Join(e.src, "a.txt"),
		DestPath:   filepath.Join(e.dst, "a.txt"),
		Mtime:      info.ModTime().UnixNano(),
		Size:       info.Size(),
	}, true))
	require.NoError(t, cat.Close())

	// A file on disk but not in the backlog is invisible to a resume
	e.write(t, "unscanned.txt", []byte("later"))

	require.NoError(t, New(e.config()).Run(context.Background()))

	_, err = os.Stat(filepath.Join(e.dst, "a.txt"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(e.dst, "unscanned.txt"))
	require.True(t, os.IsNotExist(err), "resume must not discover new files")
}

func TestInterruptedFileRestartsFromZero(t *testing.T) {
	e := newEnv(t)
	content := make([]byte, 256*1024)
	_, err := rand.Read(content)
	require.NoError(t, err)
	p := e.write(t, "big.bin", content)

	// Simulate a crash mid-file: pending row, partial destination
	require.NoError(t, os.MkdirAll(e.dst, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.dst, "big.bin"), content[:100*1024], 0644))
	cat, err := catalog.Open(e.db)
	require.NoError(t, err)
	info, err := os.Stat(p)
	require.NoError(t, err)
	require.NoError(t, cat.UpsertScanned(&types.FileRecord{
		SourcePath: p,
		DestPath:   filepath.Join(e.dst, "big.bin"),
		Mtime:      info.ModTime().UnixNano(),
		Size:       info.Size(),
	}, true))
	require.NoError(t, cat.Close())

	require.NoError(t, New(e.config()).Run(context.Background()))

	got, err := os.ReadFile(filepath.Join(e.dst, "big.bin"))
	require.NoError(t, err)
	require.True(t, bytes.Equal(content, got), "restart must rewrite the whole file")
}

func TestMirrorDelete(t *testing.T) {
	e := newEnv(t)
	e.write(t, "keep.txt", []byte("keep"))
	require.NoError(t, os.MkdirAll(e.dst, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.dst, "extra.txt"), []byte("extra"), 0644))

	cfg := e.config()
	cfg.DeleteExtras = true
	require.NoError(t, New(cfg).Run(context.Background()))

	_, err := os.Stat(filepath.Join(e.dst, "keep.txt"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(e.dst, "extra.txt"))
	require.True(t, os.IsNotExist(err), "extra must be swept")
}

func TestMirrorKeepsLateArrival(t *testing.T) {
	e := newEnv(t)
	e.write(t, "keep.txt", []byte("keep"))
	require.NoError(t, os.MkdirAll(e.dst, 0755))
	// Present at both ends but unknown to the catalog: the live check
	// must protect it.
	e.write(t, "late.txt", []byte("late"))
	require.NoError(t, os.WriteFile(filepath.Join(e.dst, "late.txt"), []byte("late"), 0644))

	// The destination copy is written separately, so its mtime need not
	// match the source and it may be retransferred rather than resolved
	// as synced; either way it must not be deleted.
	cfg := e.config()
	cfg.DeleteExtras = true
	require.NoError(t, New(cfg).Run(context.Background()))

	_, err := os.Stat(filepath.Join(e.dst, "late.txt"))
	require.NoError(t, err)
}

func TestBandwidthCeiling(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	e := newEnv(t)
	content := make([]byte, 2<<20) // 2 MiB
	_, err := rand.Read(content)
	require.NoError(t, err)
	e.write(t, "big.bin", content)

	cfg := e.config()
	cfg.BWLimit = 1 << 20 // 1 MiB/s

	start := time.Now()
	require.NoError(t, New(cfg).Run(context.Background()))
	elapsed := time.Since(start)

	// 2 MiB at 1 MiB/s with a one-second burst allowance: >= ~1s
	require.GreaterOrEqual(t, elapsed, 900*time.Millisecond,
		"transfer finished too fast for the configured limit")
}

func TestConfigErrors(t *testing.T) {
	e := newEnv(t)
	// Missing source root is a configuration error, fatal before any
	// phase runs.
	err := New(e.config()).Run(context.Background())
	require.Error(t, err)
	_, statErr := os.Stat(e.db)
	require.True(t, os.IsNotExist(statErr), "no catalog should be created on config error")
}

func TestCancelledRunReportsInterruption(t *testing.T) {
	e := newEnv(t)
	e.write(t, "a.txt", []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(e.config()).Run(ctx)
	require.ErrorIs(t, err, ErrInterrupted)
}
