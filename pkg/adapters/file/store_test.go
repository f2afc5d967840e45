package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markgewhite/agentic-essay-writer/pkg/adapters/file"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

var _ ports.RunStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_AtomicOverwrite(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	run := ports.ContractRun(t, "run-overwrite")
	require.NoError(t, store.Save(ctx, run))

	run.Status = domain.RunTerminated
	require.NoError(t, store.Save(ctx, run))

	loaded, err := store.Load(ctx, "run-overwrite")
	require.NoError(t, err)
	assert.Equal(t, domain.RunTerminated, loaded.Status)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files may be left behind")
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	_, err := store.Load(ctx, "../secrets")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRunNotFound)

	run := ports.ContractRun(t, filepath.Join("a", "b"))
	assert.Error(t, store.Save(ctx, run))
}

func TestFileStore_ListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	runs, err := file.New(dir).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}
