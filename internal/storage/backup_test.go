package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBackupData(t *testing.T, store *SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveOCRText(ctx, &model.OCRRecord{Hash: "h1", FileName: "a.pdf", Text: "Total 12,00"}))
	require.NoError(t, store.SaveOCRText(ctx, &model.OCRRecord{Hash: "h2", FileName: "b.pdf", Text: "Total 3,50"}))
	require.NoError(t, store.SaveManualEntry(ctx, &model.ManualEntry{Hash: "h3", FileName: "c.pdf", Amount: 42}))
	require.NoError(t, store.UpsertProject(ctx, testProject("books")))
}

func TestBackupManager_Create(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	seedBackupData(t, store)

	manager, err := NewBackupManager(store)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		errType     error
		name        string
		tag         string
		description string
		wantErr     bool
	}{
		{name: "Create backup with tag", tag: "before-march", description: "March run"},
		{name: "Create backup without tag", description: "Generated"},
		{name: "Reject path traversal", tag: "../escape", wantErr: true, errType: common.ErrInvalidConfig},
		{name: "Reject quote", tag: "it's", wantErr: true, errType: common.ErrInvalidConfig},
		{name: "Reject duplicate", tag: "before-march", wantErr: true, errType: ErrBackupExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := manager.Create(ctx, tt.tag, tt.description)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errType != nil {
					assert.ErrorIs(t, err, tt.errType)
				}
				return
			}

			require.NoError(t, err)
			if tt.tag != "" {
				assert.Equal(t, tt.tag, info.ID)
			} else {
				assert.Contains(t, info.ID, "backup-")
			}
			assert.Equal(t, tt.description, info.Description)
			assert.Positive(t, info.FileSize)
			assert.Equal(t, 2, info.OCRTexts)
			assert.Equal(t, 1, info.ManualEntries)
			assert.Equal(t, 1, info.Projects)
			assert.Equal(t, 0, info.Extractions)
			assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
			assert.False(t, info.IsAuto)

			assert.FileExists(t, filepath.Join(manager.Dir(), info.ID+".db"))
			assert.FileExists(t, filepath.Join(manager.Dir(), info.ID+".meta.json"))
		})
	}
}

func TestBackupManager_ListSkipsBrokenMetadata(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	manager, err := NewBackupManager(store)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.Create(ctx, "first", "")
	require.NoError(t, err)
	_, err = manager.Create(ctx, "second", "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(manager.Dir(), "broken.meta.json"), []byte("{"), 0o600))

	backups, err := manager.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "second", backups[0].ID)
	assert.Equal(t, "first", backups[1].ID)
}

func TestBackupManager_Restore(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	seedBackupData(t, store)
	ctx := context.Background()

	manager, err := NewBackupManager(store)
	require.NoError(t, err)
	_, err = manager.Create(ctx, "seeded", "")
	require.NoError(t, err)

	_, err = store.ClearOCRCache(ctx)
	require.NoError(t, err)

	require.NoError(t, manager.Restore(ctx, "seeded"))

	reopened, err := NewSQLiteStorage(store.Path())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Migrate(ctx))

	got, err := reopened.GetOCRText(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Total 12,00", got.Text)

	_, err = os.Stat(store.Path() + ".restore-backup")
	assert.True(t, os.IsNotExist(err))
}

func TestBackupManager_RestoreErrors(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	manager, err := NewBackupManager(store)
	require.NoError(t, err)

	assert.ErrorIs(t, manager.Restore(ctx, "missing"), ErrBackupNotFound)
	assert.ErrorIs(t, manager.Restore(ctx, "a/b"), common.ErrInvalidConfig)

	require.NoError(t, os.WriteFile(filepath.Join(manager.Dir(), "junk.db"), []byte("not a database at all"), 0o600))
	require.NoError(t, saveBackupMetadata(filepath.Join(manager.Dir(), "junk.meta.json"), BackupMetadata{ID: "junk"}))
	assert.ErrorIs(t, manager.Restore(ctx, "junk"), ErrBackupCorrupted)

	// the store is still usable after a refused restore
	_, err = store.CacheStats(ctx)
	assert.NoError(t, err)
}

func TestBackupManager_Delete(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	manager, err := NewBackupManager(store)
	require.NoError(t, err)
	_, err = manager.Create(ctx, "gone", "")
	require.NoError(t, err)

	require.NoError(t, manager.Delete(ctx, "gone"))
	assert.NoFileExists(t, filepath.Join(manager.Dir(), "gone.db"))
	assert.NoFileExists(t, filepath.Join(manager.Dir(), "gone.meta.json"))
	assert.ErrorIs(t, manager.Delete(ctx, "gone"), ErrBackupNotFound)
}

func TestBackupManager_AutoBackupPrunes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	manager, err := NewBackupManager(store)
	require.NoError(t, err)
	_, err = manager.Create(ctx, "manual", "")
	require.NoError(t, err)

	for range maxAutoBackups + 2 {
		info, err := manager.AutoBackup(ctx, "clear")
		require.NoError(t, err)
		assert.True(t, info.IsAuto)
	}

	backups, err := manager.List(ctx)
	require.NoError(t, err)

	autos := 0
	for _, b := range backups {
		if b.IsAuto {
			autos++
		}
	}
	assert.Equal(t, maxAutoBackups, autos)
	assert.Len(t, backups, maxAutoBackups+1)
}

func TestNewBackupManager_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = NewBackupManager(store)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
