package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/scanfill/internal/common"
)

// maxAutoBackups is how many automatic backups survive pruning.
const maxAutoBackups = 5

// Backup errors.
var (
	ErrBackupNotFound  = errors.New("backup not found")
	ErrBackupCorrupted = errors.New("backup integrity check failed")
	ErrBackupExists    = errors.New("backup already exists")
)

// BackupMetadata is written next to every backup file.
type BackupMetadata struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// BackupInfo describes a backup for listing.
type BackupInfo struct {
	CreatedAt     time.Time
	ID            string
	Description   string
	FileSize      int64
	OCRTexts      int
	ManualEntries int
	Extractions   int
	Projects      int
	SchemaVersion int
	IsAuto        bool
}

// BackupManager snapshots the cache database into a backups directory
// beside it and restores those snapshots.
type BackupManager struct {
	store      *SQLiteStorage
	backupsDir string
}

// NewBackupManager creates the backups directory for store.
func NewBackupManager(store *SQLiteStorage) (*BackupManager, error) {
	if store.dbPath == ":memory:" {
		return nil, fmt.Errorf("%w: in-memory databases cannot be backed up", common.ErrInvalidConfig)
	}

	dir := filepath.Join(filepath.Dir(store.dbPath), "backups")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}

	return &BackupManager{store: store, backupsDir: dir}, nil
}

// Dir returns where backups are written.
func (bm *BackupManager) Dir() string {
	return bm.backupsDir
}

// Create snapshots the database under tag. An empty tag is replaced by a
// timestamped one.
func (bm *BackupManager) Create(ctx context.Context, tag, description string) (*BackupInfo, error) {
	return bm.create(ctx, tag, description, false)
}

func (bm *BackupManager) create(ctx context.Context, tag, description string, auto bool) (*BackupInfo, error) {
	if tag == "" {
		tag = "backup-" + time.Now().Format("2006-01-02-150405")
	}
	if err := validateBackupID(tag); err != nil {
		return nil, err
	}

	backupPath := bm.dataPath(tag)
	if _, err := os.Stat(backupPath); err == nil {
		return nil, ErrBackupExists
	}

	var schemaVersion int
	if err := bm.store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	rowCounts := bm.collectRowCounts(ctx)

	if err := bm.snapshot(ctx, backupPath); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}

	stat, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	metadata := BackupMetadata{
		ID:            tag,
		CreatedAt:     time.Now(),
		Description:   description,
		FileSize:      stat.Size(),
		RowCounts:     rowCounts,
		SchemaVersion: schemaVersion,
		IsAuto:        auto,
	}
	if err := saveBackupMetadata(bm.metaPath(tag), metadata); err != nil {
		if rmErr := os.Remove(backupPath); rmErr != nil {
			slog.Error("Failed to remove backup after metadata error", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save backup metadata: %w", err)
	}

	slog.Info("Created backup", "id", tag, "size", metadata.FileSize)
	info := metadata.info()
	return &info, nil
}

// AutoBackup takes an automatic backup before a destructive operation and
// prunes automatic backups beyond the most recent few.
func (bm *BackupManager) AutoBackup(ctx context.Context, reason string) (*BackupInfo, error) {
	tag := fmt.Sprintf("auto-%s-%s", reason, time.Now().Format("2006-01-02-150405.000000"))
	info, err := bm.create(ctx, tag, "Automatic backup before "+reason, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create automatic backup: %w", err)
	}

	if err := bm.pruneAuto(ctx); err != nil {
		slog.Warn("Failed to prune automatic backups", "error", err)
	}
	return info, nil
}

// List returns every backup, newest first. Unreadable metadata files are skipped.
func (bm *BackupManager) List(_ context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(bm.backupsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backups directory: %w", err)
	}

	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		metadata, err := loadBackupMetadata(filepath.Join(bm.backupsDir, entry.Name()))
		if err != nil {
			slog.Debug("Skipping unreadable backup metadata", "file", entry.Name(), "error", err)
			continue
		}
		backups = append(backups, metadata.info())
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Restore replaces the database with backup id. The storage is closed
// first and must be reopened by the caller.
func (bm *BackupManager) Restore(_ context.Context, id string) error {
	if err := validateBackupID(id); err != nil {
		return err
	}

	backupPath := bm.dataPath(id)
	if _, err := os.Stat(backupPath); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to access backup: %w", err)
	}
	if _, err := loadBackupMetadata(bm.metaPath(id)); err != nil {
		return fmt.Errorf("failed to load backup metadata: %w", err)
	}
	if err := verifyIntegrity(backupPath); err != nil {
		return fmt.Errorf("%w: %v", ErrBackupCorrupted, err)
	}

	if err := bm.store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	dbPath := bm.store.dbPath
	safety := dbPath + ".restore-backup"
	if err := copyFile(dbPath, safety); err != nil {
		return fmt.Errorf("failed to save current database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove journal file", "file", dbPath+suffix, "error", err)
		}
	}

	if err := copyFile(backupPath, dbPath); err != nil {
		if restoreErr := copyFile(safety, dbPath); restoreErr != nil {
			slog.Error("Failed to put back the previous database", "error", restoreErr)
		}
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	if err := os.Remove(safety); err != nil {
		slog.Warn("Failed to remove restore safety copy", "error", err)
	}
	slog.Info("Restored backup", "id", id)
	return nil
}

// Delete removes backup id and its metadata.
func (bm *BackupManager) Delete(_ context.Context, id string) error {
	if err := validateBackupID(id); err != nil {
		return err
	}

	if err := os.Remove(bm.dataPath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to remove backup: %w", err)
	}
	if err := os.Remove(bm.metaPath(id)); err != nil {
		slog.Debug("Failed to remove backup metadata", "id", id, "error", err)
	}
	return nil
}

func (bm *BackupManager) pruneAuto(ctx context.Context) error {
	backups, err := bm.List(ctx)
	if err != nil {
		return err
	}

	kept := 0
	for _, b := range backups {
		if !b.IsAuto {
			continue
		}
		kept++
		if kept <= maxAutoBackups {
			continue
		}
		if err := bm.Delete(ctx, b.ID); err != nil {
			slog.Debug("Failed to prune automatic backup", "id", b.ID, "error", err)
		}
	}
	return nil
}

func (bm *BackupManager) collectRowCounts(ctx context.Context) map[string]int {
	queries := map[string]string{
		"ocr_cache":        "SELECT COUNT(*) FROM ocr_cache",
		"manual_entries":   "SELECT COUNT(*) FROM manual_entries",
		"extraction_cache": "SELECT COUNT(*) FROM extraction_cache",
		"projects":         "SELECT COUNT(*) FROM projects",
	}

	counts := make(map[string]int, len(queries))
	for table, query := range queries {
		var n int
		if err := bm.store.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			// table absent before its migration ran
			n = 0
		}
		counts[table] = n
	}
	return counts
}

func (bm *BackupManager) snapshot(ctx context.Context, dest string) error {
	if _, err := bm.store.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	if !filepath.IsAbs(dest) || strings.ContainsAny(dest, `'";`) {
		return fmt.Errorf("%w: unsupported backup path %q", common.ErrInvalidConfig, dest)
	}

	// #nosec G201 - dest is checked above
	if _, err := bm.store.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		slog.Debug("VACUUM INTO failed, copying file instead", "error", err)
		return copyFile(bm.store.dbPath, dest)
	}
	return nil
}

func (bm *BackupManager) dataPath(id string) string {
	return filepath.Join(bm.backupsDir, id+".db")
}

func (bm *BackupManager) metaPath(id string) string {
	return filepath.Join(bm.backupsDir, id+".meta.json")
}

func (m BackupMetadata) info() BackupInfo {
	return BackupInfo{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		Description:   m.Description,
		FileSize:      m.FileSize,
		OCRTexts:      m.RowCounts["ocr_cache"],
		ManualEntries: m.RowCounts["manual_entries"],
		Extractions:   m.RowCounts["extraction_cache"],
		Projects:      m.RowCounts["projects"],
		SchemaVersion: m.SchemaVersion,
		IsAuto:        m.IsAuto,
	}
}

func validateBackupID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\'";`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: invalid backup id %q", common.ErrInvalidConfig, id)
	}
	return nil
}

func saveBackupMetadata(path string, metadata BackupMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func loadBackupMetadata(path string) (*BackupMetadata, error) {
	// #nosec G304 - path is built from a validated id
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var metadata BackupMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned %s", result)
	}
	return nil
}

func copyFile(src, dst string) error {
	// #nosec G304 - paths come from the configured data directory
	source, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	tmp := dst + ".tmp"
	destination, err := os.Create(filepath.Clean(tmp))
	if err != nil {
		return err
	}

	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := destination.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
