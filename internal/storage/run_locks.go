package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"syscall"
	"time"

	"github.com/Veraticus/scanfill/internal/common"
)

// staleRunLockAge bounds how long a lock survives when its holder cannot be
// checked, such as a process on another host sharing the database.
const staleRunLockAge = 24 * time.Hour

// lockAttempts covers a holder releasing between the insert and the lookup.
const lockAttempts = 3

type runLock struct {
	acquiredAt time.Time
	owner      string
	host       string
	pid        int
}

// stale reports whether the holder is gone: its process exited on this host,
// or the lock outlived staleRunLockAge.
func (l *runLock) stale(host string, now time.Time) bool {
	if now.Sub(l.acquiredAt) > staleRunLockAge {
		return true
	}
	return l.host == host && !processAlive(l.pid)
}

// AcquireRunLock records owner as the only active run of projectID. Each step
// is a single conditional statement, so two processes racing for the same
// project cannot both win.
func (s *SQLiteStorage) AcquireRunLock(ctx context.Context, projectID, owner string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(projectID, "projectID"); err != nil {
		return err
	}
	if err := validateString(owner, "owner"); err != nil {
		return err
	}

	host, _ := os.Hostname()
	pid := os.Getpid()

	for range lockAttempts {
		now := time.Now()
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO run_locks (project_id, owner, pid, host, acquired_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(project_id) DO NOTHING
		`, projectID, owner, pid, host, now)
		if err != nil {
			return fmt.Errorf("failed to insert run lock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return nil
		}

		held, err := s.getRunLock(ctx, projectID)
		if err != nil {
			return err
		}
		if held == nil {
			continue
		}
		if !held.stale(host, now) {
			return fmt.Errorf("project %q is held by pid %d on %s since %s: %w",
				projectID, held.pid, held.host, held.acquiredAt.Format(time.RFC3339), common.ErrRunInProgress)
		}

		res, err = s.db.ExecContext(ctx, `
			UPDATE run_locks
			SET owner = ?, pid = ?, host = ?, acquired_at = ?
			WHERE project_id = ? AND owner = ?
		`, owner, pid, host, now, projectID, held.owner)
		if err != nil {
			return fmt.Errorf("failed to take over run lock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			slog.Warn("Took over stale run lock",
				"project", projectID,
				"pid", held.pid,
				"host", held.host,
				"since", held.acquiredAt)
			return nil
		}
	}

	return fmt.Errorf("project %q: %w", projectID, common.ErrRunInProgress)
}

// ReleaseRunLock drops the lock on projectID if owner still holds it.
func (s *SQLiteStorage) ReleaseRunLock(ctx context.Context, projectID, owner string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM run_locks
		WHERE project_id = ? AND owner = ?
	`, projectID, owner)
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) getRunLock(ctx context.Context, projectID string) (*runLock, error) {
	var l runLock
	err := s.db.QueryRowContext(ctx, `
		SELECT owner, pid, host, acquired_at
		FROM run_locks
		WHERE project_id = ?
	`, projectID).Scan(&l.owner, &l.pid, &l.host, &l.acquiredAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // released meanwhile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run lock: %w", err)
	}
	return &l, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// FindProcess only succeeds for live processes on Windows, which has no signal 0.
	if runtime.GOOS == "windows" {
		return true
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
