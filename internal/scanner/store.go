package scanner

import (
	"errors"
	"fmt"
	"time"

	"github.com/Alexzafra13/echo-sub000/internal/database"
	"gorm.io/gorm"
)

// ErrScanNotFound is returned when a scan id does not match any row.
var ErrScanNotFound = errors.New("scan not found")

// StateStore persists LibraryScan rows and their terminal counters.
type StateStore struct {
	db *gorm.DB
}

// NewStateStore creates a scan state store on an open database handle.
func NewStateStore(db *gorm.DB) *StateStore {
	return &StateStore{db: db}
}

// Create persists a new scan row.
func (s *StateStore) Create(scan *database.LibraryScan) error {
	if err := s.db.Create(scan).Error; err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}
	return nil
}

// Get loads one scan by id.
func (s *StateStore) Get(id string) (*database.LibraryScan, error) {
	var scan database.LibraryScan
	err := s.db.First(&scan, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan: %w", err)
	}
	return &scan, nil
}

// List returns one page of scan history, newest first, plus the total
// row count.
func (s *StateStore) List(page, limit int) ([]database.LibraryScan, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := s.db.Model(&database.LibraryScan{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count scans: %w", err)
	}

	var scans []database.LibraryScan
	err := s.db.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&scans).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scans: %w", err)
	}
	return scans, total, nil
}

var terminalStatuses = []string{
	database.ScanStatusCompleted,
	database.ScanStatusCancelled,
	database.ScanStatusFailed,
}

// SetStatus transitions a scan's status. StartedAt is stamped on the
// first move to running; FinishedAt is stamped exactly when the status
// becomes terminal. A row already in a terminal state is never
// rewritten: the update is conditioned on the current status, so a
// control command that loses the race against the worker's terminal
// write surfaces ErrScanNotActive instead of regressing the row.
func (s *StateStore) SetStatus(id, status, errorMessage string) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}

	now := time.Now()
	switch status {
	case database.ScanStatusRunning:
		// Stamp the start time on the first pending -> running move only;
		// resuming from paused keeps the original StartedAt.
		s.db.Model(&database.LibraryScan{}).
			Where("id = ? AND status = ?", id, database.ScanStatusPending).
			Update("started_at", now)
	case database.ScanStatusCompleted, database.ScanStatusCancelled, database.ScanStatusFailed:
		updates["finished_at"] = &now
	}

	result := s.db.Model(&database.LibraryScan{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update scan status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		scan, err := s.Get(id)
		if err != nil {
			return err
		}
		return fmt.Errorf("scan is in state %s: %w", scan.Status, ErrScanNotActive)
	}
	return nil
}

// SaveCounters persists the accumulated run counters.
func (s *StateStore) SaveCounters(id string, added, updated, deleted int) error {
	return s.db.Model(&database.LibraryScan{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"tracks_added":   added,
			"tracks_updated": updated,
			"tracks_deleted": deleted,
		}).Error
}

// RecoverInterrupted marks scans left pending/running/paused by an
// unclean shutdown as failed. Their tokens died with the process, so
// they can never be resumed.
func (s *StateStore) RecoverInterrupted() (int64, error) {
	now := time.Now()
	result := s.db.Model(&database.LibraryScan{}).
		Where("status IN ?", []string{
			database.ScanStatusPending,
			database.ScanStatusRunning,
			database.ScanStatusPaused,
		}).
		Updates(map[string]interface{}{
			"status":        database.ScanStatusFailed,
			"error_message": "interrupted by server restart",
			"finished_at":   &now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to recover interrupted scans: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupHistory removes terminal scan rows finished before the
// retention cutoff. Returns the number of rows removed.
func (s *StateStore) CleanupHistory(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := s.db.Where("status IN ? AND finished_at < ?", terminalStatuses, cutoff).
		Delete(&database.LibraryScan{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup scan history: %w", result.Error)
	}
	return result.RowsAffected, nil
}
