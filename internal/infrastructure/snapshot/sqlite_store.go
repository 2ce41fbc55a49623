package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storefront/backend/internal/domain/session"
)

// snapshotRecord is the persisted row: one JSON blob per session
type snapshotRecord struct {
	SessionID string    `gorm:"primaryKey;size:128"`
	Payload   []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName overrides the table name
func (snapshotRecord) TableName() string {
	return "session_snapshots"
}

// SQLiteStore implements the snapshot store on an embedded SQLite file.
// Suitable for single-instance deployments that need snapshots to survive
// process restarts without running Redis.
type SQLiteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLiteStore opens (and migrates) the snapshot database at the given
// path.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	if err := db.AutoMigrate(&snapshotRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot database: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl}, nil
}

// Load returns the stored snapshot for a session, or nil if none exists
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	var record snapshotRecord
	err := s.db.WithContext(ctx).First(&record, "session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if time.Now().After(record.ExpiresAt) {
		return nil, nil
	}

	var snapshot session.Snapshot
	if err := json.Unmarshal(record.Payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// Save stores the snapshot for a session, resetting its TTL
func (s *SQLiteStore) Save(ctx context.Context, sessionID string, snapshot *session.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	record := snapshotRecord{
		SessionID: sessionID,
		Payload:   payload,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Clear removes a session's snapshot
func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).Delete(&snapshotRecord{}, "session_id = ?", sessionID).Error
	if err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}

// Prune deletes all expired snapshots
func (s *SQLiteStore) Prune(ctx context.Context) error {
	err := s.db.WithContext(ctx).Delete(&snapshotRecord{}, "expires_at < ?", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ensure SQLiteStore implements the snapshot store port
var _ session.Store = (*SQLiteStore)(nil)
