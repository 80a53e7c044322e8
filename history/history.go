// Package history records processing runs in a SQLite database.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Status is the state of a recorded run.
type Status int

const (
	// Running is stored when a run starts.
	Running Status = iota
	// Done marks a run that processed every tile.
	Done
	// Failed marks a run stopped by an error.
	Failed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Record is one processing run.
type Record struct {
	ID         int64          `gorm:"primaryKey;autoIncrement"`
	RunID      string         `gorm:"type:varchar(36);uniqueIndex"`
	Mode       string         `gorm:"type:varchar(32)"`
	SourcePath string         `gorm:"type:varchar(255)"`
	OutputPath string         `gorm:"type:varchar(255)"` // empty for in-place runs
	Status     Status         `gorm:"index"`
	Blocks     int
	Error      string
	Args       datatypes.JSON `gorm:"type:json"`
	StartedAt  time.Time
	FinishedAt *time.Time
}

// TableName implements gorm's tabler.
func (Record) TableName() string {
	return "raster_record"
}

// Store is an open history database.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the SQLite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpenDatabase, path, err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", ErrOpenDatabase, err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Begin stores a running record. args is stored as JSON.
func (s *Store) Begin(runID, mode, input, output string, args any) (*Record, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: args: %v", ErrWriteRecord, err)
	}

	rec := &Record{
		RunID:      runID,
		Mode:       mode,
		SourcePath: input,
		OutputPath: output,
		Status:     Running,
		Args:       datatypes.JSON(raw),
		StartedAt:  time.Now().UTC(),
	}
	if err := s.db.Create(rec).Error; err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWriteRecord, runID, err)
	}

	return rec, nil
}

// Finish marks rec as Done, or Failed when runErr is non-nil, and stores
// the number of processed tiles.
func (s *Store) Finish(rec *Record, blocks int, runErr error) error {
	now := time.Now().UTC()
	rec.Status = Done
	rec.Blocks = blocks
	rec.FinishedAt = &now
	if runErr != nil {
		rec.Status = Failed
		rec.Error = runErr.Error()
	}

	err := s.db.Model(&Record{}).Where("id = ?", rec.ID).Updates(map[string]any{
		"status":      rec.Status,
		"blocks":      rec.Blocks,
		"error":       rec.Error,
		"finished_at": rec.FinishedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteRecord, rec.RunID, err)
	}

	return nil
}

// Get returns the record of runID.
func (s *Store) Get(runID string) (*Record, error) {
	var rec Record
	if err := s.db.Where("run_id = ?", runID).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadRecords, runID, err)
	}

	return &rec, nil
}

// List returns the most recent records first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Record, error) {
	q := s.db.Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var recs []Record
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadRecords, err)
	}

	return recs, nil
}
