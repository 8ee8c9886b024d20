// Package storage persists screened candidates in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const DefaultPath = "candidates.db"

// CandidateRecord is one finished screening session.
type CandidateRecord struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	SessionID  uuid.UUID      `gorm:"type:text;uniqueIndex" json:"session_id"`
	FullName   string         `gorm:"not null" json:"full_name"`
	ResumeText string         `json:"resume_text"`
	VacancyID  string         `gorm:"index" json:"vacancy_id"`
	Interview  datatypes.JSON `json:"interview"`
	Score      float64        `json:"score"`
	Report     datatypes.JSON `json:"report"`
	ReportText string         `json:"report_text"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (CandidateRecord) TableName() string {
	return "candidates"
}

type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open creates the database file if needed and migrates the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = DefaultPath
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&CandidateRecord{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.Debug("database ready", zap.String("path", path))

	return &Store{db: db, logger: logger}, nil
}

// Save inserts the record. Records are never updated.
func (s *Store) Save(ctx context.Context, record *CandidateRecord) error {
	if record == nil {
		return errors.New("candidate record is nil")
	}
	if record.SessionID == uuid.Nil {
		record.SessionID = uuid.New()
	}
	if record.Interview == nil {
		record.Interview = datatypes.JSON(`[]`)
	}
	if record.Report == nil {
		record.Report = datatypes.JSON(`{}`)
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("save candidate %q: %w", record.FullName, err)
	}

	s.logger.Info("candidate saved",
		zap.Uint("id", record.ID),
		zap.String("session_id", record.SessionID.String()),
		zap.Float64("score", record.Score),
	)
	return nil
}

// List returns the newest records first. A non-positive limit returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]CandidateRecord, error) {
	var records []CandidateRecord

	query := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return records, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
