// Package store is the per-request relational selection store. Each run gets
// a private sqlite file inside its workspace; the candidates table is dropped
// and recreated at the start of every run, so nothing leaks across requests.
package store

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Candidate is the persisted, fully-annotated candidate row. List-valued
// fields stay JSON text, exactly as they travel between stages.
type Candidate struct {
	CandidateID        string  `gorm:"column:candidate_id;primaryKey"`
	RawTextPreview     string  `gorm:"column:raw_text_preview;type:text"`
	ExtractedEntities  string  `gorm:"column:extracted_entities;type:text"`
	GradeScore         float64 `gorm:"column:grade_score"`
	CVBiasFlags        string  `gorm:"column:cv_bias_flags;type:text"`
	CVAnonymized       string  `gorm:"column:cv_anonymized;type:text"`
	PersonaFitScore    float64 `gorm:"column:persona_fit_score"`
	Explanation        string  `gorm:"column:explanation;type:text"`
	CompositeScore     float64 `gorm:"column:composite_score"`
	FeedbackAdjustment float64 `gorm:"column:feedback_adjustment"`
	UpdatedScore       float64 `gorm:"column:updated_score"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Store wraps the per-workspace sqlite database.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite file at path, creating it when absent.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening selection store: %w", err)
	}
	return &Store{db: db}, nil
}

// Rebuild drops and recreates the candidates table. Runs always start from a
// clean table.
func (s *Store) Rebuild() error {
	if s.db.Migrator().HasTable(&Candidate{}) {
		if err := s.db.Migrator().DropTable(&Candidate{}); err != nil {
			return fmt.Errorf("dropping candidates table: %w", err)
		}
	}
	if err := s.db.AutoMigrate(&Candidate{}); err != nil {
		return fmt.Errorf("creating candidates table: %w", err)
	}
	return nil
}

// Insert persists the candidate rows.
func (s *Store) Insert(candidates []Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	if err := s.db.Create(&candidates).Error; err != nil {
		return fmt.Errorf("inserting candidates: %w", err)
	}
	return nil
}

// SelectedAbove returns candidates with updated_score >= threshold, best
// first, ties broken by candidate_id.
func (s *Store) SelectedAbove(threshold float64) ([]Candidate, error) {
	var out []Candidate
	err := s.db.
		Where("updated_score >= ?", threshold).
		Order("updated_score DESC").
		Order("candidate_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("querying selected candidates: %w", err)
	}
	return out, nil
}

// Count returns the number of persisted candidates.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&Candidate{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting candidates: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("resolving sql db: %w", err)
	}
	return sqlDB.Close()
}
