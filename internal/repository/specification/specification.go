// Package specification holds composable gorm query fragments for the
// review_runs table.
package specification

import (
	"ai-codereview-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// Apply folds specs over db in order
func Apply(db *gorm.DB, specs ...Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// ByStatus matches runs in one lifecycle status. Empty matches all.
type ByStatus struct {
	Status entity.RunStatus
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	if s.Status == "" {
		return db
	}
	return db.Where("status = ?", string(s.Status))
}

// NewestFirst orders by creation time, ties broken by id so pages are stable
type NewestFirst struct{}

func (NewestFirst) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id")
}

type Page struct {
	Limit  int
	Offset int
}

func (s Page) Apply(db *gorm.DB) *gorm.DB {
	if s.Offset > 0 {
		db = db.Offset(s.Offset)
	}
	if s.Limit > 0 {
		db = db.Limit(s.Limit)
	}
	return db
}
