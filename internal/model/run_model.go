package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ReviewRun struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Status          string         `gorm:"type:varchar(20);not null;index"`
	CurrentStage    string         `gorm:"type:varchar(20)"`
	Request         string         `gorm:"type:text;not null"`
	ReviewCycles    int            `gorm:"not null;default:0"`
	ReviewSatisfied bool           `gorm:"not null;default:false"`
	InitialState    datatypes.JSON `gorm:"type:jsonb;not null"`
	FinalState      datatypes.JSON `gorm:"type:jsonb"`
	Error           *string        `gorm:"type:text"`
	Hint            *string        `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"default:now();not null;index"`
	StartedAt       *time.Time
	FinishedAt      *time.Time
}

func (ReviewRun) TableName() string {
	return "review_runs"
}
