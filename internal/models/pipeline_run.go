package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PipelineRun is an append-only ledger row describing one orchestrator run
type PipelineRun struct {
	ID            uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ProjectID     *uuid.UUID `json:"project_id" db:"project_id" gorm:"type:uuid;index"`
	RunType       string     `json:"run_type" db:"run_type"`
	Status        string     `json:"status" db:"status"`
	ScrapeCount   int        `json:"scrape_count" db:"scrape_count"`
	IngestCount   int        `json:"ingest_count" db:"ingest_count"`
	ExtractCount  int        `json:"extract_count" db:"extract_count"`
	JudgeCount    int        `json:"judge_count" db:"judge_count"`
	DedupeCount   int        `json:"dedupe_count" db:"dedupe_count"`
	UnusableCount int        `json:"unusable_count" db:"unusable_count"`
	Error         string     `json:"error,omitempty" db:"error" gorm:"type:text"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    time.Time  `json:"finished_at" db:"finished_at"`
}

// TableName sets the table name for the PipelineRun model
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

func (r *PipelineRun) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}
