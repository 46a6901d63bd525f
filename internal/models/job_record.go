package models

import (
	"time"

	"gorm.io/gorm"
)

// JobStatus is the terminal state of an encoder job.
type JobStatus string

const (
	// JobStatusCompleted indicates the encoder exited cleanly.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the encoder could not start or exited with an error.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the caller cancelled the job.
	JobStatusCancelled JobStatus = "cancelled"
)

// JobRecord is the persisted outcome of one save or stream job.
type JobRecord struct {
	ID        ULID      `gorm:"primarykey;type:varchar(26)" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// VideoID and Title identify the source media.
	VideoID   string `gorm:"size:64;index" json:"video_id"`
	Title     string `gorm:"size:512" json:"title"`
	SourceURL string `gorm:"size:2048" json:"source_url,omitempty"`

	Kind       string `gorm:"size:20;not null" json:"kind"`
	Tier       string `gorm:"size:20;not null" json:"tier"`
	Resolution string `gorm:"size:20" json:"resolution,omitempty"`
	Filter     string `gorm:"size:50" json:"filter,omitempty"`
	Mode       string `gorm:"size:20;not null" json:"mode"`
	Container  string `gorm:"size:20" json:"container"`

	// Filename is the generated output name; Path is only set for saved files.
	Filename string `gorm:"size:1024" json:"filename"`
	Path     string `gorm:"size:4096" json:"path,omitempty"`

	Status    JobStatus `gorm:"size:20;not null;index" json:"status"`
	LastError string    `gorm:"size:4096" json:"last_error,omitempty"`

	StartedAt   time.Time `gorm:"index" json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`

	// Final progress figures.
	Percent    float64 `json:"percent"`
	Frames     int64   `json:"frames"`
	TargetSize int64   `json:"target_size_kb"`
}

// TableName returns the table name for JobRecord.
func (JobRecord) TableName() string {
	return "job_records"
}

// BeforeCreate generates a ULID if not already set.
func (r *JobRecord) BeforeCreate(_ *gorm.DB) error {
	if r.ID.IsZero() {
		r.ID = NewULID()
	}
	return nil
}

// Succeeded reports whether the job completed.
func (r *JobRecord) Succeeded() bool {
	return r.Status == JobStatusCompleted
}

// Duration returns how long the job ran.
func (r *JobRecord) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}
