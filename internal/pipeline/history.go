package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmylchreest/streamsift/internal/models"
	"github.com/jmylchreest/streamsift/internal/observability"
	"github.com/jmylchreest/streamsift/internal/repository"
)

// HistoryRecorder stores job outcomes in the job history repository.
type HistoryRecorder struct {
	repo   repository.JobRecordRepository
	logger *slog.Logger
}

// NewHistoryRecorder creates a recorder backed by repo.
func NewHistoryRecorder(repo repository.JobRecordRepository, logger *slog.Logger) *HistoryRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryRecorder{repo: repo, logger: observability.WithComponent(logger, "history")}
}

// RecordJob persists res. Storage failures are logged, never returned, so a
// broken history store cannot fail an encode.
func (h *HistoryRecorder) RecordJob(ctx context.Context, job *Job, res Result) {
	record := NewJobRecord(job, res)
	if err := h.repo.Create(ctx, record); err != nil {
		observability.WithError(h.logger, err).WarnContext(ctx, "failed to record job",
			slog.String("job_id", job.ID),
		)
	}
}

// NewJobRecord converts a terminal result into a history record.
func NewJobRecord(job *Job, res Result) *models.JobRecord {
	record := &models.JobRecord{
		VideoID:     job.VideoID,
		Title:       job.Title,
		SourceURL:   job.SourceURL,
		Kind:        string(job.Kind),
		Tier:        string(job.Tier),
		Resolution:  job.Resolution,
		Filter:      job.Filter,
		Mode:        job.Mode.String(),
		Container:   job.Container,
		Filename:    job.Filename,
		Path:        res.Path,
		Status:      models.JobStatusCompleted,
		StartedAt:   job.StartedAt,
		CompletedAt: res.FinishedAt,
		Percent:     res.Snapshot.Percent,
		Frames:      res.Snapshot.Frames,
		TargetSize:  res.Snapshot.TargetSize,
	}
	if id, err := models.ParseULID(job.ID); err == nil {
		record.ID = id
	}
	if record.StartedAt.IsZero() {
		record.StartedAt = res.FinishedAt
	}
	if !record.StartedAt.IsZero() && !res.FinishedAt.IsZero() {
		record.DurationMs = res.FinishedAt.Sub(record.StartedAt).Milliseconds()
	}

	if res.Err != nil {
		record.Status = models.JobStatusFailed
		if errors.Is(res.Err, context.Canceled) {
			record.Status = models.JobStatusCancelled
		}
		record.LastError = res.Err.Error()
	}
	return record
}
