package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/streamsift/internal/models"
	"github.com/jmylchreest/streamsift/internal/progress"
	"github.com/jmylchreest/streamsift/internal/repository"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewJobRecord(t *testing.T) {
	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	job := &Job{
		ID:        ulid.Make().String(),
		Kind:      KindVideo,
		Tier:      TierCustom,
		Mode:      ModeSave,
		Filename:  "f.mkv",
		VideoID:   "abc",
		StartedAt: started,
	}

	tests := []struct {
		name     string
		err      error
		expected models.JobStatus
	}{
		{"completed", nil, models.JobStatusCompleted},
		{"failed", &EncodeError{Message: "boom"}, models.JobStatusFailed},
		{"cancelled", context.Canceled, models.JobStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Result{
				Job:        job,
				Path:       "/out/f.mkv",
				FinishedAt: started.Add(3 * time.Second),
				Snapshot:   progress.Snapshot{Percent: 100, Frames: 42},
				Err:        tt.err,
			}
			record := NewJobRecord(job, res)
			assert.Equal(t, tt.expected, record.Status)
			assert.Equal(t, job.ID, record.ID.String())
			assert.Equal(t, int64(3000), record.DurationMs)
			assert.Equal(t, "Video", record.Kind)
			assert.Equal(t, "Custom", record.Tier)
			assert.Equal(t, "save", record.Mode)
			assert.Equal(t, int64(42), record.Frames)
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), record.LastError)
			}
		})
	}
}

func TestHistoryRecorder(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.JobRecord{}))

	repo := repository.NewJobRecordRepository(db)
	rec := NewHistoryRecorder(repo, nil)

	job := &Job{ID: ulid.Make().String(), Kind: KindAudio, Tier: TierHighest, Mode: ModeStream, StartedAt: time.Now()}
	rec.RecordJob(context.Background(), job, Result{Job: job, FinishedAt: time.Now()})

	records, err := repo.List(context.Background(), repository.JobRecordFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, job.ID, records[0].ID.String())
	assert.Equal(t, "stream", records[0].Mode)
}
