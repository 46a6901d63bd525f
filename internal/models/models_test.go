package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULID_RoundTrip(t *testing.T) {
	id := NewULID()
	require.False(t, id.IsZero())

	parsed, err := ParseULID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	v, err := id.Value()
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)
}

func TestULID_Scan(t *testing.T) {
	id := NewULID()

	tests := []struct {
		name     string
		input    any
		expected ULID
		wantErr  bool
	}{
		{"nil", nil, ULID{}, false},
		{"empty string", "", ULID{}, false},
		{"string", id.String(), id, false},
		{"bytes", []byte(id.String()), id, false},
		{"garbage", "not-a-ulid", ULID{}, true},
		{"wrong type", 42, ULID{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ULID
			err := got.Scan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestULID_ZeroValue(t *testing.T) {
	var id ULID
	assert.True(t, id.IsZero())

	v, err := id.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	text, err := id.MarshalText()
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestJobRecord(t *testing.T) {
	r := &JobRecord{Status: JobStatusCompleted, DurationMs: 1500}
	require.NoError(t, r.BeforeCreate(nil))
	assert.False(t, r.ID.IsZero())
	assert.True(t, r.Succeeded())
	assert.Equal(t, 1500*time.Millisecond, r.Duration())

	existing := r.ID
	require.NoError(t, r.BeforeCreate(nil))
	assert.Equal(t, existing, r.ID)

	assert.False(t, (&JobRecord{Status: JobStatusFailed}).Succeeded())
	assert.Equal(t, "job_records", JobRecord{}.TableName())
}
