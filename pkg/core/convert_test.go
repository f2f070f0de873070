package core

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persomem/persomem-go/pkg/extract"
	"github.com/persomem/persomem-go/pkg/store"
)

func TestRecordsFromResult(t *testing.T) {
	node, err := snowflake.NewNode(9)
	require.NoError(t, err)

	result := &extract.Result{
		RunID: 42,
		Job:   extract.Job{UserID: "u1", SourceID: "s1"},
		Outputs: map[extract.Layer]extract.LayerOutput{
			extract.LayerPreference: {
				Data: &extract.PreferenceExtraction{
					Preferences: []extract.ExtractedPreference{
						{Type: "food", ConclusionDirectives: "Avoid cilantro"},
						{Type: "music", ConclusionDirectives: "Suggest jazz", Suggestions: "Mingus"},
					},
				},
			},
			extract.LayerActivity: {
				Err: assert.AnError,
			},
		},
	}

	records := recordsFromResult(node, result)
	require.Len(t, records, 2, "failed layers contribute no records")

	for _, record := range records {
		assert.Equal(t, int64(42), record.RunID)
		assert.Equal(t, "u1", record.UserID)
		assert.Equal(t, "s1", record.SourceID)
		assert.Equal(t, string(extract.LayerPreference), record.Layer)
		assert.NotZero(t, record.ID)
		assert.NotEmpty(t, record.Payload)
	}
}

func TestFragments(t *testing.T) {
	assert.Equal(t, "Activity: packed bags (status: done)",
		activityFragment(extract.ExtractedActivity{Narrative: "packed bags", Status: "done"}))
	assert.Equal(t, "Context: Remodel - new kitchen",
		contextFragment(extract.ExtractedContext{Title: "Remodel", Description: "new kitchen"}))
	assert.Equal(t, "Experience: missed flight Learning: leave earlier",
		experienceFragment(extract.ExtractedExperience{Situation: "missed flight", KeyLearning: "leave earlier"}))
	assert.Equal(t, "Identity: Ana (sister) - lives in Lyon",
		identityFragment(extract.ExtractedIdentity{Name: "Ana", Relationship: "sister", Description: "lives in Lyon"}))
	assert.Equal(t, "Preference: Avoid cilantro",
		preferenceFragment(extract.ExtractedPreference{ConclusionDirectives: "Avoid cilantro"}))
}

func TestActivityFromStored(t *testing.T) {
	record := &store.Record{
		ID:      7,
		Payload: `{"activityType":"task","narrative":"water plants","status":"planned","startsAt":"2025-07-04T09:30:00Z","tags":["home"]}`,
	}

	activity, err := activityFromStored(record)
	require.NoError(t, err)

	assert.Equal(t, "7", activity.ID)
	assert.Equal(t, "task", activity.Type)
	assert.Equal(t, "water plants", activity.Narrative)
	assert.Equal(t, "planned", activity.Status)
	require.NotNil(t, activity.StartsAt)
	assert.Equal(t, []string{"home"}, activity.Tags)
}

func TestParseTimestamp(t *testing.T) {
	assert.Nil(t, parseTimestamp(""))
	assert.Nil(t, parseTimestamp("not a date"))
	assert.NotNil(t, parseTimestamp("2025-07-04T09:30:00Z"))
	assert.NotNil(t, parseTimestamp("2025-07-04"))
}

func TestIdentityPairFromStored(t *testing.T) {
	record := &store.Record{
		ID:      11,
		RunID:   42,
		Content: "Identity: Ana (sister)",
		Payload: `{"name":"Ana","relationship":"sister","description":"lives in Lyon"}`,
	}

	pair, err := identityPairFromStored(record)
	require.NoError(t, err)

	assert.Equal(t, "11", pair.Identity.ID)
	assert.Equal(t, "sister", pair.Identity.Relationship)
	assert.Equal(t, "Ana: lives in Lyon", pair.Identity.Description)
	assert.Equal(t, "42", pair.Memory.ID)
	assert.Equal(t, "Identity: Ana (sister)", pair.Memory.Summary)
}
