package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRating_IsValid(t *testing.T) {
	tests := []struct {
		rating   Rating
		expected bool
	}{
		{RatingEasy, true},
		{RatingMedium, true},
		{RatingHard, true},
		{Rating("pending"), false},
		{Rating(""), false},
		{Rating("EASY"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.rating), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.rating.IsValid())
		})
	}
}

func TestRating_Status(t *testing.T) {
	assert.Equal(t, StatusEasy, RatingEasy.Status())
	assert.Equal(t, StatusHard, RatingHard.Status())
}

func TestSessionQuestionStatus_IsValid(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusEasy.IsValid())
	assert.False(t, SessionQuestionStatus("mastered").IsValid())
}

func TestSelectionResult(t *testing.T) {
	t.Run("no questions available", func(t *testing.T) {
		result := NoQuestionsAvailable()
		assert.False(t, result.HasQuestion())

		data, err := json.Marshal(result)
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"no_questions_available","message":"All questions in this session are mastered"}`, string(data))
	})

	t.Run("question served", func(t *testing.T) {
		result := &SelectionResult{
			Status:            SelectionStatusQuestion,
			Question:          &Question{ID: 4, QuestionText: "q", AnswerText: "a", Tags: []Tag{}},
			SessionQuestionID: 9,
			TimesShown:        2,
			QuestionStatus:    StatusMedium,
		}
		assert.True(t, result.HasQuestion())

		var nilResult *SelectionResult
		assert.False(t, nilResult.HasQuestion())
	})
}

func TestQuestion_TagSlugs(t *testing.T) {
	q := Question{Tags: []Tag{{Slug: "go"}, {Slug: "sql"}}}
	assert.Equal(t, []string{"go", "sql"}, q.TagSlugs())
	assert.Empty(t, (&Question{}).TagSlugs())
}

func TestDate_JSON(t *testing.T) {
	d := NewDate(time.Date(2024, 3, 9, 23, 15, 0, 0, time.UTC))

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-09"`, string(data))

	var parsed Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-12-31"`), &parsed))
	assert.Equal(t, "2024-12-31", parsed.String())

	assert.Error(t, json.Unmarshal([]byte(`"31.12.2024"`), &parsed))
	assert.Error(t, json.Unmarshal([]byte(`17`), &parsed))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-02", d.String())

	require.NoError(t, d.Scan("2023-05-06T00:00:00Z"))
	assert.Equal(t, "2023-05-06", d.String())

	require.NoError(t, d.Scan([]byte("2022-07-08")))
	assert.Equal(t, "2022-07-08", d.String())

	assert.Error(t, d.Scan(42))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, d.Time, v)
}

func TestNullDate(t *testing.T) {
	var nd NullDate
	require.NoError(t, nd.Scan(nil))
	assert.Nil(t, nd.Ptr())

	require.NoError(t, nd.Scan(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, nd.Ptr())
	assert.Equal(t, "2024-02-29", nd.Ptr().String())

	assert.Nil(t, DateValue(nil))
	d := nd.Date
	assert.Equal(t, d.Time, DateValue(&d))
}

func TestTimer_Elapsed(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(90 * time.Second)

	counting := Timer{Time: 30, StartTime: &start, State: TimerCounting}
	assert.Equal(t, 120, counting.Elapsed(now))

	paused := Timer{Time: 30, StartTime: &start, State: TimerPaused}
	assert.Equal(t, 30, paused.Elapsed(now))

	clockSkew := Timer{Time: 5, StartTime: &now, State: TimerCounting}
	assert.Equal(t, 5, clockSkew.Elapsed(start))
}

func TestNullHelpers(t *testing.T) {
	assert.Nil(t, NullString(sql.NullString{}))
	assert.Equal(t, "x", *NullString(sql.NullString{String: "x", Valid: true}))

	assert.Nil(t, NullTime(sql.NullTime{}))
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, *NullTime(sql.NullTime{Time: ts, Valid: true}))

	assert.Nil(t, NullInt(sql.NullInt64{}))
	assert.Equal(t, 7, *NullInt(sql.NullInt64{Int64: 7, Valid: true}))
}

func TestSessionStatistics_JSON(t *testing.T) {
	stats := SessionStatistics{
		Session:          StudySession{ID: 1, Name: "s", IsActive: true, StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		TotalQuestions:   2,
		EasyQuestions:    1,
		PendingQuestions: 1,
		TotalShows:       3,
		AverageShows:     1.5,
	}

	data, err := json.Marshal(stats)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1.5, decoded["average_shows"])
	assert.Equal(t, float64(3), decoded["total_shows"])
	session := decoded["session"].(map[string]interface{})
	assert.Equal(t, "s", session["name"])
	assert.NotContains(t, session, "end_time")
}
