package importer

import (
	"errors"
	"testing"

	contextutils "github.com/rshatalov/rpy/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBundle_JSON(t *testing.T) {
	data := []byte(`{
		"tags": [{"slug": "go", "title": "Go"}],
		"questions": [
			{"question": "What is a goroutine?", "answer": "A lightweight thread.", "difficulty": "easy", "tags": ["go"]},
			{"question": "What is a channel?", "answer": "A typed conduit."}
		]
	}`)

	bundle, err := ParseBundle(data, FormatJSON)
	require.NoError(t, err)
	require.Len(t, bundle.Tags, 1)
	assert.Equal(t, "go", bundle.Tags[0].Slug)
	require.Len(t, bundle.Questions, 2)
	require.NotNil(t, bundle.Questions[0].Difficulty)
	assert.Equal(t, "easy", *bundle.Questions[0].Difficulty)
	assert.Equal(t, []string{"go"}, bundle.Questions[0].Tags)
	assert.Nil(t, bundle.Questions[1].Difficulty)
}

func TestParseBundle_YAML(t *testing.T) {
	data := []byte(`
tags:
  - slug: sql
    title: SQL
questions:
  - question: What is an index?
    answer: |
      A structure that speeds up lookups.
    tags: [sql]
`)

	bundle, err := ParseBundle(data, FormatYAML)
	require.NoError(t, err)
	require.Len(t, bundle.Questions, 1)
	assert.Equal(t, "What is an index?", bundle.Questions[0].Question)
	assert.Equal(t, "A structure that speeds up lookups.\n", bundle.Questions[0].Answer)
	assert.Equal(t, "SQL", bundle.Tags[0].Title)
}

func TestParseBundle_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing questions", `{"tags": []}`},
		{"missing answer", `{"questions": [{"question": "q"}]}`},
		{"empty question", `{"questions": [{"question": "", "answer": "a"}]}`},
		{"slug with slash", `{"tags": [{"slug": "a/b"}], "questions": []}`},
		{"slug with outer space", `{"tags": [{"slug": "go "}], "questions": []}`},
		{"unknown field", `{"questions": [], "extra": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBundle([]byte(tt.data), FormatJSON)
			require.Error(t, err)
			assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
		})
	}
}

func TestParseBundle_Malformed(t *testing.T) {
	_, err := ParseBundle([]byte(`{"questions": [`), FormatJSON)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidFormat, contextutils.GetErrorCode(err))

	_, err = ParseBundle([]byte("questions: [\n"), FormatYAML)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidFormat, contextutils.GetErrorCode(err))

	_, err = ParseBundle([]byte(`{}`), FormatText)
	assert.True(t, errors.Is(err, contextutils.ErrInvalidInput))
}
