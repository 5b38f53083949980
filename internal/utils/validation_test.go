package contextutils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidRating(t *testing.T) {
	assert.True(t, IsValidRating("easy"))
	assert.True(t, IsValidRating("medium"))
	assert.True(t, IsValidRating("hard"))

	assert.False(t, IsValidRating(""))
	assert.False(t, IsValidRating("pending"))
	assert.False(t, IsValidRating("trivial"))
	assert.False(t, IsValidRating("Easy"))
	assert.False(t, IsValidRating(" easy"))
}

func TestIsValidTagSlug(t *testing.T) {
	assert.True(t, IsValidTagSlug("python"))
	assert.True(t, IsValidTagSlug("go-concurrency"))
	assert.True(t, IsValidTagSlug("алгоритмы"))
	assert.True(t, IsValidTagSlug("sql_1.2"))

	assert.True(t, IsValidTagSlug("Базы данных"))
	assert.True(t, IsValidTagSlug("has space"))

	assert.False(t, IsValidTagSlug(""))
	assert.False(t, IsValidTagSlug(" leading"))
	assert.False(t, IsValidTagSlug("trailing "))
	assert.False(t, IsValidTagSlug("a/b"))
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		Name string `validate:"required,max=5"`
	}

	require.NoError(t, ValidateStruct(payload{Name: "ok"}))

	err := ValidateStruct(payload{Name: "too long"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "Name")
}
