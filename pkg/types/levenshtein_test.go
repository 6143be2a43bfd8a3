package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, distance("build", "build"))
	assert.Equal(t, 1, distance("build", "buld"))
	assert.Equal(t, 1, distance("build", "builds"))
	assert.Equal(t, 3, distance("kitten", "sitting"))
}

func TestSuggestWithinDistance(t *testing.T) {
	got, ok := suggest("buld", []string{"build", "deploy", "test"}, 3)
	assert.True(t, ok)
	assert.Equal(t, "build", got)
}

func TestSuggestNoCandidateWithinDistance(t *testing.T) {
	_, ok := suggest("xyz", []string{"build", "deploy"}, 1)
	assert.False(t, ok)
}

func TestSuggestPicksClosest(t *testing.T) {
	got, ok := suggest("tst", []string{"test", "rest", "toast"}, 3)
	assert.True(t, ok)
	assert.Equal(t, "test", got)
}
