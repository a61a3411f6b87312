package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatches(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	batches := Batches(items, 3)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"a", "b", "c"}, batches[0])
	assert.Equal(t, []string{"d", "e", "f"}, batches[1])
	assert.Equal(t, []string{"g", "h"}, batches[2])
}

func TestBatches_ExactFit(t *testing.T) {
	batches := Batches([]int{1, 2, 3, 4}, 2)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
}

func TestBatches_SmallerThanSize(t *testing.T) {
	batches := Batches([]int{1, 2}, 7)
	require.Len(t, batches, 1)
	assert.Equal(t, []int{1, 2}, batches[0])
}

func TestBatches_Empty(t *testing.T) {
	assert.Empty(t, Batches([]int{}, 7))
}

func TestBatches_NonPositiveSizeDefaults(t *testing.T) {
	batches := Batches(make([]int, 10), 0)
	require.Len(t, batches, 2, "size <= 0 falls back to the default batch size")
}
