package vector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"newswatch/internal/vector"
)

func TestNew(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		ix, err := vector.New(3)
		require.NoError(t, err)
		assert.Equal(t, 3, ix.Dimension())
		assert.Equal(t, 0, ix.Len())
	})

	t.Run("Invalid Dimension", func(t *testing.T) {
		for _, d := range []int{0, -1} {
			_, err := vector.New(d)
			assert.ErrorIs(t, err, vector.ErrInvalidDimension)
		}
	})
}

func TestIndex_Add(t *testing.T) {
	ix, err := vector.New(2)
	require.NoError(t, err)

	t.Run("Sequential IDs Across Batches", func(t *testing.T) {
		require.NoError(t, ix.Add([][]float32{{0, 0}, {1, 1}}))
		require.NoError(t, ix.Add([][]float32{{2, 2}}))
		assert.Equal(t, 3, ix.Len())

		got, err := ix.Search([]float32{2, 2}, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, got[0].ID)
	})

	t.Run("Dimension Mismatch Adds Nothing", func(t *testing.T) {
		before := ix.Len()
		err := ix.Add([][]float32{{1, 2}, {1, 2, 3}})
		assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
		assert.Equal(t, before, ix.Len())
	})
}

func TestIndex_Search(t *testing.T) {
	ix, err := vector.New(2)
	require.NoError(t, err)
	require.NoError(t, ix.Add([][]float32{
		{0, 0},
		{3, 4},
		{1, 0},
	}))

	t.Run("Self Match First", func(t *testing.T) {
		got, err := ix.Search([]float32{3, 4}, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, 1, got[0].ID)
		assert.Equal(t, float32(0), got[0].Distance)
	})

	t.Run("Ascending Distance", func(t *testing.T) {
		got, err := ix.Search([]float32{0, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{got[0].ID, got[1].ID, got[2].ID}, []int{0, 2, 1})
		assert.LessOrEqual(t, got[0].Distance, got[1].Distance)
		assert.LessOrEqual(t, got[1].Distance, got[2].Distance)
	})

	t.Run("K Larger Than Size", func(t *testing.T) {
		got, err := ix.Search([]float32{0, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("Query Dimension Mismatch", func(t *testing.T) {
		_, err := ix.Search([]float32{1, 2, 3}, 1)
		assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	})

	t.Run("Empty Index", func(t *testing.T) {
		empty, err := vector.New(2)
		require.NoError(t, err)
		_, err = empty.Search([]float32{0, 0}, 1)
		assert.ErrorIs(t, err, vector.ErrEmptyIndex)
	})

	t.Run("Tie Broken By ID", func(t *testing.T) {
		tie, err := vector.New(1)
		require.NoError(t, err)
		require.NoError(t, tie.Add([][]float32{{1}, {-1}, {1}}))

		got, err := tie.Search([]float32{0}, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, got[0].ID)
		assert.Equal(t, 1, got[1].ID)
		assert.Equal(t, 2, got[2].ID)
	})
}
