package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestChunkDateRange_CoversRangeExactly(t *testing.T) {
	from := date(2024, 1, 3)
	to := date(2024, 5, 20)
	maxSpan := 30 * 24 * time.Hour

	chunks, err := ChunkDateRange(from, to, maxSpan)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.True(t, chunks[0].From.Equal(from), "first chunk must start at from")
	assert.True(t, chunks[len(chunks)-1].To.Equal(to), "last chunk must end exactly at to")

	for i, chunk := range chunks {
		assert.True(t, chunk.From.Before(chunk.To), "chunk %d must be non-empty", i)
		assert.LessOrEqual(t, chunk.To.Sub(chunk.From), maxSpan, "chunk %d exceeds max span", i)
		if i > 0 {
			assert.True(t, chunk.From.Equal(chunks[i-1].To), "chunk %d must start where chunk %d ended", i, i-1)
		}
	}
}

func TestChunkDateRange_EmptyWhenFromNotBeforeTo(t *testing.T) {
	maxSpan := 24 * time.Hour

	chunks, err := ChunkDateRange(date(2024, 3, 1), date(2024, 3, 1), maxSpan)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = ChunkDateRange(date(2024, 3, 2), date(2024, 3, 1), maxSpan)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkDateRange_RejectsNonPositiveSpan(t *testing.T) {
	_, err := ChunkDateRange(date(2024, 1, 1), date(2024, 2, 1), 0)
	assert.ErrorIs(t, err, ErrInvalidChunkSpan)

	_, err = ChunkDateRange(date(2024, 1, 1), date(2024, 2, 1), -time.Hour)
	assert.ErrorIs(t, err, ErrInvalidChunkSpan)
}

func TestChunkDateRange_Deterministic(t *testing.T) {
	from := date(2023, 11, 7)
	to := date(2024, 2, 29)
	maxSpan := 30 * 24 * time.Hour

	first, err := ChunkDateRange(from, to, maxSpan)
	require.NoError(t, err)
	second, err := ChunkDateRange(from, to, maxSpan)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunkDateRange_TwoMonthWindow(t *testing.T) {
	// A 30-day span over Jan 1 .. Mar 1 2024 must produce exactly the two
	// windows the bank API will accept.
	chunks, err := ChunkDateRange(date(2024, 1, 1), date(2024, 3, 1), 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.True(t, chunks[0].From.Equal(date(2024, 1, 1)))
	assert.True(t, chunks[0].To.Equal(date(2024, 1, 31)))
	assert.True(t, chunks[1].From.Equal(date(2024, 1, 31)))
	assert.True(t, chunks[1].To.Equal(date(2024, 3, 1)))
}
