package syncer

import (
	"errors"
	"time"
)

// ErrInvalidChunkSpan signals a non-positive maximum span. It is a
// configuration error and is never swallowed into a sync error list.
var ErrInvalidChunkSpan = errors.New("chunk max span must be positive")

// DateChunk is one bounded [From, To) sub-interval of a sync window.
type DateChunk struct {
	From time.Time
	To   time.Time
}

// ChunkDateRange splits [from, to) into consecutive chunks of at most maxSpan
// each. The output covers the range with no gaps and no overlaps, the final
// chunk ends exactly at to, and identical inputs always produce identical
// output. from >= to yields an empty sequence, not an error.
func ChunkDateRange(from, to time.Time, maxSpan time.Duration) ([]DateChunk, error) {
	if maxSpan <= 0 {
		return nil, ErrInvalidChunkSpan
	}
	if !from.Before(to) {
		return nil, nil
	}

	var chunks []DateChunk
	for cursor := from; cursor.Before(to); {
		end := cursor.Add(maxSpan)
		if end.After(to) {
			end = to
		}
		chunks = append(chunks, DateChunk{From: cursor, To: end})
		cursor = end
	}
	return chunks, nil
}
