package retrieve

import (
	"sort"

	"github.com/ragpipe/ragpipe/pkg/domain"
)

// defaultRRFConstant dampens the contribution of lower-ranked results.
const defaultRRFConstant = 60

// RRFFuser combines ranked lists with Reciprocal Rank Fusion.
type RRFFuser struct {
	k int
}

// NewRRFFuser creates a fuser with the given constant; non-positive values
// fall back to the default of 60.
func NewRRFFuser(k int) *RRFFuser {
	if k <= 0 {
		k = defaultRRFConstant
	}
	return &RRFFuser{k: k}
}

// Fuse merges the ranked lists, scoring each chunk by the sum of
// 1/(k+rank) over every list it appears in, and returns the unique chunks
// sorted by fused score descending.
func (f *RRFFuser) Fuse(lists ...[]domain.Chunk) []domain.Chunk {
	scores := make(map[string]float64)
	chunksMap := make(map[string]domain.Chunk)

	for _, list := range lists {
		for i, chunk := range list {
			rank := i + 1
			scores[chunk.ID] += 1.0 / float64(f.k+rank)
			if _, exists := chunksMap[chunk.ID]; !exists {
				chunksMap[chunk.ID] = chunk
			}
		}
	}

	fused := make([]domain.Chunk, 0, len(chunksMap))
	for id, chunk := range chunksMap {
		chunk.Score = scores[id]
		fused = append(fused, chunk)
	}

	sort.Slice(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	return fused
}
