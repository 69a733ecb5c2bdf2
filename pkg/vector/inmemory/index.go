// Package inmemory is a process-local vector.Index for tests and single-node dev runs.
package inmemory

import (
	"context"
	"math"
	"sort"
	"sync"

	"aura-chat-be/pkg/vector"

	"github.com/google/uuid"
)

type Index struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]vector.Entry
}

var _ vector.Index = (*Index)(nil)

func New() *Index {
	return &Index{entries: make(map[uuid.UUID]vector.Entry)}
}

func (i *Index) Upsert(ctx context.Context, entry vector.Entry) error {
	if len(entry.Vector) == 0 {
		return vector.ErrEmptyVector
	}
	stored := entry
	stored.Vector = append([]float32(nil), entry.Vector...)

	i.mu.Lock()
	i.entries[entry.MessageID] = stored
	i.mu.Unlock()
	return nil
}

func (i *Index) Query(ctx context.Context, vec []float32, k int, filter vector.Filter) ([]vector.Match, error) {
	if err := vector.ValidateQuery(vec, k, filter); err != nil {
		return nil, err
	}

	i.mu.RLock()
	matches := make([]vector.Match, 0, len(i.entries))
	for _, e := range i.entries {
		if e.Metadata.UserID != filter.UserID || len(e.Vector) != len(vec) {
			continue
		}
		matches = append(matches, vector.Match{
			MessageID: e.MessageID,
			Metadata:  e.Metadata,
			Score:     cosine(vec, e.Vector),
		})
	}
	i.mu.RUnlock()

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (i *Index) DeleteByChat(ctx context.Context, chatID uuid.UUID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for id, e := range i.entries {
		if e.Metadata.ChatID == chatID {
			delete(i.entries, id)
		}
	}
	return nil
}

// Len is the number of stored entries.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
