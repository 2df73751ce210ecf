package services

import (
	"math/rand"
	"sync"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// Sampler draws the fixed question list of an attempt. It holds no state
// besides its random source, which is injected so tests can seed it.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Sampler{rng: rand.New(src)}
}

// Sample returns k distinct members of pool, chosen uniformly without
// replacement. The selection itself is in random order; shuffle applies an
// additional independent permutation.
func (s *Sampler) Sample(pool []uint, k int, shuffle bool) ([]uint, error) {
	if k < 0 || len(pool) < k {
		return nil, ErrInsufficientPool
	}

	work := append([]uint(nil), pool...)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Partial Fisher-Yates: the first k slots end up holding a uniform k-subset.
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(len(work)-i)
		work[i], work[j] = work[j], work[i]
	}
	selected := work[:k:k]

	if shuffle {
		s.rng.Shuffle(len(selected), func(i, j int) {
			selected[i], selected[j] = selected[j], selected[i]
		})
	}
	return selected, nil
}

// ShuffleOptions returns a per-question option order for every question with
// options. Authored order is kept when randomize is false.
func (s *Sampler) ShuffleOptions(questions []*models.Question, randomize bool) models.OptionOrder {
	order := make(models.OptionOrder, len(questions))

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range questions {
		if q == nil || !q.Type.HasOptions() || len(q.Options) == 0 {
			continue
		}
		ids := q.OptionIDs()
		if randomize {
			s.rng.Shuffle(len(ids), func(i, j int) {
				ids[i], ids[j] = ids[j], ids[i]
			})
		}
		order[q.ID] = ids
	}
	return order
}
