package questionbank

import (
	"context"
	"math/rand"
	"time"
)

// SetSize is the number of questions a full assessment draws.
const SetSize = 15

// Per-type caps for one draw: 8 multiple-choice, 2 coding, 5 fill-in-blank.
const (
	maxMCQ    = 8
	maxCoding = 2
	maxBlank  = 5
)

type Store interface {
	PutQuestion(ctx context.Context, q Question) error
	// PoolByType returns all stored questions for (skill, difficulty), keyed by type.
	PoolByType(ctx context.Context, skill string, difficulty Difficulty) (map[Type][]Question, error)
}

// Accessor draws balanced, shuffled question sets out of a Store.
type Accessor struct {
	store Store
	rng   *rand.Rand
}

func NewAccessor(store Store) *Accessor {
	return &Accessor{store: store, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewAccessorWithSeed pins the shuffle order. Tests only.
func NewAccessorWithSeed(store Store, seed int64) *Accessor {
	return &Accessor{store: store, rng: rand.New(rand.NewSource(seed))}
}

// FetchQuestionSet draws up to 8 mcqs, 2 coding and 5 blanks without replacement,
// then reshuffles the concatenation so no position is biased toward a type.
// Fewer than SetSize items is a silent degradation: the caller must check the
// returned length before starting a session.
func (a *Accessor) FetchQuestionSet(ctx context.Context, skill string, difficulty Difficulty) ([]Question, error) {
	pool, err := a.store.PoolByType(ctx, skill, difficulty)
	if err != nil {
		return nil, err
	}
	set := a.sample(pool[TypeMCQ], maxMCQ)
	set = append(set, a.sample(pool[TypeCoding], maxCoding)...)
	set = append(set, a.sample(pool[TypeBlank], maxBlank)...)
	a.rng.Shuffle(len(set), func(i, j int) { set[i], set[j] = set[j], set[i] })
	return set, nil
}

// sample draws up to n items without replacement, in random order.
func (a *Accessor) sample(pool []Question, n int) []Question {
	if n > len(pool) {
		n = len(pool)
	}
	idx := a.rng.Perm(len(pool))[:n]
	out := make([]Question, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}
