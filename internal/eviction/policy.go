package eviction

import (
	"time"

	"github.com/hupe1980/respool/internal/queue"
)

// DefaultSizeNormalizer expresses entry sizes in MiB when scoring.
const DefaultSizeNormalizer = 1 << 20

// Weights configures the scoring signals.
type Weights struct {
	Priority  float64
	Frequency float64
	Idle      float64
	Size      float64
}

// DefaultWeights returns the default scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Priority:  100,
		Frequency: -10,
		Idle:      -1,
		Size:      -0.5,
	}
}

// Candidate is an entry that may be evicted.
type Candidate struct {
	Key   string
	Usage Usage
}

// Policy turns usage statistics into an eviction order.
type Policy struct {
	weights    Weights
	normalizer float64
}

// NewPolicy creates a policy. sizeNormalizer <= 0 uses DefaultSizeNormalizer.
func NewPolicy(w Weights, sizeNormalizer int64) *Policy {
	if sizeNormalizer <= 0 {
		sizeNormalizer = DefaultSizeNormalizer
	}
	return &Policy{
		weights:    w,
		normalizer: float64(sizeNormalizer),
	}
}

// Weights returns the configured weights.
func (p *Policy) Weights() Weights {
	return p.weights
}

// AccessFrequency returns accesses per minute since creation.
// The age is floored at one minute so fresh entries do not spike.
func AccessFrequency(u Usage, now time.Time) float64 {
	minutes := now.Sub(u.CreatedAt).Minutes()
	if minutes < 1 {
		minutes = 1
	}
	return float64(u.AccessCount) / minutes
}

// Score combines priority, frequency, idle time and size. Lower evicts sooner.
func (p *Policy) Score(u Usage, now time.Time) float64 {
	w := p.weights
	return float64(u.Priority)*w.Priority -
		AccessFrequency(u, now)*w.Frequency +
		u.Idle(now).Seconds()*w.Idle +
		(float64(u.SizeBytes)/p.normalizer)*w.Size
}

// Queue scores the candidates and returns them as a min-heap.
// Exempt candidates are skipped unless includeExempt is set.
func (p *Policy) Queue(cands []Candidate, now time.Time, includeExempt bool) *queue.PriorityQueue {
	pq := queue.New(len(cands))
	for _, c := range cands {
		if c.Usage.Exempt && !includeExempt {
			continue
		}
		pq.Push(queue.Item{
			Key:       c.Key,
			Score:     p.Score(c.Usage, now),
			Seq:       c.Usage.Seq,
			SizeBytes: c.Usage.SizeBytes,
		})
	}
	return pq
}

// Rank returns the full eviction order of the candidates.
func (p *Policy) Rank(cands []Candidate, now time.Time, includeExempt bool) []queue.Item {
	pq := p.Queue(cands, now, includeExempt)
	out := make([]queue.Item, 0, pq.Len())
	for {
		it, ok := pq.Pop()
		if !ok {
			return out
		}
		out = append(out, it)
	}
}
