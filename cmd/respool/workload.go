package main

import (
	"math"
	"math/rand"
	"sort"
	"sync"
)

// workload draws the random choices of a soak run. Key popularity follows
// a Zipf law over a fixed key space: a few resources are requested all the
// time, most are rare. It is safe for concurrent use.
type workload struct {
	mu   sync.Mutex
	rand *rand.Rand
	cdf  []float64 // cumulative key weights, normalized to 1
}

func newWorkload(seed int64, keys int, skew float64) *workload {
	keys = max(keys, 1)

	cdf := make([]float64, keys)
	var sum float64
	for k := range keys {
		sum += 1 / math.Pow(float64(k+1), skew)
		cdf[k] = sum
	}
	for k := range cdf {
		cdf[k] /= sum
	}

	return &workload{
		rand: rand.New(rand.NewSource(seed)),
		cdf:  cdf,
	}
}

// key returns the index of the next requested key in [0, keys).
func (w *workload) key() int {
	u := w.uniform()
	i := sort.SearchFloat64s(w.cdf, u)
	return min(i, len(w.cdf)-1)
}

func (w *workload) intn(n int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rand.Intn(n)
}

func (w *workload) uniform() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rand.Float64()
}

// size returns a byte size in [minBytes, maxBytes].
func (w *workload) size(minBytes, maxBytes int64) int64 {
	if maxBytes <= minBytes {
		return minBytes
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return minBytes + w.rand.Int63n(maxBytes-minBytes+1)
}
