package respool

import (
	"github.com/hupe1980/respool/internal/eviction"
	"github.com/hupe1980/respool/internal/queue"
)

// PerformEviction evicts unreferenced, non-exempt entries in ascending score
// order until usage is at or below targetBytes. If the candidates run out
// first (and the exempt hard sweep is disabled or exhausted too), the pool
// records an eviction deadlock and keeps running over budget.
// It returns the number of evicted entries.
func (p *Pool) PerformEviction(targetBytes int64) int {
	p.mu.Lock()
	n := p.evictBytesLocked(max(targetBytes, 0))
	p.mu.Unlock()

	p.sweep()
	return n
}

// EnforceEntryLimit evicts the lowest-scoring eligible entries until the
// entry count is at or below MaxEntries. It returns the number of evicted
// entries.
func (p *Pool) EnforceEntryLimit() int {
	p.mu.Lock()
	n := p.enforceEntryLimitLocked()
	p.mu.Unlock()

	p.sweep()
	return n
}

// EvictionOrder returns the keys the next pressure pass would evict, first
// victim first. Referenced and exempt entries are not listed.
func (p *Pool) EvictionOrder() []string {
	p.mu.Lock()
	items := p.policy.Rank(p.candidatesLocked(), p.now(), false)
	p.mu.Unlock()

	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}

// cleanupLocked runs the pressure check followed by entry-limit enforcement.
// Must hold p.mu.
func (p *Pool) cleanupLocked() int {
	n := 0
	ratio := p.cfg.CleanupThresholdRatio
	if p.accountant.NeedsCleanup(ratio) {
		n += p.evictBytesLocked(p.accountant.Threshold(ratio))
	}
	n += p.enforceEntryLimitLocked()
	return n
}

func (p *Pool) evictBytesLocked(target int64) int {
	if p.accountant.Current() <= target {
		return 0
	}

	now := p.now()
	cands := p.candidatesLocked()

	n := p.drainLocked(p.policy.Queue(cands, now, false), ReasonPressure, func() bool {
		return p.accountant.Current() > target
	})

	if p.accountant.Current() > target && p.cfg.ExemptHardSweep {
		// Every eligible non-exempt entry is gone, so only exempt ones remain.
		n += p.drainLocked(p.policy.Queue(p.candidatesLocked(), now, true), ReasonHardSweep, func() bool {
			return p.accountant.Current() > target
		})
	}

	if p.accountant.Current() > target {
		p.deadlockLocked(target)
	}
	return n
}

func (p *Pool) enforceEntryLimitLocked() int {
	limit := p.cfg.MaxEntries
	if limit <= 0 || len(p.entries) <= limit {
		return 0
	}

	pq := p.policy.Queue(p.candidatesLocked(), p.now(), false)
	n := p.drainLocked(pq, ReasonEntryLimit, func() bool {
		return len(p.entries) > limit
	})

	if len(p.entries) > limit {
		p.logger.Debug("entry limit not reached: remaining entries are in use or exempt",
			"entries", len(p.entries),
			"max_entries", limit,
		)
	}
	return n
}

// drainLocked pops victims from pq while more is true.
func (p *Pool) drainLocked(pq *queue.PriorityQueue, reason EvictionReason, more func() bool) int {
	n := 0
	for more() {
		it, ok := pq.Pop()
		if !ok {
			break
		}
		e, ok := p.entries[it.Key]
		if !ok || e.refCount > 0 {
			continue
		}

		p.destroyLocked(it.Key, e)
		p.evictions.Add(1)
		p.evictedBytes.Add(e.size)
		p.metrics.RecordEviction(reason, e.size)
		p.logger.LogEviction(it.Key, reason, e.size, it.Score)
		n++
	}
	return n
}

// candidatesLocked lists every unreferenced entry.
func (p *Pool) candidatesLocked() []eviction.Candidate {
	cands := make([]eviction.Candidate, 0, len(p.entries))
	for key, e := range p.entries {
		if e.refCount > 0 {
			continue
		}
		u, ok := p.tracker.Get(key)
		if !ok {
			continue
		}
		cands = append(cands, eviction.Candidate{Key: key, Usage: u})
	}
	return cands
}

func (p *Pool) deadlockLocked(target int64) {
	pinned := 0
	for _, e := range p.entries {
		if e.refCount > 0 {
			pinned++
		}
	}

	p.deadlocks.Add(1)
	p.metrics.RecordAnomaly(AnomalyEvictionDeadlock)
	p.logger.LogDeadlock(p.accountant.Current(), target, pinned)
}
