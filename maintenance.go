package respool

import "time"

func (p *Pool) startMaintenance(interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				p.Maintain()
			case <-p.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Maintain runs one maintenance tick:
//
//  1. dispose handles queued by earlier passes or landed after Dispose
//  2. pressure eviction and entry-limit enforcement
//  3. stats snapshot, kept as LastSnapshot and passed to the MetricsCollector
//
// A tick that starts while another is running returns false immediately.
func (p *Pool) Maintain() bool {
	if !p.maintaining.CompareAndSwap(false, true) {
		return false
	}
	defer p.maintaining.Store(false)

	swept := p.sweep()

	p.mu.Lock()
	evicted := 0
	if !p.closed {
		evicted = p.cleanupLocked()
	}
	p.mu.Unlock()

	swept += p.sweep()

	s := p.Stats()
	p.snapshot.Store(&s)
	p.metrics.RecordSnapshot(s)

	if evicted > 0 || swept > 0 {
		p.logger.Debug("maintenance tick",
			"evicted", evicted,
			"disposed", swept,
			"entries", s.EntryCount,
			"utilization_pct", s.UtilizationPct,
		)
	}
	return true
}

// LastSnapshot returns the stats taken by the most recent maintenance tick.
// It reports false before the first tick.
func (p *Pool) LastSnapshot() (Stats, bool) {
	s := p.snapshot.Load()
	if s == nil {
		return Stats{}, false
	}
	return *s, true
}
