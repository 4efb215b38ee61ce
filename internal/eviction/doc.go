// Package eviction tracks per-entry usage and ranks eviction candidates.
//
// # Scoring
//
// Each candidate gets one scalar, lower meaning "evict sooner":
//
//	score = priority          * W.Priority
//	      - accessesPerMinute * W.Frequency
//	      + idleSeconds       * W.Idle
//	      + (size/normalizer) * W.Size
//
// Weights are signed. The defaults keep priority dominant, pull idle and large
// entries towards the front of the queue, and push frequently used entries
// back (a negative frequency weight turns the subtraction into a bonus).
//
// Ties are broken by insertion sequence, oldest first, so a ranking never
// depends on map iteration order.
//
// # Exemption
//
// Exempt entries are filtered out before scoring. A caller that runs a budget
// hard sweep can opt back in with [Policy.Queue]'s includeExempt flag.
//
// # Thread Safety
//
// Tracker is not synchronized. The pool guards it with its own lock.
package eviction
