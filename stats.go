package duex

import "sync/atomic"

// Stats holds the four monotonically increasing counters of §4.4/§5.
// 64-bit atomics: must not overflow for the process lifetime, must be
// updated atomically from many connections.
type Stats struct {
	dispatched atomic.Uint64
	completed  atomic.Uint64
	abortions  atomic.Uint64
	rejections atomic.Uint64
}

func (s *Stats) bumpDispatched() { s.dispatched.Add(1) }
func (s *Stats) bumpCompleted()  { s.completed.Add(1) }
func (s *Stats) bumpAbortions()  { s.abortions.Add(1) }
func (s *Stats) bumpRejections() { s.rejections.Add(1) }

func (s *Stats) Dispatched() uint64 { return s.dispatched.Load() }
func (s *Stats) Completed() uint64  { return s.completed.Load() }
func (s *Stats) Abortions() uint64  { return s.abortions.Load() }
func (s *Stats) Rejections() uint64 { return s.rejections.Load() }

// Drained reports whether dispatched == completed + abortions + rejections,
// the invariant tested once the server is drained (§8).
func (s *Stats) Drained() bool {
	return s.Dispatched() == s.Completed()+s.Abortions()+s.Rejections()
}
