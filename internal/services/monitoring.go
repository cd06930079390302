package services

import "sync/atomic"

// Stats counts prediction traffic across transports.
type Stats struct {
	active   atomic.Int64
	served   atomic.Int64
	rejected atomic.Int64
	failed   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Active   int64 `json:"active"`
	Served   int64 `json:"served"`
	Rejected int64 `json:"rejected"`
	Failed   int64 `json:"failed"`
}

func NewStats() *Stats {
	return &Stats{}
}

// Begin marks a prediction in flight; the returned func records its outcome.
func (s *Stats) Begin() func(err error) {
	s.active.Add(1)
	return func(err error) {
		s.active.Add(-1)
		if err != nil {
			s.failed.Add(1)
		} else {
			s.served.Add(1)
		}
	}
}

// Reject counts a payload refused by validation.
func (s *Stats) Reject() {
	s.rejected.Add(1)
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Active:   s.active.Load(),
		Served:   s.served.Load(),
		Rejected: s.rejected.Load(),
		Failed:   s.failed.Load(),
	}
}
