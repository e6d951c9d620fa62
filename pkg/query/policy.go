package query

import "time"

// StalePolicy decides whether data fetched at fetchedAt must be refetched at now.
type StalePolicy interface {
	IsStale(fetchedAt, now time.Time) bool
}

// MaxAge treats data older than the duration as stale.
type MaxAge time.Duration

// IsStale implements StalePolicy.
func (m MaxAge) IsStale(fetchedAt, now time.Time) bool {
	return now.Sub(fetchedAt) >= time.Duration(m)
}

// Always refetches on every Fetch.
type Always struct{}

// IsStale implements StalePolicy.
func (Always) IsStale(time.Time, time.Time) bool { return true }

// Never keeps data until it is invalidated.
type Never struct{}

// IsStale implements StalePolicy.
func (Never) IsStale(time.Time, time.Time) bool { return false }

// Timer is the part of *time.Timer the cache needs.
type Timer interface {
	Stop() bool
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
