package ringquantile

import (
	"errors"
	"time"

	"github.com/luminshi/ringquantile/internal/util"
)

var ErrInvalidCapacity = errors.New("capacity must be greater than zero")
var ErrInvalidDuration = errors.New("duration must be greater than zero")
var ErrInvalidTimestamp = errors.New("timestamp must be non-negative")

// Ring estimates quantiles over a trailing time window by spreading values
// across a fixed ring of per-epoch Estimators, where an epoch is
// timestamp / duration and epochs map onto slots modulo capacity. The ring
// covers capacity * duration of trailing time ending at the most recent
// insert.
//
// Slots are recycled lazily: a slot's contents are replaced only when a new
// insert maps onto it, so quantiles can include values older than the window
// until fresh inserts reclaim their slots. Eviction happens at insert time,
// not at query time.
//
// This type is not concurrency safe.
type Ring struct {
	capacity uint
	duration time.Duration
	start    uint64
	end      uint64
	clock    util.Clock

	// Mutable state
	slots []slot

	// The merged counts of all slots, updated as slots gain values and are
	// recycled, so that queries avoid re-merging the ring.
	summary *Estimator
}

// A slot pairs an Estimator with the epoch whose values it currently holds,
// or -1 if it has never been written.
type slot struct {
	hist  *Estimator
	epoch int64
}

// NewRing creates a Ring of capacity slots, each covering duration, for
// values in [start, end). Returns ErrInvalidCapacity if capacity is zero,
// ErrInvalidDuration if duration is not positive, or ErrInvalidRange if
// end <= start.
func NewRing(capacity uint, duration time.Duration, start, end uint64) (*Ring, error) {
	if capacity == 0 {
		return nil, ErrInvalidCapacity
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	summary, err := NewEstimator(start, end)
	if err != nil {
		return nil, err
	}
	slots := make([]slot, capacity)
	for i := range slots {
		hist, err := NewEstimator(start, end)
		if err != nil {
			return nil, err
		}
		slots[i] = slot{hist: hist, epoch: -1}
	}
	return &Ring{
		capacity: capacity,
		duration: duration,
		start:    start,
		end:      end,
		clock:    util.NewClock(),
		slots:    slots,
		summary:  summary,
	}, nil
}

// Add records a value at the current time.
func (r *Ring) Add(value uint64) error {
	return r.AddAt(value, r.clock.CurrentUnixNano())
}

// AddAt records a value at the given timestamp, expressed in the same unit
// as the ring's duration (Unix nanoseconds when used with Add). The value
// lands in the slot owning the timestamp's epoch; a slot still holding a
// different epoch is emptied before the insert. Returns ErrInvalidTimestamp
// if the timestamp is negative, or ErrOutOfRange if the value falls outside
// the ring's range, in which case no state is changed.
func (r *Ring) AddAt(value uint64, timestamp int64) error {
	if timestamp < 0 {
		return ErrInvalidTimestamp
	}
	// Validate before recycling so a rejected value cannot evict a live slot
	if value < r.start || value >= r.end {
		return ErrOutOfRange
	}
	epoch := timestamp / int64(r.duration)
	s := &r.slots[epoch%int64(r.capacity)]
	if s.epoch != epoch {
		r.summary.subtract(s.hist)
		s.hist.Reset()
		s.epoch = epoch
	}
	s.hist.add(value)
	r.summary.add(value)
	return nil
}

// EstimateQuantile returns the nearest-rank quantile over all values held in
// the ring's slots, under the same contract as Estimator.EstimateQuantile.
// Returns ErrEmpty when every slot is empty.
func (r *Ring) EstimateQuantile(fraction float64) (uint64, error) {
	return r.summary.EstimateQuantile(fraction)
}

// Total returns the number of values currently held across all slots.
func (r *Ring) Total() uint64 {
	return r.summary.Total()
}

// Capacity returns the number of slots in the ring.
func (r *Ring) Capacity() uint {
	return r.capacity
}

// Duration returns the time width covered by one slot.
func (r *Ring) Duration() time.Duration {
	return r.duration
}
