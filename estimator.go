// Package ringquantile provides exact, bucket-level quantile estimation for
// streams of bounded unsigned integer values, along with a time-windowed
// variant that tracks quantiles over a trailing window.
package ringquantile

import (
	"errors"
	"math"

	"github.com/bits-and-blooms/bitset"
)

var ErrInvalidRange = errors.New("end must be greater than start")
var ErrOutOfRange = errors.New("value out of range")
var ErrInvalidFraction = errors.New("fraction must be between 0 and 1")
var ErrEmpty = errors.New("no values recorded")
var ErrMismatchedRange = errors.New("estimators cover different ranges")

// Estimator estimates quantiles for a stream of values in the half-open
// range [start, end) by keeping one counter per possible value. Memory is
// O(end - start) and quantile queries are exact at bucket granularity, which
// trades space for accuracy compared to sketch-based estimators. Occupied
// buckets are tracked in a bitset so that scans, resets, and merges skip
// runs of empty buckets.
//
// This type is not concurrency safe.
type Estimator struct {
	start uint64
	end   uint64

	// Mutable state
	counts   []uint64
	occupied *bitset.BitSet
	total    uint64
}

// NewEstimator creates an Estimator for values in [start, end). Returns
// ErrInvalidRange if end <= start.
func NewEstimator(start, end uint64) (*Estimator, error) {
	if end <= start {
		return nil, ErrInvalidRange
	}
	size := uint(end - start)
	return &Estimator{
		start:    start,
		end:      end,
		counts:   make([]uint64, size),
		occupied: bitset.New(size),
	}, nil
}

// AddValue records a value, returning ErrOutOfRange if the value falls
// outside [start, end), in which case no state is changed.
func (e *Estimator) AddValue(value uint64) error {
	if value < e.start || value >= e.end {
		return ErrOutOfRange
	}
	e.add(value)
	return nil
}

// add records a value that has already been validated against the range.
func (e *Estimator) add(value uint64) {
	i := uint(value - e.start)
	e.counts[i]++
	e.occupied.Set(i)
	e.total++
}

// EstimateQuantile returns the value below which the given fraction of
// recorded values fall, using the nearest-rank definition: the target rank
// is ceil(fraction * total), clamped to [1, total], and the result is the
// smallest value whose cumulative count reaches that rank. Estimates are
// monotonic non-decreasing in fraction for a fixed histogram state. Returns
// ErrInvalidFraction if fraction is outside [0, 1], or ErrEmpty if no values
// have been recorded.
func (e *Estimator) EstimateQuantile(fraction float64) (uint64, error) {
	if fraction < 0 || fraction > 1 {
		return 0, ErrInvalidFraction
	}
	if e.total == 0 {
		return 0, ErrEmpty
	}
	rank := targetRank(fraction, e.total)
	var cumulative uint64
	for i, ok := e.occupied.NextSet(0); ok; i, ok = e.occupied.NextSet(i + 1) {
		cumulative += e.counts[i]
		if cumulative >= rank {
			return e.start + uint64(i), nil
		}
	}
	// Unreachable: total equals the sum of counts, so some bucket reaches rank
	return 0, ErrEmpty
}

// Total returns the number of values recorded.
func (e *Estimator) Total() uint64 {
	return e.total
}

// Range returns the half-open range [start, end) of trackable values.
func (e *Estimator) Range() (start, end uint64) {
	return e.start, e.end
}

// Merge adds the counts from another Estimator, which must cover the same
// range, else ErrMismatchedRange is returned. The other Estimator is not
// modified.
func (e *Estimator) Merge(other *Estimator) error {
	if e.start != other.start || e.end != other.end {
		return ErrMismatchedRange
	}
	for i, ok := other.occupied.NextSet(0); ok; i, ok = other.occupied.NextSet(i + 1) {
		e.counts[i] += other.counts[i]
		e.occupied.Set(i)
	}
	e.total += other.total
	return nil
}

// subtract removes the counts from another Estimator whose counts were
// previously merged into this one and must still be present in full.
func (e *Estimator) subtract(other *Estimator) {
	for i, ok := other.occupied.NextSet(0); ok; i, ok = other.occupied.NextSet(i + 1) {
		e.counts[i] -= other.counts[i]
		if e.counts[i] == 0 {
			e.occupied.Clear(i)
		}
	}
	e.total -= other.total
}

// Reset clears all recorded values.
func (e *Estimator) Reset() {
	for i, ok := e.occupied.NextSet(0); ok; i, ok = e.occupied.NextSet(i + 1) {
		e.counts[i] = 0
	}
	e.occupied.ClearAll()
	e.total = 0
}

// targetRank returns the 1-based rank targeted by a quantile fraction over
// total values, clamped to [1, total].
func targetRank(fraction float64, total uint64) uint64 {
	rank := uint64(math.Ceil(fraction * float64(total)))
	if rank < 1 {
		rank = 1
	}
	if rank > total {
		rank = total
	}
	return rank
}
