package datasets

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrEmptySplit is wrapped by every EmptySplitError.
var ErrEmptySplit = errors.New("empty split")

// SplitName identifies one of the three chronological partitions.
type SplitName string

const (
	SplitTrain SplitName = "train"
	SplitValid SplitName = "valid"
	SplitTest  SplitName = "test"
)

// EmptySplitError reports a partition that received no rows.
type EmptySplitError struct {
	Split SplitName
	From  time.Time
	To    time.Time // zero for the open-ended test split
}

func (e *EmptySplitError) Error() string {
	if e.To.IsZero() {
		return fmt.Sprintf("%s split starting at %s has no rows", e.Split, e.From.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s split [%s, %s) has no rows", e.Split,
		e.From.Format(time.RFC3339), e.To.Format(time.RFC3339))
}

func (e *EmptySplitError) Unwrap() error { return ErrEmptySplit }

// SplitConfig holds the split boundaries as calendar month offsets from the
// first timestamp. Resolution is the native sampling interval; when zero it
// is inferred from the series.
type SplitConfig struct {
	TrainMonths int
	ValidMonths int
	Resolution  time.Duration
}

// Splits is the result of TimeSplit.
type Splits struct {
	Train, Valid, Test *Series

	TrainEnd time.Time // first instant that belongs to valid
	ValidEnd time.Time // first instant that belongs to test
}

// Get returns the split by name.
func (s *Splits) Get(name SplitName) *Series {
	switch name {
	case SplitTrain:
		return s.Train
	case SplitValid:
		return s.Valid
	case SplitTest:
		return s.Test
	}
	return nil
}

// TimeSplit divides a chronologically sorted series into train, valid and
// test. Train holds [start, trainEnd-res], valid [trainEnd, validEnd-res] and
// test [validEnd, last], so each boundary timestamp opens the next split.
func TimeSplit(s *Series, cfg SplitConfig) (*Splits, error) {
	if s == nil || s.Len() == 0 {
		return nil, &EmptySplitError{Split: SplitTrain}
	}
	if cfg.TrainMonths < 0 || cfg.ValidMonths < 0 {
		return nil, fmt.Errorf("split months must not be negative: train=%d valid=%d", cfg.TrainMonths, cfg.ValidMonths)
	}

	res := cfg.Resolution
	if res <= 0 {
		res = s.Resolution()
	}

	start := s.Start()
	trainEnd := AddMonths(start, cfg.TrainMonths)
	validEnd := AddMonths(trainEnd, cfg.ValidMonths)

	// Inclusive upper bounds one native step before each boundary.
	trainLast := trainEnd.Add(-res)
	validLast := validEnd.Add(-res)

	trainHi := upperIndex(s.Times, trainLast, res)
	validLo := lowerIndex(s.Times, trainEnd)
	validHi := upperIndex(s.Times, validLast, res)
	testLo := lowerIndex(s.Times, validEnd)

	if validLo < trainHi {
		validLo = trainHi
	}
	if validHi < validLo {
		validHi = validLo
	}
	if testLo < validHi {
		testLo = validHi
	}

	out := &Splits{
		Train:    s.Slice(0, trainHi),
		Valid:    s.Slice(validLo, validHi),
		Test:     s.Slice(testLo, s.Len()),
		TrainEnd: trainEnd,
		ValidEnd: validEnd,
	}

	switch {
	case out.Train.Len() == 0:
		return nil, &EmptySplitError{Split: SplitTrain, From: start, To: trainEnd}
	case out.Valid.Len() == 0:
		return nil, &EmptySplitError{Split: SplitValid, From: trainEnd, To: validEnd}
	case out.Test.Len() == 0:
		return nil, &EmptySplitError{Split: SplitTest, From: validEnd}
	}
	return out, nil
}

// lowerIndex returns the first index whose timestamp is >= t.
func lowerIndex(times []time.Time, t time.Time) int {
	return sort.Search(len(times), func(i int) bool { return !times[i].Before(t) })
}

// upperIndex returns one past the last index whose timestamp is <= last.
// A zero resolution degrades to a half-open bound at last+0.
func upperIndex(times []time.Time, last time.Time, res time.Duration) int {
	if res <= 0 {
		return sort.Search(len(times), func(i int) bool { return !times[i].Before(last) })
	}
	return sort.Search(len(times), func(i int) bool { return times[i].After(last) })
}

// AddMonths adds n calendar months, clamping the day to the end of the
// target month (Jan 31 + 1 month is Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(first.Year(), first.Month(), t.Location())
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
