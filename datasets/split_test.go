package datasets

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailySeries(start time.Time, n int) *Series {
	return regularSeries(start, 24*time.Hour, n)
}

func regularSeries(start time.Time, step time.Duration, n int) *Series {
	s := &Series{Name: "power"}
	for i := range n {
		s.Times = append(s.Times, start.Add(time.Duration(i)*step))
		s.Values = append(s.Values, float64(i))
	}
	return s
}

func TestTimeSplitDailyYear(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	s := dailySeries(start, 365)

	sp, err := TimeSplit(s, SplitConfig{TrainMonths: 9, ValidMonths: 2})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC), sp.TrainEnd)
	assert.Equal(t, time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC), sp.ValidEnd)

	assert.Equal(t, start, sp.Train.Start())
	assert.Equal(t, time.Date(2021, 9, 30, 0, 0, 0, 0, time.UTC), sp.Train.End())
	assert.Equal(t, time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC), sp.Valid.Start())
	assert.Equal(t, time.Date(2021, 11, 30, 0, 0, 0, 0, time.UTC), sp.Valid.End())
	assert.Equal(t, time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC), sp.Test.Start())
	assert.Equal(t, time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), sp.Test.End())

	assert.Equal(t, 273, sp.Train.Len())
	assert.Equal(t, 61, sp.Valid.Len())
	assert.Equal(t, 31, sp.Test.Len())
}

func TestTimeSplitPartitionsTenMinuteData(t *testing.T) {
	start := time.Date(2020, 3, 15, 6, 0, 0, 0, time.UTC)
	for _, tc := range []struct{ train, valid, days int }{
		{1, 1, 90},
		{9, 2, 400},
		{3, 5, 300},
		{2, 1, 95},
	} {
		s := regularSeries(start, 10*time.Minute, tc.days*144)
		sp, err := TimeSplit(s, SplitConfig{TrainMonths: tc.train, ValidMonths: tc.valid})
		require.NoError(t, err, "%+v", tc)

		// row counts sum to the original length
		assert.Equal(t, s.Len(), sp.Train.Len()+sp.Valid.Len()+sp.Test.Len(), "%+v", tc)

		// non-overlapping, chronologically ordered
		assert.True(t, sp.Train.End().Before(sp.Valid.Start()), "%+v", tc)
		assert.True(t, sp.Valid.End().Before(sp.Test.Start()), "%+v", tc)

		// contiguous: no gap larger than one sampling interval
		assert.Equal(t, 10*time.Minute, sp.Valid.Start().Sub(sp.Train.End()), "%+v", tc)
		assert.Equal(t, 10*time.Minute, sp.Test.Start().Sub(sp.Valid.End()), "%+v", tc)

		// boundary timestamps open the next split
		assert.Equal(t, sp.TrainEnd, sp.Valid.Start(), "%+v", tc)
		assert.Equal(t, sp.ValidEnd, sp.Test.Start(), "%+v", tc)
	}
}

func TestTimeSplitExplicitResolution(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	s := regularSeries(start, time.Hour, 24*120)

	sp, err := TimeSplit(s, SplitConfig{TrainMonths: 1, ValidMonths: 1, Resolution: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 31, 23, 0, 0, 0, time.UTC), sp.Train.End())
	assert.Equal(t, s.Len(), sp.Train.Len()+sp.Valid.Len()+sp.Test.Len())
}

func TestTimeSplitEmptyPartitions(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	// shorter than train+valid: test is empty
	_, err := TimeSplit(dailySeries(start, 300), SplitConfig{TrainMonths: 9, ValidMonths: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptySplit))
	var ese *EmptySplitError
	require.True(t, errors.As(err, &ese))
	assert.Equal(t, SplitTest, ese.Split)

	// shorter than train: valid is empty
	_, err = TimeSplit(dailySeries(start, 200), SplitConfig{TrainMonths: 9, ValidMonths: 2})
	require.True(t, errors.As(err, &ese))
	assert.Equal(t, SplitValid, ese.Split)

	// zero-month train window
	_, err = TimeSplit(dailySeries(start, 365), SplitConfig{TrainMonths: 0, ValidMonths: 2})
	require.True(t, errors.As(err, &ese))
	assert.Equal(t, SplitTrain, ese.Split)

	_, err = TimeSplit(&Series{}, SplitConfig{TrainMonths: 1, ValidMonths: 1})
	assert.True(t, errors.Is(err, ErrEmptySplit))
}

func TestTimeSplitIsDeterministic(t *testing.T) {
	s := dailySeries(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 365)
	a, err := TimeSplit(s, SplitConfig{TrainMonths: 6, ValidMonths: 3})
	require.NoError(t, err)
	b, err := TimeSplit(s, SplitConfig{TrainMonths: 6, ValidMonths: 3})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		in   time.Time
		n    int
		want time.Time
	}{
		{time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 9, time.Date(2021, 10, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2021, 1, 31, 12, 0, 0, 0, time.UTC), 1, time.Date(2021, 2, 28, 12, 0, 0, 0, time.UTC)},
		{time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2021, 11, 30, 0, 0, 0, 0, time.UTC), 3, time.Date(2022, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2021, 5, 15, 0, 10, 0, 0, time.UTC), 0, time.Date(2021, 5, 15, 0, 10, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, AddMonths(c.in, c.n), "%s + %d", c.in, c.n)
	}
}
