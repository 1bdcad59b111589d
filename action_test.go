package spacemaker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"machinerun.io/spacemaker"
)

const gib = spacemaker.Gibibyte

func TestAdjustedTargetSize(t *testing.T) {
	assert := assert.New(t)

	for _, td := range []struct {
		shrink   spacemaker.Shrink
		expected uint64
	}{
		{spacemaker.Shrink{TargetSize: 5 * gib, MinSize: 8 * gib}, 8 * gib},
		{spacemaker.Shrink{TargetSize: 5 * gib, MaxSize: 4 * gib}, 4 * gib},
		{spacemaker.Shrink{TargetSize: 5 * gib, MinSize: 2 * gib, MaxSize: 8 * gib}, 5 * gib},
		{spacemaker.Shrink{TargetSize: 5 * gib}, 5 * gib},
		// the floor wins over the ceiling.
		{spacemaker.Shrink{TargetSize: 5 * gib, MinSize: 8 * gib, MaxSize: 6 * gib}, 8 * gib},
		{spacemaker.Shrink{TargetSize: 10 * gib, MinSize: 8 * gib, MaxSize: 6 * gib}, 6 * gib},
	} {
		assert.Equal(td.expected, td.shrink.AdjustedTargetSize(), "%+v", td.shrink)
	}
}

func TestAdjustedTargetSizeIdempotent(t *testing.T) {
	assert := assert.New(t)

	for _, s := range []spacemaker.Shrink{
		{TargetSize: 5 * gib, MinSize: 8 * gib},
		{TargetSize: 9 * gib, MaxSize: 4 * gib},
		{TargetSize: 1 * gib, MinSize: 2 * gib, MaxSize: 6 * gib},
		{TargetSize: 7 * gib, MinSize: 2 * gib, MaxSize: 6 * gib},
		{TargetSize: 3 * gib},
	} {
		once := s.AdjustedTargetSize()
		if s.MinSize != 0 && s.MaxSize != 0 {
			assert.True(s.MinSize <= once && once <= s.MaxSize)
		}

		s.TargetSize = once
		assert.Equal(once, s.AdjustedTargetSize())
	}
}

func TestForMissing(t *testing.T) {
	assert := assert.New(t)

	s := spacemaker.Shrink{SID: 3, TargetSize: 4 * gib}

	assert.Equal(uint64(7*gib), s.ForMissing(10*gib, 3*gib).TargetSize)
	assert.Equal(uint64(4*gib), s.ForMissing(10*gib, 8*gib).TargetSize)
	assert.Equal(uint64(4*gib), s.ForMissing(10*gib, 20*gib).TargetSize)
	assert.Equal(spacemaker.SID(3), s.ForMissing(10*gib, 3*gib).SID)
}

func TestActionTargets(t *testing.T) {
	assert := assert.New(t)

	for _, a := range []spacemaker.Action{
		spacemaker.Delete{SID: 7},
		spacemaker.Delete{SID: 7, RelatedPartitions: true},
		spacemaker.Wipe{SID: 7},
		spacemaker.Shrink{SID: 7, TargetSize: gib},
	} {
		assert.Equal(spacemaker.SID(7), a.Target())
		assert.Contains(a.String(), "sid=7")
	}
}
