package pool

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSRTT_UnsetReportsNaN(t *testing.T) {
	var s SRTT
	assert.True(t, math.IsNaN(s.Value()))
}

func TestSRTT_FirstSampleTakenWhole(t *testing.T) {
	var s SRTT

	s.Observe(40 * time.Millisecond)

	assert.InDelta(t, 40.0, s.Value(), 0.0001)
}

func TestSRTT_SmoothsTowardNewSamples(t *testing.T) {
	var s SRTT

	s.Observe(40 * time.Millisecond)
	s.Observe(80 * time.Millisecond)
	// 0.875*40 + 0.125*80
	assert.InDelta(t, 45.0, s.Value(), 0.0001)

	s.Observe(80 * time.Millisecond)
	// 0.875*45 + 0.125*80
	assert.InDelta(t, 49.375, s.Value(), 0.0001)
}

func TestSRTT_ZeroSampleStillCountsAsMeasured(t *testing.T) {
	var s SRTT

	s.Observe(0)

	v := s.Value()
	assert.False(t, math.IsNaN(v))
	assert.Greater(t, v, 0.0)
}

func TestSRTT_ConcurrentObserve(t *testing.T) {
	var s SRTT
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.Observe(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	// Identical samples leave the average exactly at the sample.
	assert.InDelta(t, 10.0, s.Value(), 0.0001)
}
