package fieldclient

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_CoalescesBursts(t *testing.T) {
	clock := newFakeClock(testStart)
	var calls atomic.Int32
	debouncer := NewDebouncer(clock, TouchDelay, func() { calls.Add(1) })

	for range 5 {
		debouncer.Trigger()
		clock.Advance(time.Second)
	}
	assert.Equal(t, int32(0), calls.Load(), "nothing fires while edits keep coming")

	clock.Advance(TouchDelay)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, debouncer.Pending())

	clock.Advance(6 * time.Second)
	debouncer.Trigger()
	clock.Advance(TouchDelay)
	assert.Equal(t, int32(2), calls.Load(), "a later edit starts a new batch")
}

func TestDebouncer_QuietPeriod(t *testing.T) {
	clock := newFakeClock(testStart)
	var calls atomic.Int32
	debouncer := NewDebouncer(clock, TouchDelay, func() { calls.Add(1) })

	debouncer.Trigger()
	clock.Advance(TouchDelay - time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	clock.Advance(time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncer_FlushAndStop(t *testing.T) {
	clock := newFakeClock(testStart)
	var calls atomic.Int32
	debouncer := NewDebouncer(clock, TouchDelay, func() { calls.Add(1) })

	debouncer.Flush()
	assert.Equal(t, int32(0), calls.Load(), "flush without a pending call is a no-op")

	debouncer.Trigger()
	debouncer.Flush()
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(TouchDelay)
	assert.Equal(t, int32(1), calls.Load(), "the flushed timer does not fire again")

	debouncer.Trigger()
	debouncer.Stop()
	clock.Advance(TouchDelay)
	debouncer.Trigger()
	clock.Advance(TouchDelay)
	assert.Equal(t, int32(1), calls.Load())
}
