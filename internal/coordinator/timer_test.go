package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerEnqueuesDumpEventsPeriodically(t *testing.T) {
	events := make(chan Event, 8)
	timer := NewTimer(10*time.Millisecond, events)

	ctx, cancel := context.WithCancel(context.Background())
	go timer.Run(ctx)

	time.Sleep(55 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	count := 0
loop:
	for {
		select {
		case ev := <-events:
			_, ok := ev.(DumpEvent)
			assert.True(t, ok)
			count++
		default:
			break loop
		}
	}
	assert.GreaterOrEqual(t, count, 3)
}
