package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerWaits(t *testing.T) {
	p := NewPacer(time.Second, time.Second)
	p.SetDelays(30*time.Millisecond, 10*time.Millisecond)

	start := time.Now()
	require.NoError(t, p.AfterSuccess(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	start = time.Now()
	require.NoError(t, p.AfterError(context.Background()))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
	assert.Less(t, elapsed, 30*time.Millisecond)
}

func TestPacerZeroDelayReturnsImmediately(t *testing.T) {
	p := NewPacer(0, 0)
	require.NoError(t, p.AfterSuccess(context.Background()))
	require.NoError(t, p.AfterError(context.Background()))
}

func TestPacerSharedAcrossCallersPacesIndependently(t *testing.T) {
	p := NewPacer(time.Second, time.Second)
	p.SetDelays(200*time.Millisecond, 200*time.Millisecond)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, p.AfterSuccess(context.Background()))
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	// five callers sharing one pacer overlap their waits; serializing them
	// would take ~1s
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 600*time.Millisecond)
}

func TestPacerHonorsContext(t *testing.T) {
	p := NewPacer(10*time.Second, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.AfterSuccess(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
