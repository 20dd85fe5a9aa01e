package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBrowser struct {
	playwright.Browser
}

func (stubBrowser) IsConnected() bool { return true }

type stubContext struct {
	playwright.BrowserContext
}

func TestContextLaunchesOnce(t *testing.T) {
	m := New(DefaultOptions())

	var launches atomic.Int32
	m.launchFn = func() error {
		launches.Add(1)
		time.Sleep(50 * time.Millisecond)
		m.mu.Lock()
		m.browser = stubBrowser{}
		m.context = stubContext{}
		m.mu.Unlock()
		return nil
	}

	const callers = 5
	contexts := make([]playwright.BrowserContext, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bc, err := m.Context(context.Background())
			assert.NoError(t, err)
			contexts[i] = bc
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), launches.Load())
	for _, bc := range contexts {
		assert.Equal(t, contexts[0], bc)
	}
}

func TestContextHonorsCancelWhileInitializing(t *testing.T) {
	m := New(DefaultOptions())
	m.initializing.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Context(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResetRemovesStateFile(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "session-state.json")
	require.NoError(t, os.WriteFile(stateFile, []byte(`{"cookies":[]}`), 0644))

	opts := DefaultOptions()
	opts.StateFile = stateFile
	m := New(opts)

	require.NoError(t, m.Reset())
	_, err := os.Stat(stateFile)
	assert.True(t, os.IsNotExist(err))

	// A second reset with nothing to remove is fine.
	require.NoError(t, m.Reset())
}
