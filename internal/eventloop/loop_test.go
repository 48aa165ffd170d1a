package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsTasksInPostOrder(t *testing.T) {
	loop := New(nil)
	loop.Start()
	defer loop.Stop()

	var got []int // only touched from loop tasks
	for i := 0; i < 500; i++ {
		i := i
		require.True(t, loop.Post(func() { got = append(got, i) }))
	}

	var snapshot []int
	require.True(t, loop.Invoke(func() { snapshot = append(snapshot, got...) }))
	require.Len(t, snapshot, 500)
	for i, v := range snapshot {
		assert.Equal(t, i, v)
	}
}

func TestLoopPostFromManyGoroutines(t *testing.T) {
	loop := New(nil)
	loop.Start()
	defer loop.Stop()

	count := 0
	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				loop.Post(func() { count++ })
			}
		}()
	}
	wg.Wait()

	var total int
	loop.Invoke(func() { total = count })
	assert.Equal(t, 2000, total)
}

func TestLoopStopDrainsQueue(t *testing.T) {
	loop := New(nil)
	ran := 0
	for i := 0; i < 10; i++ {
		loop.Post(func() { ran++ })
	}
	loop.Stop()
	assert.False(t, loop.Post(func() { ran++ }), "post after stop is refused")

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, 10, ran)
}

func TestLoopContextCancel(t *testing.T) {
	loop := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on context cancel")
	}
	assert.False(t, loop.Post(func() {}))
}

func TestInvokeReturnsWhenCancelDropsItsTask(t *testing.T) {
	loop := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	gate := make(chan struct{})
	started := make(chan struct{})
	require.True(t, loop.Post(func() {
		close(started)
		<-gate
	}))
	<-started

	result := make(chan bool, 1)
	ran := false
	go func() { result <- loop.Invoke(func() { ran = true }) }()
	require.Eventually(t, func() bool { return loop.Pending() == 1 }, 2*time.Second, time.Millisecond)

	cancel()
	close(gate)

	select {
	case ok := <-result:
		assert.False(t, ok)
		assert.False(t, ran)
	case <-time.After(2 * time.Second):
		t.Fatal("Invoke blocked after its task was dropped")
	}
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestLoopRecoversPanics(t *testing.T) {
	loop := New(nil)
	loop.Start()
	defer loop.Stop()

	loop.Post(func() { panic("boom") })
	ok := false
	require.True(t, loop.Invoke(func() { ok = true }))
	assert.True(t, ok)
}

func TestLoopExecuting(t *testing.T) {
	loop := New(nil)
	loop.Start()
	defer loop.Stop()

	assert.False(t, loop.Executing())
	var inside bool
	loop.Invoke(func() { inside = loop.Executing() })
	assert.True(t, inside)
}

func TestLoopRunTwice(t *testing.T) {
	loop := New(nil)
	loop.Start()
	defer loop.Stop()
	loop.Invoke(func() {})

	assert.ErrorIs(t, loop.Run(context.Background()), ErrAlreadyRunning)
}
