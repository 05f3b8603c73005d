package fsclient

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/fsdriver/src/fsdriver/entity"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := newRequestQueue()
	defer q.shutdown()

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.submit(func() (entity.CompilerOutput, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return entity.CompilerOutput{}, nil
			})
			require.NoError(t, err)
		}()
		// Give each submission a moment to land before the next, so the
		// test can assert strict order rather than just at-most-one.
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestQueueAtMostOneInFlight(t *testing.T) {
	q := newRequestQueue()
	defer q.shutdown()

	var concurrent int32
	var maxConcurrent int32
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.submit(func() (entity.CompilerOutput, error) {
				mu.Lock()
				concurrent++
				if concurrent > maxConcurrent {
					maxConcurrent = concurrent
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				concurrent--
				mu.Unlock()
				return entity.CompilerOutput{}, nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxConcurrent)
}

func TestQueueShutdownDrainsQueuedJobsWithError(t *testing.T) {
	q := newRequestQueue()

	block := make(chan struct{})
	go q.submit(func() (entity.CompilerOutput, error) {
		<-block
		return entity.CompilerOutput{}, nil
	})
	// Let the blocking job claim the worker before queuing a second one
	// that will still be waiting when shutdown is called.
	time.Sleep(time.Millisecond)

	queuedDone := make(chan error, 1)
	go func() {
		_, err := q.submit(func() (entity.CompilerOutput, error) {
			return entity.CompilerOutput{}, nil
		})
		queuedDone <- err
	}()
	time.Sleep(time.Millisecond)

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- q.shutdown() }()
	time.Sleep(time.Millisecond)
	close(block)

	queuedErr := <-queuedDone
	assert.Error(t, queuedErr)
	assert.Error(t, <-shutdownDone)
}
