package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMainThread_ProcessEventsInOrder(t *testing.T) {
	m := NewMainThread()
	var got []int

	for i := 0; i < 3; i++ {
		i := i
		m.AsyncExecuteInMainThread(func() { got = append(got, i) })
	}
	assert.Nil(t, got, "nothing runs before ProcessEvents")

	assert.Equal(t, 3, m.ProcessEvents())
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Equal(t, 0, m.ProcessEvents())
}

func TestMainThread_NestedQueue(t *testing.T) {
	m := NewMainThread()
	ran := 0
	m.AsyncExecuteInMainThread(func() {
		ran++
		m.AsyncExecuteInMainThread(func() { ran++ })
	})

	assert.Equal(t, 2, m.ProcessEvents())
	assert.Equal(t, 2, ran)
}

func TestMainThread_ConcurrentProducers(t *testing.T) {
	m := NewMainThread()
	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				m.AsyncExecuteInMainThread(func() {
					mu.Lock()
					total++
					mu.Unlock()
				})
			}
		}()
	}
	wg.Wait()

	select {
	case <-m.Pending():
	default:
		t.Fatal("expected pending signal")
	}

	assert.Equal(t, 100, m.ProcessEvents())
	assert.Equal(t, 100, total)
}
