package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencer_PreservesPerKeyOrder(t *testing.T) {
	seq := NewSequencer()

	var mu sync.Mutex
	got := map[string][]int{}

	for i := 0; i < 50; i++ {
		for _, key := range []string{"a", "b", "c"} {
			key, i := key, i
			seq.Enqueue(key, func() {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
			})
		}
	}
	seq.Wait()

	for _, key := range []string{"a", "b", "c"} {
		values := got[key]
		assert.Len(t, values, 50)
		for i, v := range values {
			assert.Equal(t, i, v, "key %s ran out of order", key)
		}
	}
}

func TestSequencer_KeysDoNotBlockEachOther(t *testing.T) {
	seq := NewSequencer()

	release := make(chan struct{})
	ran := make(chan string, 1)

	// "slow" holds its queue until released; "fast" must still run.
	seq.Enqueue("slow", func() { <-release })
	seq.Enqueue("fast", func() { ran <- "fast" })

	assert.Equal(t, "fast", <-ran)
	close(release)
	seq.Wait()
}

func TestSequencer_ReusedKeyAfterDrain(t *testing.T) {
	seq := NewSequencer()

	var order []int
	seq.Enqueue("k", func() { order = append(order, 1) })
	seq.Wait()
	seq.Enqueue("k", func() { order = append(order, 2) })
	seq.Wait()

	assert.Equal(t, []int{1, 2}, order)
}
