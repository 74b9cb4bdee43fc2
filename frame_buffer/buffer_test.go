package frame_buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameBuffer_AppendCopiesFrame(t *testing.T) {
	buf := New()
	frame := []int16{1, 2, 3}

	buf.Append(frame)
	frame[0] = 99

	snap := buf.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, []int16{1, 2, 3}, snap[0])
}

func TestFrameBuffer_DrainEmpties(t *testing.T) {
	buf := New()
	buf.Append([]int16{1})
	buf.Append([]int16{2})

	drained := buf.Drain()

	assert.Len(t, drained, 2)
	assert.Equal(t, 0, buf.Len())
	assert.Empty(t, buf.Drain())
}

func TestFrameBuffer_Clear(t *testing.T) {
	buf := New()
	buf.Append([]int16{1})

	buf.Clear()

	assert.Equal(t, 0, buf.Len())
	assert.Empty(t, buf.Snapshot())
}

func TestFrameBuffer_ConcurrentAppendAndDrain(t *testing.T) {
	buf := New()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			buf.Append([]int16{int16(i)})
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			n := len(buf.Drain())
			mu.Lock()
			total += n
			mu.Unlock()
		}
	}()

	wg.Wait()

	total += len(buf.Drain())
	assert.Equal(t, 1000, total)
}
