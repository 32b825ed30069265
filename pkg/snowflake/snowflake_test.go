package snowflake

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeRange(t *testing.T) {
	_, err := NewNode(-1)
	assert.ErrorIs(t, err, ErrInvalidNode)
	_, err = NewNode(1024)
	assert.ErrorIs(t, err, ErrInvalidNode)

	_, err = NewNode(1023)
	assert.NoError(t, err)
}

func TestGenerateEncodesTime(t *testing.T) {
	n, err := NewNode(7)
	require.NoError(t, err)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() int64 { return at.UnixMilli() }

	id := n.Generate()

	assert.True(t, id.Time().Equal(at))
	assert.Equal(t, int64(7), (int64(id)>>nodeShift)&nodeMax)
}

func TestGenerateIsMonotonic(t *testing.T) {
	n, err := NewNode(1)
	require.NoError(t, err)

	clock := []int64{epoch + 1000, epoch + 1000, epoch + 900, epoch + 1001}
	i := 0
	n.now = func() int64 {
		v := clock[i]
		if i < len(clock)-1 {
			i++
		}
		return v
	}

	var prev ID
	for range 4 {
		id := n.Generate()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestGenerateConcurrentUnique(t *testing.T) {
	n, err := NewNode(3)
	require.NoError(t, err)

	const workers, each = 8, 500
	var mu sync.Mutex
	seen := make(map[ID]struct{}, workers*each)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				id := n.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*each)
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "12345", ID(12345).String())
}
