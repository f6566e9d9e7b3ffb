package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"zero size gets minimum", 0, 1024},
		{"small size gets minimum", 1, 1024},
		{"exactly 1024", 1024, 1024},
		{"just over 1024", 1025, 2048},
		{"odd number", 1500, 2048},
		{"large size", 10000, 10240},
		{"negative size", -1, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetFloat32LengthAndReuse(t *testing.T) {
	buf := GetFloat32(3000)
	require.Len(t, buf, 3000)
	assert.Equal(t, 3072, cap(buf))
	PutFloat32(buf)

	again := GetFloat32(2500)
	assert.Len(t, again, 2500)
	assert.GreaterOrEqual(t, cap(again), 2500)
	PutFloat32(again)

	PutFloat32(nil)
	assert.Empty(t, GetFloat32(-5))
}

func TestGetFloat64IsZeroed(t *testing.T) {
	buf := GetFloat64(100)
	for i := range buf {
		buf[i] = float64(i) + 1
	}
	PutFloat64(buf)

	fresh := GetFloat64(100)
	for _, v := range fresh {
		require.Zero(t, v)
	}
	PutFloat64(fresh)
}

func TestPutIgnoresForeignCapacity(t *testing.T) {
	// A slice that does not fill a whole class must not poison the pool.
	PutFloat32(make([]float32, 10, 1500))
	buf := GetFloat32(1500)
	assert.GreaterOrEqual(t, cap(buf), 1500)
	PutFloat32(buf)
}

func TestPoolConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := range 50 {
				n := 512 + (seed*97+i*31)%4096
				b := GetFloat64(n)
				if len(b) != n {
					t.Errorf("want len %d, got %d", n, len(b))
				}
				b[0] = float64(seed)
				PutFloat64(b)
			}
		}(w)
	}
	wg.Wait()
}
