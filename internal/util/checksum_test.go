package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"simple", []byte("hello world")},
		{"binary", []byte{0x00, 0x01, 0x02, 0x03, 0xFF}},
		{"large", make([]byte, 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ComputeChecksum(tt.data), ComputeChecksum(tt.data),
				"checksums should be deterministic")
		})
	}
}

func TestValidateChecksum(t *testing.T) {
	data := AppendInt64(nil, 42)
	data = AppendUint64(data, 7)
	checksum := ComputeChecksum(data)

	assert.True(t, ValidateChecksum(data, checksum))
	assert.False(t, ValidateChecksum(data, checksum+1))

	corrupted := append([]byte{}, data...)
	corrupted[0] ^= 0xFF
	assert.False(t, ValidateChecksum(corrupted, checksum))
}

func TestAppendInt64(t *testing.T) {
	buf := AppendInt64(nil, -1)
	assert.Len(t, buf, 8)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, buf)
}

func TestSequence_Next(t *testing.T) {
	var seq Sequence
	assert.Equal(t, uint64(0), seq.Next())
	assert.Equal(t, uint64(1), seq.Next())
	assert.Equal(t, uint64(2), seq.Peek())
}

func TestSequence_Concurrent(t *testing.T) {
	var seq Sequence
	const goroutines, perGoroutine = 8, 500

	var mu sync.Mutex
	seen := make(map[uint64]bool)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint64, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				local = append(local, seq.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, uint64(goroutines*perGoroutine), seq.Peek())
}
