//go:build unix

package heapx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapAllocator(t *testing.T) {
	var a MmapAllocator

	mem, err := a.Map(10000)
	require.NoError(t, err)
	assert.Len(t, mem, 10000)
	assert.GreaterOrEqual(t, cap(mem), 10000)

	mem[0], mem[9999] = 1, 2
	assert.Equal(t, byte(2), mem[9999])

	require.NoError(t, a.Unmap(mem))
	require.NoError(t, a.Unmap(nil))
}
