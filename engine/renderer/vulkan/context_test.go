package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryTable(flags ...vk.MemoryPropertyFlagBits) vk.PhysicalDeviceMemoryProperties {
	props := vk.PhysicalDeviceMemoryProperties{
		MemoryTypeCount: uint32(len(flags)),
	}
	for i, f := range flags {
		props.MemoryTypes[i] = vk.MemoryType{PropertyFlags: vk.MemoryPropertyFlags(f)}
	}
	return props
}

func TestFindMemoryIndexPicksLowestMatch(t *testing.T) {
	table := memoryTable(
		vk.MemoryPropertyDeviceLocalBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
	)

	// All type bits set: the first host-visible+coherent type wins.
	idx, err := FindMemoryIndex(table, 0b111, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx)
}

func TestFindMemoryIndexRespectsTypeFilter(t *testing.T) {
	table := memoryTable(
		vk.MemoryPropertyDeviceLocalBit,
		vk.MemoryPropertyDeviceLocalBit,
	)

	// Type 0 has the right flags but its bit is masked out.
	idx, err := FindMemoryIndex(table, 0b10, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx)
}

func TestFindMemoryIndexRequiresFlagSuperset(t *testing.T) {
	table := memoryTable(
		vk.MemoryPropertyHostVisibleBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit|vk.MemoryPropertyHostCachedBit,
	)

	idx, err := FindMemoryIndex(table, 0b11, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx)
}

func TestFindMemoryIndexNoMatchIsAnError(t *testing.T) {
	table := memoryTable(
		vk.MemoryPropertyDeviceLocalBit,
		vk.MemoryPropertyHostVisibleBit,
	)

	_, err := FindMemoryIndex(table, 0b11, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	assert.Error(t, err)

	// Empty filter never matches anything.
	_, err = FindMemoryIndex(table, 0, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	assert.Error(t, err)
}
