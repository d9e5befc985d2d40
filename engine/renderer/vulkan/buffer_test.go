package vulkan

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignedSize(t *testing.T) {
	tests := []struct {
		value     uint64
		alignment uint64
		want      uint64
	}{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{255, 256, 256},
		{257, 256, 512},
		{4096, 4096, 4096},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, alignedSize(tt.value, tt.alignment), "alignedSize(%d, %d)", tt.value, tt.alignment)
	}
}

func TestChainDeviceAddressAllocateFlag(t *testing.T) {
	allocateInfo := vk.MemoryAllocateInfo{SType: vk.StructureTypeMemoryAllocateInfo}
	flagsInfo := chainDeviceAddressAllocateFlag(&allocateInfo,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|vk.BufferUsageShaderDeviceAddressBit))

	// The chained pointer must be live, not a nil internal ref.
	require.NotNil(t, flagsInfo)
	require.NotNil(t, allocateInfo.PNext)
	assert.Equal(t, unsafe.Pointer(flagsInfo), allocateInfo.PNext)
	assert.Equal(t, vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit), flagsInfo.Flags)
}

func TestChainDeviceAddressAllocateFlagSkipsPlainUsage(t *testing.T) {
	allocateInfo := vk.MemoryAllocateInfo{SType: vk.StructureTypeMemoryAllocateInfo}
	flagsInfo := chainDeviceAddressAllocateFlag(&allocateInfo,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit))

	assert.Nil(t, flagsInfo)
	assert.Nil(t, allocateInfo.PNext)
}

func TestAlignedSizeIsIdempotent(t *testing.T) {
	for _, alignment := range []uint64{1, 2, 8, 64, 4096} {
		for value := uint64(0); value < 300; value += 7 {
			once := alignedSize(value, alignment)
			assert.Equal(t, once, alignedSize(once, alignment))
			assert.GreaterOrEqual(t, once, value)
			assert.Zero(t, once%alignment)
		}
	}
}
