package vulkan

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRayTracingFeatureChainLinksEveryStruct(t *testing.T) {
	features12, accelerationStructure, rayTracingPipeline := rayTracingFeatureChain()

	// Every link must carry a live pointer; a broken chain silently
	// drops the features behind it.
	require.NotNil(t, features12.PNext)
	assert.Equal(t, unsafe.Pointer(accelerationStructure), features12.PNext)
	require.NotNil(t, accelerationStructure.PNext)
	assert.Equal(t, unsafe.Pointer(rayTracingPipeline), accelerationStructure.PNext)
	assert.Nil(t, rayTracingPipeline.PNext)

	assert.Equal(t, vk.Bool32(vk.True), features12.BufferDeviceAddress)
	assert.Equal(t, vk.Bool32(vk.True), features12.ScalarBlockLayout)
	assert.Equal(t, vk.Bool32(vk.True), accelerationStructure.AccelerationStructure)
	assert.Equal(t, vk.Bool32(vk.True), rayTracingPipeline.RayTracingPipeline)
}

func TestFeatureStructsMatchCLayout(t *testing.T) {
	var rt physicalDeviceRayTracingPipelineFeatures
	assert.Equal(t, uintptr(8), unsafe.Offsetof(rt.PNext))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(rt.RayTracingPipeline))
	assert.Equal(t, uintptr(40), unsafe.Sizeof(rt))

	var as physicalDeviceAccelerationStructureFeatures
	assert.Equal(t, uintptr(8), unsafe.Offsetof(as.PNext))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(as.AccelerationStructure))
	assert.Equal(t, uintptr(40), unsafe.Sizeof(as))

	var bda bufferDeviceAddressInfo
	assert.Equal(t, uintptr(8), unsafe.Offsetof(bda.PNext))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(bda.Buffer))
	assert.Equal(t, uintptr(24), unsafe.Sizeof(bda))
}

func TestQueueFamilyIndicesIsComplete(t *testing.T) {
	tests := []struct {
		name        string
		indices     QueueFamilyIndices
		needCompute bool
		needPresent bool
		want        bool
	}{
		{"all unset", NewQueueFamilyIndices(), false, false, false},
		{"graphics only, nothing else needed", QueueFamilyIndices{Graphics: 0, Compute: -1, Present: -1}, false, false, true},
		{"graphics only, compute needed", QueueFamilyIndices{Graphics: 0, Compute: -1, Present: -1}, true, false, false},
		{"graphics only, present needed", QueueFamilyIndices{Graphics: 0, Compute: -1, Present: -1}, false, true, false},
		{"graphics and compute", QueueFamilyIndices{Graphics: 0, Compute: 1, Present: -1}, true, false, true},
		{"full set", QueueFamilyIndices{Graphics: 0, Compute: 1, Present: 2}, true, true, true},
		{"present without graphics", QueueFamilyIndices{Graphics: -1, Compute: -1, Present: 0}, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.indices.IsComplete(tt.needCompute, tt.needPresent))
		})
	}
}

func TestQueueFamilyIndicesUniqueFamilies(t *testing.T) {
	tests := []struct {
		name    string
		indices QueueFamilyIndices
		want    []uint32
	}{
		{"all equal", QueueFamilyIndices{Graphics: 0, Compute: 0, Present: 0}, []uint32{0}},
		{"all distinct", QueueFamilyIndices{Graphics: 0, Compute: 1, Present: 2}, []uint32{0, 1, 2}},
		{"present shares graphics", QueueFamilyIndices{Graphics: 0, Compute: 1, Present: 0}, []uint32{0, 1}},
		{"compute shares graphics", QueueFamilyIndices{Graphics: 2, Compute: 2, Present: 1}, []uint32{2, 1}},
		{"partially unset", QueueFamilyIndices{Graphics: 3, Compute: -1, Present: 3}, []uint32{3}},
		{"all unset", NewQueueFamilyIndices(), []uint32{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.indices.UniqueFamilies()
			assert.Equal(t, tt.want, got)

			seen := map[uint32]bool{}
			for _, f := range got {
				assert.False(t, seen[f], "duplicate family %d", f)
				seen[f] = true
			}
		})
	}
}
