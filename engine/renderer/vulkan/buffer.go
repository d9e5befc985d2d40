package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// VulkanBuffer owns one buffer object and its dedicated memory block.
// Size is the requested logical size; the block itself may be larger
// because allocation follows the reported memory requirements.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
}

// alignedSize rounds value up to the next multiple of alignment.
// Alignment must be a power of two.
func alignedSize(value, alignment uint64) uint64 {
	return (value + alignment - 1) &^ (alignment - 1)
}

// chainDeviceAddressAllocateFlag chains the device-address allocation
// flag onto the allocation info when the buffer usage requires it.
// Binding a shader-device-address buffer to memory allocated without
// the flag is undefined behavior. The chained struct is returned so the
// caller can keep it reachable until the allocation call returns.
func chainDeviceAddressAllocateFlag(allocateInfo *vk.MemoryAllocateInfo, usage vk.BufferUsageFlags) *vk.MemoryAllocateFlagsInfo {
	if usage&vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit) == 0 {
		return nil
	}
	allocateFlagsInfo := &vk.MemoryAllocateFlagsInfo{
		SType: vk.StructureTypeMemoryAllocateFlagsInfo,
		Flags: vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit),
	}
	allocateInfo.PNext = unsafe.Pointer(allocateFlagsInfo)
	return allocateFlagsInfo
}

// BufferCreate creates a buffer with exclusive sharing, allocates a
// memory block of the requirements-reported size from a compatible
// memory type and binds it at offset zero. Buffers created with
// shader-device-address usage get the device-address allocation flag;
// binding such a buffer without it is undefined behavior.
func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryProperties vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	device := context.Device

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(device.LogicalDevice, &bufferInfo, context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create buffer: %s", VulkanResultString(res))
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.LogicalDevice, handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryIndex, err := FindMemoryIndex(device.Memory, memoryRequirements.MemoryTypeBits, memoryProperties)
	if err != nil {
		vk.DestroyBuffer(device.LogicalDevice, handle, context.Allocator)
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(alignedSize(uint64(memoryRequirements.Size), uint64(memoryRequirements.Alignment))),
		MemoryTypeIndex: memoryIndex,
	}
	allocateFlagsInfo := chainDeviceAddressAllocateFlag(&allocateInfo, usage)

	var memory vk.DeviceMemory
	res := vk.AllocateMemory(device.LogicalDevice, &allocateInfo, context.Allocator, &memory)
	runtime.KeepAlive(allocateFlagsInfo)
	if res != vk.Success {
		vk.DestroyBuffer(device.LogicalDevice, handle, context.Allocator)
		return nil, fmt.Errorf("failed to allocate buffer memory: %s", VulkanResultString(res))
	}

	if res := vk.BindBufferMemory(device.LogicalDevice, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(device.LogicalDevice, memory, context.Allocator)
		vk.DestroyBuffer(device.LogicalDevice, handle, context.Allocator)
		return nil, fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res))
	}

	return &VulkanBuffer{
		Handle: handle,
		Memory: memory,
		Size:   size,
	}, nil
}

// Store uploads a byte payload into the buffer through a scoped
// map/copy/unmap. An oversized payload is a caller bug, not a runtime
// condition, and panics.
func (b *VulkanBuffer) Store(context *VulkanContext, data []byte) error {
	if vk.DeviceSize(len(data)) > b.Size {
		panic(fmt.Sprintf("payload of %d bytes does not fit buffer of %d bytes", len(data), b.Size))
	}

	var mapped unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, 0, vk.DeviceSize(len(data)), 0, &mapped); res != vk.Success {
		return fmt.Errorf("failed to map buffer memory: %s", VulkanResultString(res))
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)

	return nil
}

// DeviceAddress returns the GPU-visible address of the buffer. Only
// valid for buffers created with shader-device-address usage; the
// caller upholds that precondition.
func (b *VulkanBuffer) DeviceAddress(context *VulkanContext) vk.DeviceAddress {
	addressInfo := bufferDeviceAddressInfo{
		SType:  vk.StructureTypeBufferDeviceAddressInfo,
		Buffer: b.Handle,
	}
	return callBufferDeviceAddress(context.Device.getBufferDeviceAddress, context.Device.LogicalDevice, &addressInfo)
}

// Destroy frees the buffer then its memory block. The caller must
// guarantee no in-flight GPU work references the buffer.
func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
}
