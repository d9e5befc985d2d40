package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// VulkanContext carries the handles shared by every helper in this
// package. The device handle, queue handles and command pool are
// shared read-only once the bootstrap completes; the context owner is
// responsible for keeping them alive until DeviceWaitIdle has been
// observed and every resource created against them is destroyed.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	// LoaderProcAddr is the loader's vkGetInstanceProcAddr entry point,
	// used to resolve device-level functions the bindings do not cover.
	LoaderProcAddr unsafe.Pointer

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain *VulkanSwapchain
}

// FindMemoryIndex returns the index of the first device memory type
// whose bit is set in typeFilter and whose property flags contain all
// of propertyFlags. Device-declared order is authoritative: lower
// indices are conventionally the faster, more specialized types, so
// the first match wins.
//
// There is no fallback. Binding a resource to an incompatible memory
// type is undefined behavior, so a table with no match is an error,
// never a guess.
func FindMemoryIndex(memory vk.PhysicalDeviceMemoryProperties, typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	memory.Deref()
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memory.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (memory.MemoryTypes[i].PropertyFlags&propertyFlags) == propertyFlags {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no compatible memory type for filter 0x%x with properties 0x%x", typeFilter, propertyFlags)
}
