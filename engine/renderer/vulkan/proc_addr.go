package vulkan

/*
#include <stdlib.h>

typedef void (*fnVoid)(void);
typedef fnVoid (*fnGetProcAddr)(void *handle, const char *name);
typedef unsigned long long (*fnGetBufferDeviceAddress)(void *device, const void *info);

static void *resolveProcAddr(void *resolver, void *handle, const char *name) {
	return (void *)((fnGetProcAddr)resolver)(handle, name);
}

static unsigned long long callGetBufferDeviceAddress(void *fn, void *device, const void *info) {
	return ((fnGetBufferDeviceAddress)fn)(device, info);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// bufferDeviceAddressInfo mirrors VkBufferDeviceAddressInfo. Field
// order and sizes match the C struct so a pointer to it can be handed
// to the resolved entry point.
type bufferDeviceAddressInfo struct {
	SType  vk.StructureType
	PNext  unsafe.Pointer
	Buffer vk.Buffer
}

// resolveDeviceProcAddr resolves a device-level entry point the
// bindings do not cover: vkGetDeviceProcAddr comes from the loader's
// vkGetInstanceProcAddr, then the named function is resolved against
// the logical device.
func resolveDeviceProcAddr(context *VulkanContext, device vk.Device, name string) (unsafe.Pointer, error) {
	if context.LoaderProcAddr == nil {
		return nil, fmt.Errorf("Vulkan loader entry point is not set")
	}

	cGetDeviceProcAddr := C.CString("vkGetDeviceProcAddr")
	defer C.free(unsafe.Pointer(cGetDeviceProcAddr))
	getDeviceProcAddr := C.resolveProcAddr(context.LoaderProcAddr, unsafe.Pointer(context.Instance), cGetDeviceProcAddr)
	if getDeviceProcAddr == nil {
		return nil, fmt.Errorf("failed to resolve vkGetDeviceProcAddr")
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	fn := C.resolveProcAddr(getDeviceProcAddr, unsafe.Pointer(device), cName)
	if fn == nil {
		return nil, fmt.Errorf("failed to resolve %s", name)
	}
	return fn, nil
}

// callBufferDeviceAddress invokes a resolved vkGetBufferDeviceAddress
// entry point.
func callBufferDeviceAddress(fn unsafe.Pointer, device vk.Device, info *bufferDeviceAddressInfo) vk.DeviceAddress {
	return vk.DeviceAddress(C.callGetBufferDeviceAddress(fn, unsafe.Pointer(device), unsafe.Pointer(info)))
}
