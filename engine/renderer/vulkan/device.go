package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/photon/engine/core"
)

// RayTracingDeviceExtensionNames are required on every selected device.
// Swapchain support is appended only when a presentation surface
// exists. The pipeline and acceleration structure extensions postdate
// the bindings' generated constants, so their names are spelled out.
var RayTracingDeviceExtensionNames = []string{
	"VK_KHR_ray_tracing_pipeline",
	"VK_KHR_acceleration_structure",
	vk.KhrDeferredHostOperationsExtensionName,
	vk.KhrSpirv14ExtensionName,
	vk.ExtScalarBlockLayoutExtensionName,
}

// The ray-tracing feature structs also postdate the bindings. They are
// laid out here matching their C definitions, so a pointer to one is
// valid in a PNext chain.

// physicalDeviceRayTracingPipelineFeatures mirrors
// VkPhysicalDeviceRayTracingPipelineFeaturesKHR.
type physicalDeviceRayTracingPipelineFeatures struct {
	SType                                                 vk.StructureType
	PNext                                                 unsafe.Pointer
	RayTracingPipeline                                    vk.Bool32
	RayTracingPipelineShaderGroupHandleCaptureReplay      vk.Bool32
	RayTracingPipelineShaderGroupHandleCaptureReplayMixed vk.Bool32
	RayTracingPipelineTraceRaysIndirect                   vk.Bool32
	RayTraversalPrimitiveCulling                          vk.Bool32
}

// physicalDeviceAccelerationStructureFeatures mirrors
// VkPhysicalDeviceAccelerationStructureFeaturesKHR.
type physicalDeviceAccelerationStructureFeatures struct {
	SType                                                 vk.StructureType
	PNext                                                 unsafe.Pointer
	AccelerationStructure                                 vk.Bool32
	AccelerationStructureCaptureReplay                    vk.Bool32
	AccelerationStructureIndirectBuild                    vk.Bool32
	AccelerationStructureHostCommands                     vk.Bool32
	DescriptorBindingAccelerationStructureUpdateAfterBind vk.Bool32
}

// rayTracingFeatureChain builds the mandatory feature chain for device
// creation: ray-tracing pipeline, acceleration structures, and buffer
// device address plus scalar block layout from Vulkan 1.2 core. The
// chained structs are returned so the caller can keep them reachable
// until the create call returns.
func rayTracingFeatureChain() (*vk.PhysicalDeviceVulkan12Features, *physicalDeviceAccelerationStructureFeatures, *physicalDeviceRayTracingPipelineFeatures) {
	rayTracingPipeline := &physicalDeviceRayTracingPipelineFeatures{
		SType:              vk.StructureTypePhysicalDeviceRayTracingPipelineFeatures,
		RayTracingPipeline: vk.True,
	}
	accelerationStructure := &physicalDeviceAccelerationStructureFeatures{
		SType:                 vk.StructureTypePhysicalDeviceAccelerationStructureFeatures,
		PNext:                 unsafe.Pointer(rayTracingPipeline),
		AccelerationStructure: vk.True,
	}
	features12 := &vk.PhysicalDeviceVulkan12Features{
		SType:               vk.StructureTypePhysicalDeviceVulkan12Features,
		PNext:               unsafe.Pointer(accelerationStructure),
		BufferDeviceAddress: vk.True,
		ScalarBlockLayout:   vk.True,
	}
	return features12, accelerationStructure, rayTracingPipeline
}

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	QueueFamilies QueueFamilyIndices

	GraphicsQueue vk.Queue
	ComputeQueue  vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	// Loader-resolved vkGetBufferDeviceAddress, which the bindings do
	// not generate.
	getBufferDeviceAddress unsafe.Pointer
}

// QueueFamilyIndices holds one queue family index per capability, -1
// when not found or not requested.
type QueueFamilyIndices struct {
	Graphics int32
	Compute  int32
	Present  int32
}

func NewQueueFamilyIndices() QueueFamilyIndices {
	return QueueFamilyIndices{Graphics: -1, Compute: -1, Present: -1}
}

// IsComplete reports whether the index set satisfies a requirement
// pair. Graphics is always required.
func (q QueueFamilyIndices) IsComplete(needCompute, needPresent bool) bool {
	hasGraphics := q.Graphics >= 0
	hasCompute := !needCompute || q.Compute >= 0
	hasPresent := !needPresent || q.Present >= 0
	return hasGraphics && hasCompute && hasPresent
}

// UniqueFamilies deduplicates the set indices. Device creation rejects
// duplicate queue-create entries for the same family.
func (q QueueFamilyIndices) UniqueFamilies() []uint32 {
	families := []uint32{}
	for _, idx := range []int32{q.Graphics, q.Compute, q.Present} {
		if idx < 0 {
			continue
		}
		seen := false
		for _, f := range families {
			if f == uint32(idx) {
				seen = true
				break
			}
		}
		if !seen {
			families = append(families, uint32(idx))
		}
	}
	return families
}

// DeviceCreate selects a physical device and builds the logical device
// with the ray-tracing feature set enabled, then fetches queues and
// the graphics command pool.
func DeviceCreate(context *VulkanContext, needCompute bool) error {
	needPresent := context.Surface != vk.NullSurface

	requiredExtensions := RayTracingDeviceExtensionNames
	if needPresent {
		requiredExtensions = append(append([]string{}, requiredExtensions...), vk.KhrSwapchainExtensionName)
	}

	if err := selectPhysicalDevice(context, requiredExtensions, needCompute, needPresent); err != nil {
		return err
	}

	core.LogInfo("creating logical device...")
	device := context.Device

	uniqueFamilies := device.QueueFamilies.UniqueFamilies()
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(uniqueFamilies))
	for i, family := range uniqueFamilies {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	features12, accelerationStructureFeatures, rayTracingPipelineFeatures := rayTracingFeatureChain()

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafe.Pointer(features12),
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(requiredExtensions),
	}

	res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device.LogicalDevice)
	runtime.KeepAlive(features12)
	runtime.KeepAlive(accelerationStructureFeatures)
	runtime.KeepAlive(rayTracingPipelineFeatures)
	if res != vk.Success {
		return fmt.Errorf("failed to create logical device: %s", VulkanResultString(res))
	}
	core.LogInfo("logical device created")

	bdaProcAddr, err := resolveDeviceProcAddr(context, device.LogicalDevice, "vkGetBufferDeviceAddress")
	if err != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
		return err
	}
	device.getBufferDeviceAddress = bdaProcAddr

	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.QueueFamilies.Graphics), 0, &device.GraphicsQueue)
	if device.QueueFamilies.Compute >= 0 {
		vk.GetDeviceQueue(device.LogicalDevice, uint32(device.QueueFamilies.Compute), 0, &device.ComputeQueue)
	}
	if device.QueueFamilies.Present >= 0 {
		vk.GetDeviceQueue(device.LogicalDevice, uint32(device.QueueFamilies.Present), 0, &device.PresentQueue)
	}
	core.LogInfo("queues obtained")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(device.QueueFamilies.Graphics),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &device.GraphicsCommandPool); res != vk.Success {
		return fmt.Errorf("failed to create graphics command pool: %s", VulkanResultString(res))
	}
	core.LogInfo("graphics command pool created")

	return nil
}

// DeviceDestroy tears the device context down. The caller must have
// observed DeviceWaitIdle and destroyed every resource first.
func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}

	device.GraphicsQueue = nil
	device.ComputeQueue = nil
	device.PresentQueue = nil

	if device.GraphicsCommandPool != vk.NullCommandPool {
		core.LogDebug("destroying command pool...")
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
		device.GraphicsCommandPool = vk.NullCommandPool
	}

	if device.LogicalDevice != nil {
		core.LogDebug("destroying logical device...")
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.getBufferDeviceAddress = nil
	device.QueueFamilies = NewQueueFamilyIndices()
}

// selectPhysicalDevice picks the first enumerated device that carries
// every required extension and a complete queue family set. First
// match wins in device and family enumeration order; there is no
// scoring of discrete vs. integrated devices.
func selectPhysicalDevice(context *VulkanContext, requiredExtensions []string, needCompute, needPresent bool) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return fmt.Errorf("failed to enumerate physical devices: %s", VulkanResultString(res))
	}
	if physicalDeviceCount == 0 {
		return fmt.Errorf("no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return fmt.Errorf("failed to enumerate physical devices: %s", VulkanResultString(res))
	}

	for _, physicalDevice := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
		properties.Deref()

		if !deviceSupportsExtensions(physicalDevice, requiredExtensions) {
			core.LogDebug("device '%s' is missing required extensions, skipping",
				string(properties.DeviceName[:FindFirstZeroInByteArray(properties.DeviceName[:])]))
			continue
		}

		indices, err := findQueueFamilies(physicalDevice, context.Surface, needCompute, needPresent)
		if err != nil {
			return err
		}
		if !indices.IsComplete(needCompute, needPresent) {
			continue
		}

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(physicalDevice, &features)
		features.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
		memory.Deref()

		context.Device = &VulkanDevice{
			PhysicalDevice: physicalDevice,
			QueueFamilies:  indices,
			Properties:     properties,
			Features:       features,
			Memory:         memory,
		}

		logSelectedDevice(&properties, &memory, indices)
		return nil
	}

	return fmt.Errorf("no physical device meets the ray-tracing requirements")
}

// findQueueFamilies scans the family list once per capability and
// keeps the first match for each.
func findQueueFamilies(device vk.PhysicalDevice, surface vk.Surface, needCompute, needPresent bool) (QueueFamilyIndices, error) {
	indices := NewQueueFamilyIndices()

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueCount == 0 {
			continue
		}

		if indices.Graphics < 0 && queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics = int32(i)
		}
		if needCompute && indices.Compute < 0 && queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			indices.Compute = int32(i)
		}
		if needPresent && indices.Present < 0 {
			var supportsPresent vk.Bool32
			if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
				return indices, fmt.Errorf("failed to query surface support: %s", VulkanResultString(res))
			}
			if supportsPresent == vk.True {
				indices.Present = int32(i)
			}
		}
	}

	return indices, nil
}

func deviceSupportsExtensions(device vk.PhysicalDevice, required []string) bool {
	var availableExtensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, nil); res != vk.Success {
		return false
	}
	availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, availableExtensions); res != vk.Success {
		return false
	}

	available := make(map[string]struct{}, availableExtensionCount)
	for i := range availableExtensions {
		availableExtensions[i].Deref()
		end := FindFirstZeroInByteArray(availableExtensions[i].ExtensionName[:])
		available[string(availableExtensions[i].ExtensionName[:end])] = struct{}{}
	}

	for _, name := range required {
		if _, ok := available[name]; !ok {
			return false
		}
	}
	return true
}

func logSelectedDevice(properties *vk.PhysicalDeviceProperties, memory *vk.PhysicalDeviceMemoryProperties, indices QueueFamilyIndices) {
	name := string(properties.DeviceName[:FindFirstZeroInByteArray(properties.DeviceName[:])])
	core.LogInfo("selected device: '%s'", name)

	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU")
	default:
		core.LogInfo("GPU type is Unknown")
	}

	core.LogInfo("driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch(),
	)
	core.LogInfo("Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)

	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		memory.MemoryHeaps[j].Deref()
		memorySizeGib := float32(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if memory.MemoryHeaps[j].Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogInfo("local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("shared system memory: %.2f GiB", memorySizeGib)
		}
	}

	core.LogDebug("graphics family index: %d", indices.Graphics)
	core.LogDebug("compute family index:  %d", indices.Compute)
	core.LogDebug("present family index:  %d", indices.Present)
}
