package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// RenderTargetImage is the ray-tracing output target: a 2D, single-mip,
// single-layer, device-local image usable simultaneously as color
// attachment, storage image and transfer source/destination.
type RenderTargetImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
}

// HostReadbackImage is a linearly-tiled staging destination whose
// memory the host maps and reads directly. It is never sampled, so it
// carries no view.
type HostReadbackImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	Width  uint32
	Height uint32
}

// RenderTargetImageCreate creates the image, allocates device-local
// memory per its reported requirements, binds it and creates a
// full-color 2D view. Any stage failure rolls the earlier stages back
// so nothing leaks.
func RenderTargetImageCreate(context *VulkanContext, width, height uint32, format vk.Format) (*RenderTargetImage, error) {
	device := context.Device

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit |
			vk.ImageUsageTransferSrcBit |
			vk.ImageUsageTransferDstBit |
			vk.ImageUsageStorageBit),
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Image
	if res := vk.CreateImage(device.LogicalDevice, &imageInfo, context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create render target image: %s", VulkanResultString(res))
	}

	memory, err := allocateAndBindImageMemory(context, handle, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(device.LogicalDevice, handle, context.Allocator)
		return nil, fmt.Errorf("render target: %w", err)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
		vk.DestroyImage(device.LogicalDevice, handle, context.Allocator)
		vk.FreeMemory(device.LogicalDevice, memory, context.Allocator)
		return nil, fmt.Errorf("failed to create render target view: %s", VulkanResultString(res))
	}

	return &RenderTargetImage{
		Handle: handle,
		Memory: memory,
		View:   view,
		Width:  width,
		Height: height,
		Format: format,
	}, nil
}

// Destroy releases view, image and memory in that strict order. The
// caller must have observed device idle.
func (i *RenderTargetImage) Destroy(context *VulkanContext) {
	device := context.Device
	if i.View != vk.NullImageView {
		vk.DestroyImageView(device.LogicalDevice, i.View, context.Allocator)
		i.View = vk.NullImageView
	}
	if i.Handle != vk.NullImage {
		vk.DestroyImage(device.LogicalDevice, i.Handle, context.Allocator)
		i.Handle = vk.NullImage
	}
	if i.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device.LogicalDevice, i.Memory, context.Allocator)
		i.Memory = vk.NullDeviceMemory
	}
}

// HostReadbackImageCreate mirrors the render target but with linear
// tiling, transfer-destination usage only and host-visible,
// host-coherent memory, so a plain map observes the bytes without an
// explicit flush.
func HostReadbackImageCreate(context *VulkanContext, width, height uint32, format vk.Format) (*HostReadbackImage, error) {
	device := context.Device

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingLinear,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		SharingMode:   vk.SharingModeExclusive,
	}

	var handle vk.Image
	if res := vk.CreateImage(device.LogicalDevice, &imageInfo, context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create host readback image: %s", VulkanResultString(res))
	}

	memory, err := allocateAndBindImageMemory(context, handle,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		vk.DestroyImage(device.LogicalDevice, handle, context.Allocator)
		return nil, fmt.Errorf("host readback image: %w", err)
	}

	return &HostReadbackImage{
		Handle: handle,
		Memory: memory,
		Width:  width,
		Height: height,
	}, nil
}

// Destroy releases the image then its memory.
func (i *HostReadbackImage) Destroy(context *VulkanContext) {
	device := context.Device
	if i.Handle != vk.NullImage {
		vk.DestroyImage(device.LogicalDevice, i.Handle, context.Allocator)
		i.Handle = vk.NullImage
	}
	if i.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device.LogicalDevice, i.Memory, context.Allocator)
		i.Memory = vk.NullDeviceMemory
	}
}

func allocateAndBindImageMemory(context *VulkanContext, image vk.Image, memoryProperties vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	device := context.Device

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device.LogicalDevice, image, &memoryRequirements)
	memoryRequirements.Deref()

	memoryIndex, err := FindMemoryIndex(device.Memory, memoryRequirements.MemoryTypeBits, memoryProperties)
	if err != nil {
		return vk.NullDeviceMemory, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: memoryIndex,
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		return vk.NullDeviceMemory, fmt.Errorf("failed to allocate image memory: %s", VulkanResultString(res))
	}
	if res := vk.BindImageMemory(device.LogicalDevice, image, memory, 0); res != vk.Success {
		vk.FreeMemory(device.LogicalDevice, memory, context.Allocator)
		return vk.NullDeviceMemory, fmt.Errorf("failed to bind image memory: %s", VulkanResultString(res))
	}
	return memory, nil
}
