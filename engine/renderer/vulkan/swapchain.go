package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/photon/engine/core"
)

// VulkanSwapchain holds the presentable chain and one view per chain
// image, positionally matched. Negotiation happens once at creation;
// there is no renegotiation path.
type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView
}

// VulkanSwapchainSupportInfo is the surface's negotiation input,
// queried from the physical device.
type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// QuerySwapchainSupport gathers capabilities, formats and present
// modes for the surface.
func QuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	support := &VulkanSwapchainSupportInfo{}

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &support.Capabilities); res != vk.Success {
		return nil, fmt.Errorf("failed to get surface capabilities: %s", VulkanResultString(res))
	}
	support.Capabilities.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return nil, fmt.Errorf("failed to get surface formats: %s", VulkanResultString(res))
	}
	if formatCount == 0 {
		return nil, fmt.Errorf("surface reports no formats")
	}
	support.Formats = make([]vk.SurfaceFormat, formatCount)
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, support.Formats); res != vk.Success {
		return nil, fmt.Errorf("failed to get surface formats: %s", VulkanResultString(res))
	}
	for i := range support.Formats {
		support.Formats[i].Deref()
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return nil, fmt.Errorf("failed to get surface present modes: %s", VulkanResultString(res))
	}
	if presentModeCount == 0 {
		return nil, fmt.Errorf("surface reports no present modes")
	}
	support.PresentModes = make([]vk.PresentMode, presentModeCount)
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, support.PresentModes); res != vk.Success {
		return nil, fmt.Errorf("failed to get surface present modes: %s", VulkanResultString(res))
	}

	return support, nil
}

// selectSurfaceFormat prefers 8-bit BGRA sRGB with the sRGB-nonlinear
// color space, else the first format the surface reports.
func selectSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// selectPresentMode prefers mailbox, which drops frames instead of
// tearing under backpressure, else FIFO which is always supported.
func selectPresentMode(presentModes []vk.PresentMode) vk.PresentMode {
	for _, mode := range presentModes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// selectImageCount asks for one image more than the minimum. A maximum
// of 0 means unlimited, and a maximum below the request is treated as
// the request itself.
func selectImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	max := capabilities.MaxImageCount
	if max < capabilities.MinImageCount+1 {
		max = capabilities.MinImageCount + 1
	}
	if count > max {
		count = max
	}
	return count
}

// selectExtent uses the surface-reported extent verbatim unless the
// surface leaves it undefined (all-bits-set width), in which case the
// requested size is clamped into the surface's allowed range.
func selectExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  MathClamp(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: MathClamp(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// SwapchainCreate negotiates format, present mode, image count and
// extent against the surface, creates the chain and one full-color 2D
// view per chain image.
func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	device := context.Device

	support, err := QuerySwapchainSupport(device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	swapchain := &VulkanSwapchain{
		ImageFormat: selectSurfaceFormat(support.Formats),
		Extent:      selectExtent(support.Capabilities, width, height),
	}
	presentMode := selectPresentMode(support.PresentModes)
	imageCount := selectImageCount(support.Capabilities)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	// Graphics and present from different families share the images
	// concurrently; a single family keeps exclusive ownership.
	if device.QueueFamilies.Graphics != device.QueueFamilies.Present {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(device.QueueFamilies.Graphics),
			uint32(device.QueueFamilies.Present),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create swapchain: %s", VulkanResultString(res))
	}
	swapchain.Handle = handle

	if res := vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		return nil, fmt.Errorf("failed to get swapchain images: %s", VulkanResultString(res))
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		return nil, fmt.Errorf("failed to get swapchain images: %s", VulkanResultString(res))
	}

	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	for i := 0; i < int(swapchain.ImageCount); i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		if res := vk.CreateImageView(device.LogicalDevice, &viewInfo, context.Allocator, &swapchain.Views[i]); res != vk.Success {
			swapchain.Destroy(context)
			return nil, fmt.Errorf("failed to create swapchain image view: %s", VulkanResultString(res))
		}
	}

	core.LogInfo("swapchain created with %d images at %dx%d", swapchain.ImageCount, swapchain.Extent.Width, swapchain.Extent.Height)

	return swapchain, nil
}

// Destroy releases the views before the chain. The images belong to
// the chain and go with it.
func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	device := context.Device
	for _, view := range vs.Views {
		if view != vk.NullImageView {
			vk.DestroyImageView(device.LogicalDevice, view, context.Allocator)
		}
	}
	vs.Views = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}
