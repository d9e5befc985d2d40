package vulkan

import (
	vk "github.com/goki/vulkan"
)

func fullColorSubresourceRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

// TransitionImageToGeneral moves an image from undefined to the
// general layout with a one-shot submission. Both access masks are
// empty: this is an initialization transition, not a data-hazard
// barrier, and it runs once before the image is ever written. Blocks
// until the queue is idle.
func TransitionImageToGeneral(context *VulkanContext, image vk.Image) error {
	device := context.Device

	commandBuffer, err := AllocateAndBeginSingleUse(context, device.GraphicsCommandPool)
	if err != nil {
		return err
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       0,
		DstAccessMask:       0,
		OldLayout:           vk.ImageLayoutUndefined,
		NewLayout:           vk.ImageLayoutGeneral,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange:    fullColorSubresourceRange(),
	}

	vk.CmdPipelineBarrier(commandBuffer.Handle,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})

	return commandBuffer.EndSingleUse(context, device.GraphicsCommandPool, device.GraphicsQueue)
}

// CopyImageToHost copies the render target into the host readback
// image with a one-shot submission: the destination transitions from
// undefined to transfer-dst-optimal, receives a full-image copy, then
// transitions back to general with a memory-read destination access so
// the subsequent host map observes ordered data. The source must
// already be in the general layout; this routine does not transition
// it. Blocks until the queue is idle.
func CopyImageToHost(context *VulkanContext, srcImage, dstImage vk.Image, width, height uint32) error {
	device := context.Device

	commandBuffer, err := AllocateAndBeginSingleUse(context, device.GraphicsCommandPool)
	if err != nil {
		return err
	}

	toTransferDst := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       0,
		DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		OldLayout:           vk.ImageLayoutUndefined,
		NewLayout:           vk.ImageLayoutTransferDstOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               dstImage,
		SubresourceRange:    fullColorSubresourceRange(),
	}
	vk.CmdPipelineBarrier(commandBuffer.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toTransferDst})

	copyRegion := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
	}
	vk.CmdCopyImage(commandBuffer.Handle,
		srcImage, vk.ImageLayoutGeneral,
		dstImage, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageCopy{copyRegion})

	toGeneral := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessMemoryReadBit),
		OldLayout:           vk.ImageLayoutTransferDstOptimal,
		NewLayout:           vk.ImageLayoutGeneral,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               dstImage,
		SubresourceRange:    fullColorSubresourceRange(),
	}
	vk.CmdPipelineBarrier(commandBuffer.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toGeneral})

	return commandBuffer.EndSingleUse(context, device.GraphicsCommandPool, device.GraphicsQueue)
}
