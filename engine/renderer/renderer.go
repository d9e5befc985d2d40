package renderer

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/photon/engine/config"
	"github.com/spaghettifunk/photon/engine/core"
	"github.com/spaghettifunk/photon/engine/platform"
	"github.com/spaghettifunk/photon/engine/renderer/vulkan"
)

// renderTargetFormat is the accumulation format of the ray-tracing
// pass: one float32 per channel.
const renderTargetFormat = vk.FormatR32g32b32a32Sfloat

// RayTracingRenderer owns the Vulkan context and the render target,
// and drives bootstrap, readback and teardown. The ray-tracing pass
// itself writes into RenderTarget through an external pipeline.
type RayTracingRenderer struct {
	platform *platform.Platform
	config   *config.ApplicationConfig
	context  *vulkan.VulkanContext

	RenderTarget *vulkan.RenderTargetImage

	// SceneBuffer carries the render parameters the ray-tracing
	// pipeline reads through its device address.
	SceneBuffer *vulkan.VulkanBuffer
}

// sceneParameters is the layout the ray-tracing shaders expect,
// std430-compatible.
type sceneParameters struct {
	Width   uint32
	Height  uint32
	Samples uint32
	Padding uint32
}

func New(p *platform.Platform, cfg *config.ApplicationConfig) *RayTracingRenderer {
	return &RayTracingRenderer{
		platform: p,
		config:   cfg,
		context: &vulkan.VulkanContext{
			FramebufferWidth:  cfg.Width,
			FramebufferHeight: cfg.Height,
			Allocator:         nil,
		},
	}
}

// Initialize bootstraps instance, surface (windowed mode), device,
// render target and swapchain, in that order.
func (r *RayTracingRenderer) Initialize(needCompute bool, sink core.DiagnosticSink) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("no Vulkan loader available")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	r.context.LoaderProcAddr = procAddr

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize Vulkan: %s", err)
		return err
	}

	validation := vulkan.NewValidationLayerConfig(r.config.Debug)

	extensions := []string{}
	if !r.config.Headless {
		extensions = append(extensions, "VK_KHR_surface")
		extensions = append(extensions, r.platform.GetRequiredExtensionNames()...)
	}

	if err := vulkan.InstanceCreate(r.context, r.config.Name, extensions, validation, sink); err != nil {
		return err
	}

	if !r.config.Headless {
		core.LogDebug("creating Vulkan surface...")
		surface, err := r.platform.Window.CreateWindowSurface(r.context.Instance, nil)
		if err != nil {
			return fmt.Errorf("failed to create platform surface: %w", err)
		}
		r.context.Surface = vk.SurfaceFromPointer(surface)
	}

	if err := vulkan.DeviceCreate(r.context, needCompute); err != nil {
		return err
	}

	target, err := vulkan.RenderTargetImageCreate(r.context, r.config.Width, r.config.Height, renderTargetFormat)
	if err != nil {
		return err
	}
	r.RenderTarget = target

	// The target starts in the general layout; the ray-tracing pass
	// writes it there and the readback copy reads it there.
	if err := vulkan.TransitionImageToGeneral(r.context, r.RenderTarget.Handle); err != nil {
		return err
	}

	if err := r.createSceneBuffer(); err != nil {
		return err
	}

	if !r.config.Headless {
		swapchain, err := vulkan.SwapchainCreate(r.context, r.config.Width, r.config.Height)
		if err != nil {
			return err
		}
		r.context.Swapchain = swapchain
	}

	return nil
}

func (r *RayTracingRenderer) createSceneBuffer() error {
	params := sceneParameters{
		Width:   r.config.Width,
		Height:  r.config.Height,
		Samples: r.config.Samples,
	}
	var payload bytes.Buffer
	if err := binary.Write(&payload, binary.LittleEndian, params); err != nil {
		return err
	}

	buffer, err := vulkan.BufferCreate(r.context,
		vk.DeviceSize(payload.Len()),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|vk.BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	if err := buffer.Store(r.context, payload.Bytes()); err != nil {
		buffer.Destroy(r.context)
		return err
	}
	r.SceneBuffer = buffer
	core.LogDebug("scene buffer at device address 0x%x", r.SceneBuffer.DeviceAddress(r.context))

	return nil
}

// SaveRenderToPNG copies the render target into a fresh host-visible
// staging image, tone-maps it and encodes it to the configured output
// path. Each step is a synchronous one-shot submission.
func (r *RayTracingRenderer) SaveRenderToPNG() error {
	readback, err := vulkan.HostReadbackImageCreate(r.context, r.RenderTarget.Width, r.RenderTarget.Height, renderTargetFormat)
	if err != nil {
		return err
	}
	defer readback.Destroy(r.context)

	if err := vulkan.CopyImageToHost(r.context, r.RenderTarget.Handle, readback.Handle, readback.Width, readback.Height); err != nil {
		return err
	}

	return vulkan.SaveImageToPNG(r.context, readback, r.config.Samples, r.config.OutputPath)
}

// Shutdown waits for the device to go idle and destroys every owned
// resource in reverse creation order.
func (r *RayTracingRenderer) Shutdown() error {
	device := r.context.Device
	if device != nil && device.LogicalDevice != nil {
		vk.DeviceWaitIdle(device.LogicalDevice)
	}

	if r.context.Swapchain != nil {
		r.context.Swapchain.Destroy(r.context)
		r.context.Swapchain = nil
	}
	if r.SceneBuffer != nil {
		r.SceneBuffer.Destroy(r.context)
		r.SceneBuffer = nil
	}
	if r.RenderTarget != nil {
		r.RenderTarget.Destroy(r.context)
		r.RenderTarget = nil
	}

	vulkan.DeviceDestroy(r.context)

	if r.context.Surface != vk.NullSurface {
		vk.DestroySurface(r.context.Instance, r.context.Surface, r.context.Allocator)
		r.context.Surface = vk.NullSurface
	}

	vulkan.InstanceDestroy(r.context)
	return nil
}
