package vulkan

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/photon/engine/core"
)

// readbackBytesPerPixel is the footprint of one RGBA32-float pixel in
// the staging image.
const readbackBytesPerPixel = 16

const readbackGamma = 1.0 / 2.2

// toneMapChannel converts one accumulated float sample to an 8-bit
// channel: divide by the sample count, apply gamma, clamp to
// [0, 0.999] and truncate after scaling by 256.
func toneMapChannel(value, scale float32) uint8 {
	v := float32(math.Pow(float64(value*scale), readbackGamma))
	if !(v > 0) {
		v = 0
	}
	if v > 0.999 {
		v = 0.999
	}
	return uint8(256.0 * v)
}

// writeImagePNG tone-maps a linearly-tiled RGBA32-float pixel buffer
// and encodes it as an 8-bit RGBA PNG. rowPitch is the byte stride
// between rows as reported by the driver, which may exceed
// width*bytesPerPixel. GPU row 0 is the bottom of the output image, so
// rows are written in reverse order. Alpha is forced to 255.
func writeImagePNG(w io.Writer, data []byte, rowPitch, width, height, samples uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("image dimensions must be non-zero, got %dx%d", width, height)
	}
	if rowPitch < width*readbackBytesPerPixel {
		return fmt.Errorf("row pitch %d is smaller than row footprint %d", rowPitch, width*readbackBytesPerPixel)
	}
	if uint32(len(data)) < (height-1)*rowPitch+width*readbackBytesPerPixel {
		return fmt.Errorf("pixel buffer of %d bytes is too small for %dx%d at pitch %d", len(data), width, height, rowPitch)
	}

	scale := 1.0 / float32(samples)

	img := image.NewNRGBA(image.Rect(0, 0, int(width), int(height)))
	for y := uint32(0); y < height; y++ {
		row := data[y*rowPitch : y*rowPitch+width*readbackBytesPerPixel]
		out := img.Pix[(height-1-y)*uint32(img.Stride):]
		for x := uint32(0); x < width; x++ {
			px := row[x*readbackBytesPerPixel : (x+1)*readbackBytesPerPixel]
			r := math.Float32frombits(binary.LittleEndian.Uint32(px[0:4]))
			g := math.Float32frombits(binary.LittleEndian.Uint32(px[4:8]))
			b := math.Float32frombits(binary.LittleEndian.Uint32(px[8:12]))
			out[x*4+0] = toneMapChannel(r, scale)
			out[x*4+1] = toneMapChannel(g, scale)
			out[x*4+2] = toneMapChannel(b, scale)
			out[x*4+3] = 255
		}
	}

	return png.Encode(w, img)
}

// SaveImageToPNG maps the staging image's whole memory block, walks it
// using the driver-reported subresource layout and writes the
// tone-mapped result to filename. The mapping is released regardless
// of the encoder outcome.
func SaveImageToPNG(context *VulkanContext, img *HostReadbackImage, samples uint32, filename string) error {
	device := context.Device

	subresource := vk.ImageSubresource{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	}
	var layout vk.SubresourceLayout
	vk.GetImageSubresourceLayout(device.LogicalDevice, img.Handle, &subresource, &layout)
	layout.Deref()

	var mapped unsafe.Pointer
	if res := vk.MapMemory(device.LogicalDevice, img.Memory, 0, vk.DeviceSize(vk.WholeSize), 0, &mapped); res != vk.Success {
		return fmt.Errorf("failed to map readback memory: %s", VulkanResultString(res))
	}
	defer vk.UnmapMemory(device.LogicalDevice, img.Memory)

	data := unsafe.Slice((*byte)(mapped), uint64(layout.Offset)+uint64(layout.Size))

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create output file '%s': %w", filename, err)
	}
	defer file.Close()

	if err := writeImagePNG(file, data[layout.Offset:], uint32(layout.RowPitch), img.Width, img.Height, samples); err != nil {
		return fmt.Errorf("failed to encode '%s': %w", filename, err)
	}
	core.LogInfo("wrote %dx%d render to '%s'", img.Width, img.Height, filename)

	return nil
}
