package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestSelectSurfaceFormatPrefersBGRASrgb(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	got := selectSurfaceFormat(formats)
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, got.Format)
	assert.Equal(t, vk.ColorSpaceSrgbNonlinear, got.ColorSpace)
}

func TestSelectSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	got := selectSurfaceFormat(formats)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, got.Format)
}

func TestSelectPresentModePrefersMailbox(t *testing.T) {
	modes := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}
	assert.Equal(t, vk.PresentModeMailbox, selectPresentMode(modes))
}

func TestSelectPresentModeFallsBackToFifo(t *testing.T) {
	assert.Equal(t, vk.PresentModeFifo, selectPresentMode([]vk.PresentMode{vk.PresentModeFifo}))
	assert.Equal(t, vk.PresentModeFifo, selectPresentMode([]vk.PresentMode{vk.PresentModeImmediate}))
}

func TestSelectImageCount(t *testing.T) {
	tests := []struct {
		name string
		min  uint32
		max  uint32
		want uint32
	}{
		{"unlimited maximum", 2, 0, 3},
		{"maximum above request", 2, 8, 3},
		{"maximum below request does not cap", 2, 2, 3},
		{"single image surface", 1, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := vk.SurfaceCapabilities{
				MinImageCount: tt.min,
				MaxImageCount: tt.max,
			}
			assert.Equal(t, tt.want, selectImageCount(caps))
		})
	}
}

func TestSelectExtentUsesCurrentWhenDefined(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 1920, Height: 1080},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
	got := selectExtent(caps, 640, 480)
	assert.Equal(t, uint32(1920), got.Width)
	assert.Equal(t, uint32(1080), got.Height)
}

func TestSelectExtentClampsWhenUndefined(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 200, Height: 200},
		MaxImageExtent: vk.Extent2D{Width: 1000, Height: 1000},
	}

	got := selectExtent(caps, 1200, 100)
	assert.Equal(t, uint32(1000), got.Width)
	assert.Equal(t, uint32(200), got.Height)

	got = selectExtent(caps, 640, 480)
	assert.Equal(t, uint32(640), got.Width)
	assert.Equal(t, uint32(480), got.Height)
}
