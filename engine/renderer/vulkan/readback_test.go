package vulkan

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// floatPixels packs RGBA32-float rows into a byte buffer with the
// given pitch, rows in GPU order.
func floatPixels(width, height, rowPitch uint32, pixel func(x, y uint32) [4]float32) []byte {
	data := make([]byte, height*rowPitch)
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			p := pixel(x, y)
			base := y*rowPitch + x*readbackBytesPerPixel
			for c := 0; c < 4; c++ {
				binary.LittleEndian.PutUint32(data[base+uint32(c)*4:], math.Float32bits(p[c]))
			}
		}
	}
	return data
}

func TestToneMapChannel(t *testing.T) {
	// Full intensity at one sample clamps to 0.999 and truncates to 255.
	assert.Equal(t, uint8(255), toneMapChannel(1.0, 1.0))
	// Two accumulated full-intensity samples average back to full.
	assert.Equal(t, uint8(255), toneMapChannel(2.0, 0.5))
	assert.Equal(t, uint8(0), toneMapChannel(0.0, 1.0))
	// Negative or NaN input clamps to black instead of wrapping.
	assert.Equal(t, uint8(0), toneMapChannel(-1.0, 1.0))

	// Mid grey: (0.5)^(1/2.2) * 256, truncated.
	want := uint8(256.0 * float32(math.Pow(0.5, readbackGamma)))
	assert.Equal(t, want, toneMapChannel(0.5, 1.0))
}

func TestWriteImagePNGConstantWhite(t *testing.T) {
	const width, height = 4, 4
	// Pitch wider than the row footprint, as a driver may report.
	const rowPitch = width*readbackBytesPerPixel + 32

	data := floatPixels(width, height, rowPitch, func(x, y uint32) [4]float32 {
		return [4]float32{1, 1, 1, 1}
	})

	var buf bytes.Buffer
	require.NoError(t, writeImagePNG(&buf, data, rowPitch, width, height, 1))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, width, img.Bounds().Dx())
	assert.Equal(t, height, img.Bounds().Dy())

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			assert.Equal(t, uint32(0xffff), r, "pixel (%d,%d)", x, y)
			assert.Equal(t, uint32(0xffff), g, "pixel (%d,%d)", x, y)
			assert.Equal(t, uint32(0xffff), b, "pixel (%d,%d)", x, y)
			assert.Equal(t, uint32(0xffff), a, "pixel (%d,%d)", x, y)
		}
	}
}

func TestWriteImagePNGReversesRows(t *testing.T) {
	const width, height = 2, 3
	const rowPitch = width * readbackBytesPerPixel

	// GPU row 0 is black, the top GPU row is white. Row 0 must land at
	// the bottom of the encoded image.
	data := floatPixels(width, height, rowPitch, func(x, y uint32) [4]float32 {
		if y == height-1 {
			return [4]float32{1, 1, 1, 1}
		}
		return [4]float32{0, 0, 0, 1}
	})

	var buf bytes.Buffer
	require.NoError(t, writeImagePNG(&buf, data, rowPitch, width, height, 1))

	img, err := png.Decode(&buf)
	require.NoError(t, err)

	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r, "top output row should be the last GPU row")
	r, _, _, _ = img.At(0, height-1).RGBA()
	assert.Equal(t, uint32(0), r, "bottom output row should be GPU row 0")
}

func TestWriteImagePNGAppliesSampleScale(t *testing.T) {
	const width, height = 1, 1
	const rowPitch = width * readbackBytesPerPixel

	// Four accumulated samples of 2.0 average to 0.5.
	data := floatPixels(width, height, rowPitch, func(x, y uint32) [4]float32 {
		return [4]float32{2, 2, 2, 4}
	})

	var buf bytes.Buffer
	require.NoError(t, writeImagePNG(&buf, data, rowPitch, width, height, 4))

	img, err := png.Decode(&buf)
	require.NoError(t, err)

	want := uint32(256.0*float32(math.Pow(0.5, readbackGamma))) * 0x101
	r, _, _, a := img.At(0, 0).RGBA()
	assert.Equal(t, want, r)
	// Alpha is forced opaque regardless of the accumulated value.
	assert.Equal(t, uint32(0xffff), a)
}

func TestWriteImagePNGRejectsBadGeometry(t *testing.T) {
	data := make([]byte, 10)
	var buf bytes.Buffer

	// Pitch below the row footprint.
	assert.Error(t, writeImagePNG(&buf, data, 16, 4, 4, 1))
	// Buffer too small for the advertised geometry.
	assert.Error(t, writeImagePNG(&buf, data, 64, 4, 4, 1))
	// Zero dimensions.
	assert.Error(t, writeImagePNG(&buf, data, 64, 0, 4, 1))
	assert.Error(t, writeImagePNG(&buf, data, 64, 4, 0, 1))
}
