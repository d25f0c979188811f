package vp8l

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertFromBGRALayouts(t *testing.T) {
	// a=0x80 r=0x40 g=0x20 b=0x10
	src := []uint32{0x80402010}
	cases := []struct {
		mode Colorspace
		want []uint8
	}{
		{ModeRGBA, []uint8{0x40, 0x20, 0x10, 0x80}},
		{ModeBGRA, []uint8{0x10, 0x20, 0x40, 0x80}},
		{ModeARGB, []uint8{0x80, 0x40, 0x20, 0x10}},
		{ModeRGB, []uint8{0x40, 0x20, 0x10}},
		{ModeBGR, []uint8{0x10, 0x20, 0x40}},
		{ModeRGBA4444, []uint8{0x42, 0x18}},
		{ModeRGB565, []uint8{0x41, 0x02}},
	}
	for _, c := range cases {
		dst := make([]uint8, c.mode.BytesPerPixel())
		convertFromBGRA(src, 1, c.mode, dst)
		require.Equal(t, c.want, dst, "mode %d", c.mode)
	}
}

func TestColorspacePredicates(t *testing.T) {
	require.True(t, IsRGBMode(ModeRGB565))
	require.False(t, IsRGBMode(ModeYUV))
	require.True(t, IsAlphaMode(ModeRGBA))
	require.True(t, IsAlphaMode(ModeBGRAPremul))
	require.False(t, IsAlphaMode(ModeRGB565))
	require.True(t, IsPremultipliedMode(ModeARGBPremul))
	require.False(t, IsPremultipliedMode(ModeARGB))
}

func TestMultARGBRow(t *testing.T) {
	row := []uint32{0xff102030, 0x00ffffff, 0x80808080}
	multARGBRow(row, len(row), false)
	require.Equal(t, uint32(0xff102030), row[0]) // opaque, untouched
	require.Equal(t, uint32(0), row[1])          // fully transparent clears
	require.Equal(t, uint32(0x80404040), row[2])

	// Unmultiplying restores the half-alpha pixel exactly here.
	multARGBRow(row[2:], 1, true)
	require.Equal(t, uint32(0x80808080), row[2])
}

func TestMultARGBRowsStride(t *testing.T) {
	// Two rows, stride 3: the spare pixel between rows is untouched.
	buf := []uint32{0x80808080, 0x80808080, 0xdeadbeef, 0x80404040, 0x80404040, 0xdeadbeef}
	multARGBRows(buf, 3, 2, 2, false)
	require.Equal(t, uint32(0x80404040), buf[0])
	require.Equal(t, uint32(0xdeadbeef), buf[2])
	require.Equal(t, uint32(0x80202020), buf[3])
	require.Equal(t, uint32(0xdeadbeef), buf[5])
}

func TestApplyAlphaMultiply(t *testing.T) {
	rgba := []uint8{0x80, 0x80, 0x80, 0x80, 0x10, 0x20, 0x30, 0xff}
	applyAlphaMultiply(rgba, false, 2, 1, 0)
	require.Equal(t, []uint8{0x40, 0x40, 0x40, 0x80}, rgba[:4])
	require.Equal(t, []uint8{0x10, 0x20, 0x30, 0xff}, rgba[4:]) // opaque untouched

	argb := []uint8{0x80, 0x80, 0x80, 0x80}
	applyAlphaMultiply(argb, true, 1, 1, 0)
	require.Equal(t, []uint8{0x80, 0x40, 0x40, 0x40}, argb)
}

func TestRGBToY(t *testing.T) {
	require.Equal(t, uint8(16), rgbToY(0, 0, 0, yuvHalf))
	require.Equal(t, uint8(235), rgbToY(255, 255, 255, yuvHalf))
}

func TestConvertARGBToY(t *testing.T) {
	argb := []uint32{0xff000000, 0xffffffff}
	y := make([]uint8, 2)
	convertARGBToY(argb, y, 2)
	require.Equal(t, []uint8{16, 235}, y)
}

func TestConvertARGBToUVNeutral(t *testing.T) {
	// Gray has no chroma: U and V sit at 128.
	argb := []uint32{0xff808080, 0xff808080, 0xff808080, 0xff808080}
	u := make([]uint8, 2)
	v := make([]uint8, 2)
	convertARGBToUV(argb, u, v, 4, true)
	require.Equal(t, []uint8{128, 128}, u)
	require.Equal(t, []uint8{128, 128}, v)

	// Averaging a matching odd row keeps the stored values.
	convertARGBToUV(argb, u, v, 4, false)
	require.Equal(t, []uint8{128, 128}, u)
	require.Equal(t, []uint8{128, 128}, v)
}

func TestConvertARGBToUVOddWidth(t *testing.T) {
	argb := []uint32{0xff808080, 0xff808080, 0xff808080}
	u := make([]uint8, 2)
	v := make([]uint8, 2)
	convertARGBToUV(argb, u, v, 3, true)
	require.Equal(t, []uint8{128, 128}, u) // trailing pixel fills the last slot
	require.Equal(t, []uint8{128, 128}, v)
}

func TestExtractChannels(t *testing.T) {
	argb := []uint32{0x80402010, 0xff00aa00}
	a := make([]uint8, 2)
	extractAlpha(argb, a, 2)
	require.Equal(t, []uint8{0x80, 0xff}, a)

	g := make([]uint8, 2)
	extractGreen(argb, g, 2)
	require.Equal(t, []uint8{0x20, 0xaa}, g)
}
