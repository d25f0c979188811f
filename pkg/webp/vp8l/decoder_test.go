package vp8l

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// levelZeroPreamble writes an empty transform list, no color cache and no
// meta-Huffman image.
func levelZeroPreamble(w *bitWriter) {
	w.writeBits(0, 1) // no transforms
	w.writeBits(0, 1) // no color cache
	w.writeBits(0, 1) // no meta-Huffman image
}

func decodeRGBA(t *testing.T, data []byte) *OutputBuffer {
	t.Helper()
	d := NewDecoder()
	require.NoError(t, d.DecodeHeader(data))
	out := &OutputBuffer{Colorspace: ModeRGBA}
	require.NoError(t, d.Decode(out))
	return out
}

func TestGetInfo(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 100, 200, true)

	h, err := GetInfo(w.bytes())
	require.NoError(t, err)
	require.Equal(t, 100, h.Width)
	require.Equal(t, 200, h.Height)
	require.True(t, h.HasAlpha)
}

func TestGetInfoErrors(t *testing.T) {
	_, err := GetInfo([]byte{0x2f, 0x00})
	require.ErrorIs(t, err, ErrNotEnoughData)

	w := &bitWriter{}
	writeStreamHeader(w, 1, 1, false)
	bad := w.bytes()
	bad[0] = 0x2e
	_, err = GetInfo(bad)
	require.ErrorIs(t, err, ErrBitstream)
}

func TestGetInfoBadVersion(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(magicByte, 8)
	w.writeBits(0, imageSizeBits)
	w.writeBits(0, imageSizeBits)
	w.writeBits(0, 1)
	w.writeBits(1, versionBits) // only version 0 exists

	_, err := GetInfo(w.bytes())
	require.ErrorIs(t, err, ErrBitstream)
}

// A stream whose five trees are all single-symbol decodes every pixel to the
// same value without consuming any data bits.
func TestDecodeUniformImage(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 2, 2, false)
	levelZeroPreamble(w)
	writeSingleSymbolGroup(w, 0x42, 0x01, 0x02, 0xff, 0)

	out := decodeRGBA(t, w.bytes())
	require.Equal(t, 2, out.Width)
	require.Equal(t, 2, out.Height)
	want := []uint8{0x01, 0x42, 0x02, 0xff}
	for i := 0; i < 4; i++ {
		require.Equal(t, want, out.Pixels[4*i:4*i+4], "pixel %d", i)
	}
}

// Four literal symbols with 2-bit codes, built through the code-length-coded
// tree form.
func TestDecodeMultiSymbolTree(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 2, 2, false)
	levelZeroPreamble(w)

	// Green: symbols 0..3, all with 2-bit codes.
	w.writeBits(0, 1) // code-length-coded
	w.writeBits(1, 4) // five code length codes: 17, 18, 0, 1, 2
	w.writeBits(0, 3)
	w.writeBits(0, 3)
	w.writeBits(0, 3)
	w.writeBits(0, 3)
	w.writeBits(1, 3) // only code 2 is present, so it costs zero bits
	w.writeBits(1, 1) // bound the number of length codes
	w.writeBits(0, 3) // the bound field is 2 bits wide
	w.writeBits(2, 2) // read exactly 4 length codes

	writeSingleSymbolTree(w, 5)    // red
	writeSingleSymbolTree(w, 6)    // blue
	writeSingleSymbolTree(w, 0xff) // alpha
	writeSingleSymbolTree(w, 0)    // distance

	// Canonical 2-bit codes assign bit-reversed keys 00,10,01,11 to the
	// symbols in order.
	w.writeBits(0, 2) // green 0
	w.writeBits(2, 2) // green 1
	w.writeBits(1, 2) // green 2
	w.writeBits(3, 2) // green 3

	out := decodeRGBA(t, w.bytes())
	for i, green := range []uint8{0, 1, 2, 3} {
		want := []uint8{5, green, 6, 0xff}
		require.Equal(t, want, out.Pixels[4*i:4*i+4], "pixel %d", i)
	}
}

// A length-prefix symbol (256) copies pixels from one pixel back.
func TestDecodeBackwardReference(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 4, 1, false)
	levelZeroPreamble(w)

	writeTwoSymbolTreeLong(w, 16, 256) // literal green 16, length prefix 0
	writeSingleSymbolTree(w, 0x01)     // red
	writeSingleSymbolTree(w, 0x02)     // blue
	writeSingleSymbolTree(w, 0xff)     // alpha
	writeSingleSymbolTree(w, 1)        // distance symbol 1: one pixel back

	w.writeBits(0, 1) // literal
	w.writeBits(1, 1) // copy 1 pixel
	w.writeBits(0, 1) // literal
	w.writeBits(1, 1) // copy 1 pixel

	out := decodeRGBA(t, w.bytes())
	want := []uint8{0x01, 16, 0x02, 0xff}
	for i := 0; i < 4; i++ {
		require.Equal(t, want, out.Pixels[4*i:4*i+4], "pixel %d", i)
	}
}

// A color cache hit replays a previously decoded pixel; pixels are inserted
// into the cache lazily, right before the first lookup.
func TestDecodeColorCache(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 2, 2, false)
	w.writeBits(0, 1) // no transforms
	w.writeBits(1, 1) // color cache present
	w.writeBits(1, 4) // 1 hash bit
	w.writeBits(0, 1) // no meta-Huffman image

	writeTwoSymbolTreeLong(w, 0x30, 280) // literal green 0x30, cache code 0
	writeSingleSymbolTree(w, 0x01)       // red
	writeSingleSymbolTree(w, 0x02)       // blue
	writeSingleSymbolTree(w, 0xff)       // alpha
	writeSingleSymbolTree(w, 0)          // distance

	// 0xff013002 hashes to cache slot 0 with a 1-bit cache.
	w.writeBits(0, 1) // literal
	w.writeBits(1, 1) // cache slot 0
	w.writeBits(0, 1) // literal
	w.writeBits(1, 1) // cache slot 0

	out := decodeRGBA(t, w.bytes())
	want := []uint8{0x01, 0x30, 0x02, 0xff}
	for i := 0; i < 4; i++ {
		require.Equal(t, want, out.Pixels[4*i:4*i+4], "pixel %d", i)
	}
}

func TestDecodeSubtractGreen(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 2, 2, false)
	w.writeBits(1, 1) // transform present
	w.writeBits(uint32(subtractGreenTransform), 2)
	w.writeBits(0, 1) // no more transforms
	w.writeBits(0, 1) // no color cache
	w.writeBits(0, 1) // no meta-Huffman image
	writeSingleSymbolGroup(w, 0x10, 0x20, 0x30, 0xff, 0)

	out := decodeRGBA(t, w.bytes())
	// red and blue get the green value added back
	want := []uint8{0x30, 0x10, 0x40, 0xff}
	for i := 0; i < 4; i++ {
		require.Equal(t, want, out.Pixels[4*i:4*i+4], "pixel %d", i)
	}
}

func TestDecodePredictor(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 2, 2, false)
	w.writeBits(1, 1) // transform present
	w.writeBits(uint32(predictorTransform), 2)
	w.writeBits(0, 3) // tile bits = 2, one 4x4 tile covers the image

	// Predictor sub-image, 1x1: mode 1 (left) in the green channel.
	w.writeBits(0, 1) // no color cache
	writeSingleSymbolGroup(w, 1, 0, 0, 0, 0)

	w.writeBits(0, 1) // no more transforms
	w.writeBits(0, 1) // no color cache
	w.writeBits(0, 1) // no meta-Huffman image
	// Every residual is (a=0, r=1, g=1, b=1).
	writeSingleSymbolGroup(w, 1, 1, 1, 0, 0)

	out := decodeRGBA(t, w.bytes())
	// (0,0) starts from opaque black, then left/top accumulate.
	want := [][]uint8{
		{1, 1, 1, 0xff},
		{2, 2, 2, 0xff},
		{2, 2, 2, 0xff},
		{3, 3, 3, 0xff},
	}
	for i, px := range want {
		require.Equal(t, px, out.Pixels[4*i:4*i+4], "pixel %d", i)
	}
}

func TestDecodeColorIndexing(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 4, 1, false)
	w.writeBits(1, 1) // transform present
	w.writeBits(uint32(colorIndexingTransform), 2)
	w.writeBits(1, 8) // two palette entries

	// Palette sub-image, 2x1: red, then blue delta-coded against red.
	w.writeBits(0, 1)                    // no color cache
	writeSingleSymbolTree(w, 0)          // green: both entries have 0
	writeTwoSymbolTree(w, 0x01, 0xff)    // red channel values
	writeTwoSymbolTree(w, 0x00, 0xff)    // blue channel values
	writeTwoSymbolTree(w, 0x00, 0xff)    // alpha channel values
	writeSingleSymbolTree(w, 0)          // distance
	w.writeBits(1, 1)                    // entry 0: red 0xff
	w.writeBits(0, 1)                    //          blue 0x00
	w.writeBits(1, 1)                    //          alpha 0xff
	w.writeBits(0, 1)                    // entry 1 delta: red 0x01
	w.writeBits(1, 1)                    //               blue 0xff
	w.writeBits(0, 1)                    //               alpha 0x00

	w.writeBits(0, 1) // no more transforms
	w.writeBits(0, 1) // no color cache
	w.writeBits(0, 1) // no meta-Huffman image
	// One packed pixel: indices 1,0,1,0 from the low bits up.
	writeSingleSymbolGroup(w, 0x05, 0, 0, 0, 0)

	out := decodeRGBA(t, w.bytes())
	blue := []uint8{0x00, 0x00, 0xff, 0xff}
	red := []uint8{0xff, 0x00, 0x00, 0xff}
	require.Equal(t, blue, out.Pixels[0:4])
	require.Equal(t, red, out.Pixels[4:8])
	require.Equal(t, blue, out.Pixels[8:12])
	require.Equal(t, red, out.Pixels[12:16])
}

func TestDecodeHeaderErrors(t *testing.T) {
	t.Run("cache bits out of range", func(t *testing.T) {
		w := &bitWriter{}
		writeStreamHeader(w, 2, 2, false)
		w.writeBits(0, 1)  // no transforms
		w.writeBits(1, 1)  // color cache present
		w.writeBits(15, 4) // above the maximum of 11

		d := NewDecoder()
		require.ErrorIs(t, d.DecodeHeader(w.bytes()), ErrBitstream)
	})

	t.Run("duplicate transform", func(t *testing.T) {
		w := &bitWriter{}
		writeStreamHeader(w, 2, 2, false)
		w.writeBits(1, 1)
		w.writeBits(uint32(subtractGreenTransform), 2)
		w.writeBits(1, 1)
		w.writeBits(uint32(subtractGreenTransform), 2)

		d := NewDecoder()
		require.ErrorIs(t, d.DecodeHeader(w.bytes()), ErrBitstream)
	})

	t.Run("truncated tree data", func(t *testing.T) {
		w := &bitWriter{}
		writeStreamHeader(w, 4, 1, false)
		levelZeroPreamble(w)
		writeTwoSymbolTreeLong(w, 16, 256)
		data := w.bytes()

		d := NewDecoder()
		require.ErrorIs(t, d.DecodeHeader(data[:7]), ErrBitstream)
	})

	t.Run("decode before header", func(t *testing.T) {
		d := NewDecoder()
		out := &OutputBuffer{Colorspace: ModeRGBA}
		require.ErrorIs(t, d.Decode(out), ErrInvalidParam)
	})
}

func TestDecodeTruncatedData(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 16, 16, false)
	levelZeroPreamble(w)
	writeTwoSymbolTree(w, 0x10, 0x20)
	writeSingleSymbolTree(w, 0x01)
	writeSingleSymbolTree(w, 0x02)
	writeSingleSymbolTree(w, 0xff)
	writeSingleSymbolTree(w, 0)
	for i := 0; i < 256; i++ {
		w.writeBits(uint32(i&1), 1)
	}
	full := w.bytes()

	// A non-incremental decoder treats missing data as corruption.
	d := NewDecoder()
	require.NoError(t, d.DecodeHeader(full[:len(full)-8]))
	out := &OutputBuffer{Colorspace: ModeRGBA}
	require.ErrorIs(t, d.Decode(out), ErrBitstream)
}

func TestDecodeSuspendResume(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 16, 16, false)
	levelZeroPreamble(w)
	writeTwoSymbolTree(w, 0x10, 0x20)
	writeSingleSymbolTree(w, 0x01)
	writeSingleSymbolTree(w, 0x02)
	writeSingleSymbolTree(w, 0xff)
	writeSingleSymbolTree(w, 0)
	for i := 0; i < 256; i++ {
		w.writeBits(uint32(i&1), 1)
	}
	full := w.bytes()

	d := NewIncrementalDecoder()
	require.NoError(t, d.DecodeHeader(full[:len(full)-8]))

	out := &OutputBuffer{Colorspace: ModeRGBA}
	require.ErrorIs(t, d.Decode(out), ErrSuspended)
	require.ErrorIs(t, d.Status(), ErrSuspended)

	require.NoError(t, d.ExtendInput(full))
	require.NoError(t, d.Decode(out))

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			green := uint8(0x10)
			if (16*y+x)&1 == 1 {
				green = 0x20
			}
			px := out.Pixels[y*out.Stride+4*x:]
			require.Equal(t, []uint8{0x01, green, 0x02, 0xff}, px[:4], "pixel (%d,%d)", x, y)
		}
	}
}

func TestDecodeCropped(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 2, 2, false)
	levelZeroPreamble(w)

	w.writeBits(0, 1)
	w.writeBits(1, 4)
	w.writeBits(0, 3)
	w.writeBits(0, 3)
	w.writeBits(0, 3)
	w.writeBits(0, 3)
	w.writeBits(1, 3)
	w.writeBits(1, 1)
	w.writeBits(0, 3)
	w.writeBits(2, 2)
	writeSingleSymbolTree(w, 5)
	writeSingleSymbolTree(w, 6)
	writeSingleSymbolTree(w, 0xff)
	writeSingleSymbolTree(w, 0)
	w.writeBits(0, 2)
	w.writeBits(2, 2)
	w.writeBits(1, 2)
	w.writeBits(3, 2)

	d := NewDecoder()
	require.NoError(t, d.DecodeHeader(w.bytes()))
	out := &OutputBuffer{
		Colorspace:  ModeRGBA,
		UseCropping: true,
		CropLeft:    1,
		CropTop:     1,
		CropWidth:   1,
		CropHeight:  1,
	}
	require.NoError(t, d.Decode(out))
	require.Equal(t, 1, out.Width)
	require.Equal(t, 1, out.Height)
	require.Equal(t, []uint8{5, 3, 6, 0xff}, out.Pixels[:4])
}

func TestDecodeScaled(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 2, 2, false)
	levelZeroPreamble(w)
	writeSingleSymbolGroup(w, 0x40, 0x20, 0x60, 0xff, 0)

	d := NewDecoder()
	require.NoError(t, d.DecodeHeader(w.bytes()))
	out := &OutputBuffer{
		Colorspace:   ModeRGBA,
		UseScaling:   true,
		ScaledWidth:  1,
		ScaledHeight: 1,
	}
	require.NoError(t, d.Decode(out))
	require.Equal(t, 1, out.Width)
	require.Equal(t, 1, out.Height)
	// A uniform opaque image survives scaling exactly.
	require.Equal(t, []uint8{0x20, 0x40, 0x60, 0xff}, out.Pixels[:4])
}

func TestDecodeScaledUp(t *testing.T) {
	// Vertical expansion from a single source row: the accumulator stays at
	// zero between exports, so the export loop must stop on the output row
	// count alone.
	w := &bitWriter{}
	writeStreamHeader(w, 2, 1, false)
	levelZeroPreamble(w)
	writeTwoSymbolTree(w, 0x11, 0x22) // green
	writeSingleSymbolTree(w, 0x33)    // red
	writeSingleSymbolTree(w, 0x44)    // blue
	writeSingleSymbolTree(w, 0xff)    // alpha
	writeSingleSymbolTree(w, 0)       // distance
	w.writeBits(0, 1)
	w.writeBits(1, 1)

	d := NewDecoder()
	require.NoError(t, d.DecodeHeader(w.bytes()))
	out := &OutputBuffer{
		Colorspace:   ModeRGBA,
		UseScaling:   true,
		ScaledWidth:  2,
		ScaledHeight: 2,
	}
	require.NoError(t, d.Decode(out))
	require.Equal(t, 2, out.Width)
	require.Equal(t, 2, out.Height)
	// Both output rows replicate the source row.
	want := []uint8{0x33, 0x11, 0x44, 0xff, 0x33, 0x22, 0x44, 0xff}
	require.Equal(t, want, out.Pixels[:8], "row 0")
	require.Equal(t, want, out.Pixels[out.Stride:out.Stride+8], "row 1")
}

// A meta-Huffman image switches htree groups per 4x4 tile.
func TestDecodeMetaHuffman(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 8, 2, false)
	w.writeBits(0, 1) // no transforms
	w.writeBits(0, 1) // no color cache
	w.writeBits(1, 1) // meta-Huffman image present
	w.writeBits(0, 3) // subsample bits = 2, tiles are 4 pixels wide

	// Meta sub-image, 2x1: tile 0 selects group 0, tile 1 selects group 1.
	w.writeBits(0, 1) // no color cache
	writeTwoSymbolTree(w, 0, 1)
	writeSingleSymbolTree(w, 0)
	writeSingleSymbolTree(w, 0)
	writeSingleSymbolTree(w, 0)
	writeSingleSymbolTree(w, 0)
	w.writeBits(0, 1) // tile 0: group 0
	w.writeBits(1, 1) // tile 1: group 1

	writeSingleSymbolGroup(w, 0x11, 0x01, 0x02, 0xff, 0)
	writeSingleSymbolGroup(w, 0x22, 0x03, 0x04, 0xff, 0)

	out := decodeRGBA(t, w.bytes())
	left := []uint8{0x01, 0x11, 0x02, 0xff}
	right := []uint8{0x03, 0x22, 0x04, 0xff}
	for y := 0; y < 2; y++ {
		for x := 0; x < 8; x++ {
			want := left
			if x >= 4 {
				want = right
			}
			px := out.Pixels[y*out.Stride+4*x:]
			require.Equal(t, want, px[:4], "pixel (%d,%d)", x, y)
		}
	}
}

// A meta image may reference more groups than the image has pixels; the used
// indices then get remapped to a dense range and the unused trees are parsed
// but discarded.
func TestDecodeMetaHuffmanSparseGroups(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 4, 2, false)
	w.writeBits(0, 1) // no transforms
	w.writeBits(0, 1) // no color cache
	w.writeBits(1, 1) // meta-Huffman image present
	w.writeBits(1, 3) // subsample bits = 3, a single tile covers the image

	// Meta sub-image, 1x1: the only tile selects group 9 out of 10.
	w.writeBits(0, 1) // no color cache
	writeSingleSymbolGroup(w, 9, 0, 0, 0, 0)

	// Groups 0..8 are never referenced; their trees are validated only.
	for i := 0; i < 9; i++ {
		writeSingleSymbolGroup(w, 0, 0, 0, 0, 0)
	}
	writeSingleSymbolGroup(w, 0x77, 0x05, 0x06, 0xff, 0)

	out := decodeRGBA(t, w.bytes())
	want := []uint8{0x05, 0x77, 0x06, 0xff}
	for i := 0; i < 8; i++ {
		require.Equal(t, want, out.Pixels[4*i:4*i+4], "pixel %d", i)
	}
}

func TestDecodeYUVA(t *testing.T) {
	w := &bitWriter{}
	writeStreamHeader(w, 2, 2, true)
	levelZeroPreamble(w)
	writeSingleSymbolGroup(w, 0xff, 0xff, 0xff, 0xff, 0)

	d := NewDecoder()
	require.NoError(t, d.DecodeHeader(w.bytes()))
	out := &OutputBuffer{Colorspace: ModeYUVA}
	require.NoError(t, d.Decode(out))

	for i := 0; i < 4; i++ {
		require.Equal(t, uint8(235), out.Y[i], "Y[%d]", i) // video-range white
		require.Equal(t, uint8(0xff), out.A[i], "A[%d]", i)
	}
	require.Equal(t, uint8(128), out.U[0])
	require.Equal(t, uint8(128), out.V[0])
}

func TestDecodeOtherColorspaces(t *testing.T) {
	build := func() []byte {
		w := &bitWriter{}
		writeStreamHeader(w, 1, 1, false)
		levelZeroPreamble(w)
		writeSingleSymbolGroup(w, 0x20, 0x40, 0x10, 0x80, 0)
		return w.bytes()
	}

	cases := []struct {
		mode Colorspace
		want []uint8
	}{
		{ModeRGBA, []uint8{0x40, 0x20, 0x10, 0x80}},
		{ModeBGRA, []uint8{0x10, 0x20, 0x40, 0x80}},
		{ModeARGB, []uint8{0x80, 0x40, 0x20, 0x10}},
		{ModeRGB, []uint8{0x40, 0x20, 0x10}},
		{ModeBGR, []uint8{0x10, 0x20, 0x40}},
	}
	for _, tc := range cases {
		d := NewDecoder()
		require.NoError(t, d.DecodeHeader(build()))
		out := &OutputBuffer{Colorspace: tc.mode}
		require.NoError(t, d.Decode(out))
		require.Equal(t, tc.want, out.Pixels[:len(tc.want)], "mode %d", tc.mode)
	}
}
