package vp8l

// Image transform types, in wire order.
type transformType int

const (
	predictorTransform transformType = iota
	crossColorTransform
	subtractGreenTransform
	colorIndexingTransform
	numTransforms
)

// transform holds one inverse transform together with its sub-resolution
// data image (predictor modes, color multipliers, or the palette).
type transform struct {
	kind  transformType
	bits  int // subsampling bits defining the tile size
	xsize int // transform window dimensions (before the transform!)
	ysize int
	data  []uint32
}

// subSampleSize computes the number of tiles covering size pixels.
func subSampleSize(size, samplingBits int) int {
	return (size + (1 << uint(samplingBits)) - 1) >> uint(samplingBits)
}

//------------------------------------------------------------------------------
// Pixel arithmetic

// addPixels adds the two pixels per channel, modulo 256.
func addPixels(a, b uint32) uint32 {
	alphaAndGreen := (a & 0xff00ff00) + (b & 0xff00ff00)
	redAndBlue := (a & 0x00ff00ff) + (b & 0x00ff00ff)
	return (alphaAndGreen & 0xff00ff00) | (redAndBlue & 0x00ff00ff)
}

func average2(a0, a1 uint32) uint32 {
	return (((a0 ^ a1) & 0xfefefefe) >> 1) + (a0 & a1)
}

func clip255(a int) uint32 {
	if a < 0 {
		return 0
	}
	if a > 255 {
		return 255
	}
	return uint32(a)
}

func addSubtractComponentFull(a, b, c int) uint32 {
	return clip255(a + b - c)
}

func clampedAddSubtractFull(c0, c1, c2 uint32) uint32 {
	a := addSubtractComponentFull(int(c0>>24), int(c1>>24), int(c2>>24))
	r := addSubtractComponentFull(int(c0>>16)&0xff, int(c1>>16)&0xff, int(c2>>16)&0xff)
	g := addSubtractComponentFull(int(c0>>8)&0xff, int(c1>>8)&0xff, int(c2>>8)&0xff)
	b := addSubtractComponentFull(int(c0)&0xff, int(c1)&0xff, int(c2)&0xff)
	return a<<24 | r<<16 | g<<8 | b
}

func addSubtractComponentHalf(a, b int) uint32 {
	return clip255(a + (a-b)/2)
}

func clampedAddSubtractHalf(c0, c1, c2 uint32) uint32 {
	ave := average2(c0, c1)
	a := addSubtractComponentHalf(int(ave>>24), int(c2>>24))
	r := addSubtractComponentHalf(int(ave>>16)&0xff, int(c2>>16)&0xff)
	g := addSubtractComponentHalf(int(ave>>8)&0xff, int(c2>>8)&0xff)
	b := addSubtractComponentHalf(int(ave)&0xff, int(c2)&0xff)
	return a<<24 | r<<16 | g<<8 | b
}

func sub3(a, b, c int) int {
	pb := b - c
	pa := a - c
	if pb < 0 {
		pb = -pb
	}
	if pa < 0 {
		pa = -pa
	}
	return pb - pa
}

// selectPred picks a or b depending on which is closer to the prediction
// a + b - c, per channel.
func selectPred(a, b, c uint32) uint32 {
	paMinusPb := sub3(int(a>>24), int(b>>24), int(c>>24)) +
		sub3(int(a>>16)&0xff, int(b>>16)&0xff, int(c>>16)&0xff) +
		sub3(int(a>>8)&0xff, int(b>>8)&0xff, int(c>>8)&0xff) +
		sub3(int(a)&0xff, int(b)&0xff, int(c)&0xff)
	if paMinusPb <= 0 {
		return a
	}
	return b
}

//------------------------------------------------------------------------------
// Spatial predictors

// A predictor computes the prediction from the left pixel and the slice
// [topLeft, top, topRight] of the previous row.
type predictorFunc func(left uint32, top []uint32) uint32

func predictor0(left uint32, top []uint32) uint32  { return argbBlack }
func predictor1(left uint32, top []uint32) uint32  { return left }
func predictor2(left uint32, top []uint32) uint32  { return top[1] }
func predictor3(left uint32, top []uint32) uint32  { return top[2] }
func predictor4(left uint32, top []uint32) uint32  { return top[0] }
func predictor5(left uint32, top []uint32) uint32  { return average2(average2(left, top[2]), top[1]) }
func predictor6(left uint32, top []uint32) uint32  { return average2(left, top[0]) }
func predictor7(left uint32, top []uint32) uint32  { return average2(left, top[1]) }
func predictor8(left uint32, top []uint32) uint32  { return average2(top[0], top[1]) }
func predictor9(left uint32, top []uint32) uint32  { return average2(top[1], top[2]) }
func predictor10(left uint32, top []uint32) uint32 {
	return average2(average2(left, top[0]), average2(top[1], top[2]))
}
func predictor11(left uint32, top []uint32) uint32 { return selectPred(top[1], left, top[0]) }
func predictor12(left uint32, top []uint32) uint32 {
	return clampedAddSubtractFull(left, top[1], top[0])
}
func predictor13(left uint32, top []uint32) uint32 {
	return clampedAddSubtractHalf(left, top[1], top[0])
}

// Modes 14 and 15 never occur in a valid stream but the 4-bit mode field can
// hold them; they alias modes 0 and 1.
var predictors = [16]predictorFunc{
	predictor0, predictor1, predictor2, predictor3,
	predictor4, predictor5, predictor6, predictor7,
	predictor8, predictor9, predictor10, predictor11,
	predictor12, predictor13, predictor0, predictor1,
}

// predictorInverseTransform undoes the spatial prediction in place over rows
// [yStart, yEnd) of the window starting at buf[off]. buf must provide one
// image row before off (the saved top row) whenever yStart > 0.
func predictorInverseTransform(t *transform, yStart, yEnd int, buf []uint32, off int) {
	width := t.xsize
	y := yStart
	if y == 0 {
		// First row: the first pixel is opaque black, the rest follow the
		// left-prediction mode.
		buf[off] = addPixels(buf[off], argbBlack)
		for x := 1; x < width; x++ {
			buf[off+x] = addPixels(buf[off+x], buf[off+x-1])
		}
		off += width
		y++
	}

	th := uint(t.bits)
	mask := 1<<th - 1
	tilesPerRow := subSampleSize(width, t.bits)
	predModeBase := (y >> th) * tilesPerRow

	for y < yEnd {
		predModeSrc := predModeBase
		// The first pixel of a row follows the top-prediction mode.
		buf[off] = addPixels(buf[off], buf[off-width])
		predFunc := predictors[(t.data[predModeSrc]>>8)&0xf]
		predModeSrc++
		for x := 1; x < width; x++ {
			if x&mask == 0 { // start of tile, pick up the predictor
				predFunc = predictors[(t.data[predModeSrc]>>8)&0xf]
				predModeSrc++
			}
			// At the right edge top[2] wraps onto the first pixel of the
			// current row, which is decoded already.
			pred := predFunc(buf[off+x-1], buf[off+x-width-1:off+x-width+2])
			buf[off+x] = addPixels(buf[off+x], pred)
		}
		off += width
		y++
		if y&mask == 0 { // tiles are squares, same mask vertically
			predModeBase += tilesPerRow
		}
	}
}

//------------------------------------------------------------------------------
// Cross-color transform

type multipliers struct {
	greenToRed  uint8
	greenToBlue uint8
	redToBlue   uint8
}

func colorCodeToMultipliers(colorCode uint32, m *multipliers) {
	m.greenToRed = uint8(colorCode)
	m.greenToBlue = uint8(colorCode >> 8)
	m.redToBlue = uint8(colorCode >> 16)
}

func colorTransformDelta(colorPred int8, color int8) int {
	return int(colorPred) * int(color) >> 5
}

func transformColorInverse(m *multipliers, src []uint32, numPixels int, dst []uint32) {
	for i := 0; i < numPixels; i++ {
		argb := src[i]
		g := int8(argb >> 8)
		newRed := int(argb>>16) & 0xff
		newBlue := int(argb) & 0xff
		newRed += colorTransformDelta(int8(m.greenToRed), g)
		newRed &= 0xff
		newBlue += colorTransformDelta(int8(m.greenToBlue), g)
		newBlue += colorTransformDelta(int8(m.redToBlue), int8(newRed))
		newBlue &= 0xff
		dst[i] = (argb & 0xff00ff00) | uint32(newRed)<<16 | uint32(newBlue)
	}
}

func colorSpaceInverseTransform(t *transform, yStart, yEnd int, src, dst []uint32) {
	width := t.xsize
	tileWidth := 1 << uint(t.bits)
	mask := tileWidth - 1
	safeWidth := width &^ mask
	remainingWidth := width - safeWidth
	tilesPerRow := subSampleSize(width, t.bits)
	predRow := (yStart >> uint(t.bits)) * tilesPerRow

	s, d := 0, 0
	for y := yStart; y < yEnd; {
		pred := predRow
		var m multipliers
		safeEnd := s + safeWidth
		for s < safeEnd {
			colorCodeToMultipliers(t.data[pred], &m)
			pred++
			transformColorInverse(&m, src[s:], tileWidth, dst[d:])
			s += tileWidth
			d += tileWidth
		}
		if remainingWidth > 0 {
			colorCodeToMultipliers(t.data[pred], &m)
			transformColorInverse(&m, src[s:], remainingWidth, dst[d:])
			s += remainingWidth
			d += remainingWidth
		}
		y++
		if y&mask == 0 {
			predRow += tilesPerRow
		}
	}
}

//------------------------------------------------------------------------------
// Subtract-green transform

func addGreenToBlueAndRed(data []uint32) {
	for i, argb := range data {
		g := (argb >> 8) & 0xff
		redBlue := argb & 0x00ff00ff
		redBlue += g<<16 | g
		redBlue &= 0x00ff00ff
		data[i] = argb&0xff00ff00 | redBlue
	}
}

//------------------------------------------------------------------------------
// Color-indexing transform

// expandColorMap undoes the delta coding of the palette and pads it with
// black up to the full index range addressable at the packed bit depth.
func expandColorMap(numColors int, t *transform) {
	finalNumColors := 1 << (8 >> uint(t.bits))
	newColorMap := make([]uint32, finalNumColors)
	newColorMap[0] = t.data[0]
	for i := 1; i < numColors; i++ {
		newColorMap[i] = addPixels(t.data[i], newColorMap[i-1])
	}
	t.data = newColorMap
}

func colorIndexInverseTransform(t *transform, yStart, yEnd int, src, dst []uint32) {
	width := t.xsize
	bitsPerPixel := 8 >> uint(t.bits)
	s, d := 0, 0
	if bitsPerPixel < 8 {
		pixelsPerByte := 1 << uint(t.bits)
		countMask := pixelsPerByte - 1
		bitMask := uint32(1<<uint(bitsPerPixel)) - 1
		for y := yStart; y < yEnd; y++ {
			var packed uint32
			for x := 0; x < width; x++ {
				// A fresh byte of packed indices every pixelsPerByte pixels.
				if x&countMask == 0 {
					packed = (src[s] >> 8) & 0xff
					s++
				}
				dst[d] = t.data[packed&bitMask]
				d++
				packed >>= uint(bitsPerPixel)
			}
		}
	} else {
		for y := yStart; y < yEnd; y++ {
			for x := 0; x < width; x++ {
				dst[d] = t.data[(src[s]>>8)&0xff]
				d++
				s++
			}
		}
	}
}

// colorIndexInverseTransformAlpha is the 8-bit raster variant used on
// paletted alpha planes: indices live in the plane itself and the palette's
// green channel is the output.
func colorIndexInverseTransformAlpha(t *transform, yStart, yEnd int, src, dst []uint8) {
	width := t.xsize
	bitsPerPixel := 8 >> uint(t.bits)
	s, d := 0, 0
	if bitsPerPixel < 8 {
		pixelsPerByte := 1 << uint(t.bits)
		countMask := pixelsPerByte - 1
		bitMask := uint32(1<<uint(bitsPerPixel)) - 1
		for y := yStart; y < yEnd; y++ {
			var packed uint32
			for x := 0; x < width; x++ {
				if x&countMask == 0 {
					packed = uint32(src[s])
					s++
				}
				dst[d] = uint8(t.data[packed&bitMask] >> 8)
				d++
				packed >>= uint(bitsPerPixel)
			}
		}
	} else {
		for y := yStart; y < yEnd; y++ {
			for x := 0; x < width; x++ {
				dst[d] = uint8(t.data[src[s]] >> 8)
				d++
				s++
			}
		}
	}
}

//------------------------------------------------------------------------------

// inverse applies the inverse transform over rows [rowStart, rowEnd). in
// holds the source rows; the destination window starts at buf[off]. For the
// predictor transform buf must provide the saved top row just before off.
func (t *transform) inverse(rowStart, rowEnd int, in []uint32, buf []uint32, off int) {
	width := t.xsize
	out := buf[off:]
	switch t.kind {
	case subtractGreenTransform:
		addGreenToBlueAndRed(out[:width*(rowEnd-rowStart)])
	case predictorTransform:
		predictorInverseTransform(t, rowStart, rowEnd, buf, off)
		if rowEnd != t.ysize {
			// The last row predicted here becomes the top row of the next
			// call. Save it above the window.
			copy(buf[off-width:off], out[(rowEnd-rowStart-1)*width:(rowEnd-rowStart)*width])
		}
	case crossColorTransform:
		colorSpaceInverseTransform(t, rowStart, rowEnd, in, out)
	case colorIndexingTransform:
		if len(in) > 0 && &in[0] == &out[0] && t.bits > 0 {
			// Unpacking is in place: move the packed pixels to the tail of
			// the unpacked region first so the expansion cannot overrun them.
			outStride := (rowEnd - rowStart) * width
			inStride := (rowEnd - rowStart) * subSampleSize(t.xsize, t.bits)
			src := out[outStride-inStride:]
			copy(src[:inStride], out[:inStride])
			colorIndexInverseTransform(t, rowStart, rowEnd, src, out)
		} else {
			colorIndexInverseTransform(t, rowStart, rowEnd, in, out)
		}
	}
}
