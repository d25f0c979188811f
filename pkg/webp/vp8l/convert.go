package vp8l

// Colorspace selects the layout of the decoded output. Internally the
// decoder always works on BGRA words; conversion happens while emitting.
type Colorspace int

const (
	ModeRGB Colorspace = iota
	ModeRGBA
	ModeBGR
	ModeBGRA
	ModeARGB
	ModeRGBA4444
	ModeRGB565
	// Premultiplied-alpha variants.
	ModeRGBAPremul
	ModeBGRAPremul
	ModeARGBPremul
	ModeRGBA4444Premul
	// YUV 4:2:0 with optional alpha plane.
	ModeYUV
	ModeYUVA

	lastColorspace
)

// IsRGBMode reports whether mode stores interleaved RGB-family samples.
func IsRGBMode(mode Colorspace) bool {
	return mode < ModeYUV
}

// IsPremultipliedMode reports whether mode carries premultiplied alpha.
func IsPremultipliedMode(mode Colorspace) bool {
	switch mode {
	case ModeRGBAPremul, ModeBGRAPremul, ModeARGBPremul, ModeRGBA4444Premul:
		return true
	}
	return false
}

// IsAlphaMode reports whether mode has an alpha channel at all.
func IsAlphaMode(mode Colorspace) bool {
	switch mode {
	case ModeRGBA, ModeBGRA, ModeARGB, ModeRGBA4444, ModeYUVA:
		return true
	}
	return IsPremultipliedMode(mode)
}

// BytesPerPixel returns the packed sample size of an RGB-family mode.
func (mode Colorspace) BytesPerPixel() int {
	switch mode {
	case ModeRGB, ModeBGR:
		return 3
	case ModeRGBA4444, ModeRGB565, ModeRGBA4444Premul:
		return 2
	default:
		return 4
	}
}

//------------------------------------------------------------------------------
// Row conversion out of BGRA words

func convertBGRAToRGBA(src []uint32, numPixels int, dst []uint8) {
	for i := 0; i < numPixels; i++ {
		argb := src[i]
		dst[4*i+0] = uint8(argb >> 16)
		dst[4*i+1] = uint8(argb >> 8)
		dst[4*i+2] = uint8(argb)
		dst[4*i+3] = uint8(argb >> 24)
	}
}

func convertBGRAToBGRA(src []uint32, numPixels int, dst []uint8) {
	for i := 0; i < numPixels; i++ {
		argb := src[i]
		dst[4*i+0] = uint8(argb)
		dst[4*i+1] = uint8(argb >> 8)
		dst[4*i+2] = uint8(argb >> 16)
		dst[4*i+3] = uint8(argb >> 24)
	}
}

func convertBGRAToARGB(src []uint32, numPixels int, dst []uint8) {
	for i := 0; i < numPixels; i++ {
		argb := src[i]
		dst[4*i+0] = uint8(argb >> 24)
		dst[4*i+1] = uint8(argb >> 16)
		dst[4*i+2] = uint8(argb >> 8)
		dst[4*i+3] = uint8(argb)
	}
}

func convertBGRAToRGBA4444(src []uint32, numPixels int, dst []uint8) {
	for i := 0; i < numPixels; i++ {
		argb := src[i]
		dst[2*i+0] = uint8((argb>>16)&0xf0 | (argb>>12)&0x0f)
		dst[2*i+1] = uint8(argb&0xf0 | (argb>>28)&0x0f)
	}
}

func convertBGRAToRGB565(src []uint32, numPixels int, dst []uint8) {
	for i := 0; i < numPixels; i++ {
		argb := src[i]
		dst[2*i+0] = uint8((argb>>16)&0xf8 | (argb>>13)&0x07)
		dst[2*i+1] = uint8((argb>>5)&0xe0 | (argb>>3)&0x1f)
	}
}

func convertBGRAToRGB(src []uint32, numPixels int, dst []uint8) {
	for i := 0; i < numPixels; i++ {
		argb := src[i]
		dst[3*i+0] = uint8(argb >> 16)
		dst[3*i+1] = uint8(argb >> 8)
		dst[3*i+2] = uint8(argb)
	}
}

func convertBGRAToBGR(src []uint32, numPixels int, dst []uint8) {
	for i := 0; i < numPixels; i++ {
		argb := src[i]
		dst[3*i+0] = uint8(argb)
		dst[3*i+1] = uint8(argb >> 8)
		dst[3*i+2] = uint8(argb >> 16)
	}
}

// convertFromBGRA writes numPixels of src into dst using the requested
// layout, applying in-place premultiplication for the premultiplied modes.
func convertFromBGRA(src []uint32, numPixels int, mode Colorspace, dst []uint8) {
	switch mode {
	case ModeRGB:
		convertBGRAToRGB(src, numPixels, dst)
	case ModeRGBA:
		convertBGRAToRGBA(src, numPixels, dst)
	case ModeRGBAPremul:
		convertBGRAToRGBA(src, numPixels, dst)
		applyAlphaMultiply(dst, false, numPixels, 1, 0)
	case ModeBGR:
		convertBGRAToBGR(src, numPixels, dst)
	case ModeBGRA:
		convertBGRAToBGRA(src, numPixels, dst)
	case ModeBGRAPremul:
		convertBGRAToBGRA(src, numPixels, dst)
		applyAlphaMultiply(dst, false, numPixels, 1, 0)
	case ModeARGB:
		convertBGRAToARGB(src, numPixels, dst)
	case ModeARGBPremul:
		convertBGRAToARGB(src, numPixels, dst)
		applyAlphaMultiply(dst, true, numPixels, 1, 0)
	case ModeRGBA4444:
		convertBGRAToRGBA4444(src, numPixels, dst)
	case ModeRGBA4444Premul:
		convertBGRAToRGBA4444(src, numPixels, dst)
		applyAlphaMultiply4444(dst, numPixels, 1, 0)
	case ModeRGB565:
		convertBGRAToRGB565(src, numPixels, dst)
	}
}

//------------------------------------------------------------------------------
// Premultiplied alpha

const (
	multFixBits = 24
	multHalf    = 1 << (multFixBits - 1)
	kInv255     = (1 << multFixBits) / 255
)

func premulMult(x uint8, mult uint32) uint32 {
	return (uint32(x)*mult + multHalf) >> multFixBits
}

func premulScale(a uint32, inverse bool) uint32 {
	if inverse {
		return (255 << multFixBits) / a
	}
	return a * kInv255
}

// multARGBRow multiplies (or with inverse set, un-multiplies) each pixel's
// color channels by its alpha, operating on whole BGRA words.
func multARGBRow(ptr []uint32, width int, inverse bool) {
	for x := 0; x < width; x++ {
		argb := ptr[x]
		if argb < 0xff000000 { // alpha < 255
			if argb <= 0x00ffffff { // alpha == 0
				ptr[x] = 0
				continue
			}
			a := (argb >> 24) & 0xff
			scale := premulScale(a, inverse)
			out := argb & 0xff000000
			out |= premulMult(uint8(argb), scale)
			out |= premulMult(uint8(argb>>8), scale) << 8
			out |= premulMult(uint8(argb>>16), scale) << 16
			ptr[x] = out
		}
	}
}

// multARGBRows premultiplies numRows rows of pixels, stride pixels apart.
func multARGBRows(buf []uint32, stride, width, numRows int, inverse bool) {
	off := 0
	for n := 0; n < numRows; n++ {
		multARGBRow(buf[off:], width, inverse)
		off += stride
	}
}

const alphaMultiplierBits = 23

func alphaMultiplier(a uint32) uint32 { return a * 0x8081 }

func alphaPremultiply(x uint8, m uint32) uint8 {
	return uint8(uint32(x) * m >> alphaMultiplierBits)
}

// applyAlphaMultiply premultiplies interleaved 8-bit RGBA (or ARGB when
// alphaFirst) samples in place.
func applyAlphaMultiply(rgba []uint8, alphaFirst bool, w, h, stride int) {
	for ; h > 0; h-- {
		rgb, alpha := 0, 3
		if alphaFirst {
			rgb, alpha = 1, 0
		}
		for i := 0; i < w; i++ {
			a := uint32(rgba[alpha+4*i])
			if a != 0xff {
				m := alphaMultiplier(a)
				rgba[rgb+4*i+0] = alphaPremultiply(rgba[rgb+4*i+0], m)
				rgba[rgb+4*i+1] = alphaPremultiply(rgba[rgb+4*i+1], m)
				rgba[rgb+4*i+2] = alphaPremultiply(rgba[rgb+4*i+2], m)
			}
		}
		rgba = rgba[stride:]
	}
}

// 0x1111 approximates (1 << 16) / 15.
func alphaMultiplier4(a uint32) uint32 { return a * 0x1111 }

// ditherHi and ditherLo expand a 4-bit sample to 8 bits by replication.
func ditherHi(x uint8) uint8 { return x&0xf0 | x>>4 }
func ditherLo(x uint8) uint8 { return x&0x0f | x<<4 }

func multiply16(x uint8, m uint32) uint8 { return uint8(uint32(x) * m >> 16) }

// applyAlphaMultiply4444 premultiplies packed rg/ba 4444 samples in place.
func applyAlphaMultiply4444(rgba4444 []uint8, w, h, stride int) {
	for ; h > 0; h-- {
		for i := 0; i < w; i++ {
			rg := rgba4444[2*i]
			ba := rgba4444[2*i+1]
			a := ba & 0x0f
			mult := alphaMultiplier4(uint32(a))
			r := multiply16(ditherHi(rg), mult)
			g := multiply16(ditherLo(rg), mult)
			b := multiply16(ditherHi(ba), mult)
			rgba4444[2*i] = r&0xf0 | (g>>4)&0x0f
			rgba4444[2*i+1] = b&0xf0 | a
		}
		rgba4444 = rgba4444[stride:]
	}
}

//------------------------------------------------------------------------------
// YUV conversion (BT.601 fixed point)

const (
	yuvFix  = 16
	yuvHalf = 1 << (yuvFix - 1)
)

func rgbToY(r, g, b, rounding int) uint8 {
	luma := 16839*r + 33059*g + 6420*b
	return uint8((luma + rounding + 16<<yuvFix) >> yuvFix) // no clipping needed
}

func clipUV(uv, rounding int) uint8 {
	uv = (uv + rounding + 128<<(yuvFix+2)) >> (yuvFix + 2)
	if uv&^0xff != 0 {
		if uv < 0 {
			return 0
		}
		return 255
	}
	return uint8(uv)
}

func rgbToU(r, g, b, rounding int) uint8 {
	return clipUV(-9719*r-19081*g+28800*b, rounding)
}

func rgbToV(r, g, b, rounding int) uint8 {
	return clipUV(28800*r-24116*g-4684*b, rounding)
}

func convertARGBToY(argb []uint32, y []uint8, width int) {
	for i := 0; i < width; i++ {
		p := argb[i]
		y[i] = rgbToY(int(p>>16)&0xff, int(p>>8)&0xff, int(p)&0xff, yuvHalf)
	}
}

// convertARGBToUV downsamples one row of chroma by pairing pixels
// horizontally; with doStore unset the results are averaged into the values
// stored by the previous (even) row.
func convertARGBToUV(argb []uint32, u, v []uint8, srcWidth int, doStore bool) {
	uvWidth := srcWidth >> 1
	for i := 0; i < uvWidth; i++ {
		v0 := argb[2*i]
		v1 := argb[2*i+1]
		// rgbToU/V expect four accumulated pixels, so the sum of the pair
		// is scaled by another 2x.
		r := int(v0>>15)&0x1fe + int(v1>>15)&0x1fe
		g := int(v0>>7)&0x1fe + int(v1>>7)&0x1fe
		b := int(v0<<1)&0x1fe + int(v1<<1)&0x1fe
		tmpU := rgbToU(r, g, b, yuvHalf<<2)
		tmpV := rgbToV(r, g, b, yuvHalf<<2)
		if doStore {
			u[i] = tmpU
			v[i] = tmpV
		} else {
			// Approximated average-of-four, an acceptable diff.
			u[i] = uint8((uint16(u[i]) + uint16(tmpU) + 1) >> 1)
			v[i] = uint8((uint16(v[i]) + uint16(tmpV) + 1) >> 1)
		}
	}
	if srcWidth&1 != 0 { // last pixel
		v0 := argb[srcWidth-1]
		r := int(v0>>14) & 0x3fc
		g := int(v0>>6) & 0x3fc
		b := int(v0<<2) & 0x3fc
		tmpU := rgbToU(r, g, b, yuvHalf<<2)
		tmpV := rgbToV(r, g, b, yuvHalf<<2)
		if doStore {
			u[uvWidth] = tmpU
			v[uvWidth] = tmpV
		} else {
			u[uvWidth] = uint8((uint16(u[uvWidth]) + uint16(tmpU) + 1) >> 1)
			v[uvWidth] = uint8((uint16(v[uvWidth]) + uint16(tmpV) + 1) >> 1)
		}
	}
}

func extractAlpha(argb []uint32, a []uint8, width int) {
	for i := 0; i < width; i++ {
		a[i] = uint8(argb[i] >> 24)
	}
}

// extractGreen pulls the green channel out of a row of pixels; the 8-bit
// alpha stream stores its samples there.
func extractGreen(argb []uint32, a []uint8, size int) {
	for i := 0; i < size; i++ {
		a[i] = uint8(argb[i] >> 8)
	}
}
