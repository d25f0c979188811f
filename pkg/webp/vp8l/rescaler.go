package vp8l

// Fixed-point, two-phase rescaler: rows are imported into a fractional
// accumulator (frow) at full precision, summed vertically into irow, and
// exported with a final scale back to 8 bits.
const (
	rescalerRFix    = 32
	rescalerOne     = uint64(1) << rescalerRFix
	rescalerRounder = rescalerOne >> 1
)

func rescalerFrac(x, y int) uint32 {
	return uint32((uint64(x) << rescalerRFix) / uint64(y))
}

func multFix(x, y uint64) uint64 {
	return (x*y + rescalerRounder) >> rescalerRFix
}

func multFixFloor(x, y uint64) uint64 {
	return (x * y) >> rescalerRFix
}

type rescaler struct {
	xExpand     bool // true if source is narrower than destination
	yExpand     bool
	numChannels int

	fxScale  uint32 // horizontal normalization factor (shrink only)
	fyScale  uint32 // vertical normalization factor
	fxyScale uint32 // combined normalization factor (shrink only)

	yAccum     int // vertical accumulator
	yAdd, ySub int
	xAdd, xSub int

	srcWidth, srcHeight int
	dstWidth, dstHeight int
	srcY, dstY          int

	dst       []uint8
	dstStride int
	dstOff    int

	irow, frow []uint32
}

func (r *rescaler) init(srcWidth, srcHeight int, dst []uint8, dstWidth, dstHeight, dstStride, numChannels int) {
	r.xExpand = srcWidth < dstWidth
	r.yExpand = srcHeight < dstHeight
	r.srcWidth = srcWidth
	r.srcHeight = srcHeight
	r.dstWidth = dstWidth
	r.dstHeight = dstHeight
	r.srcY = 0
	r.dstY = 0
	r.dst = dst
	r.dstStride = dstStride
	r.dstOff = 0
	r.numChannels = numChannels

	work := make([]uint32, 2*dstWidth*numChannels)
	r.irow = work[:dstWidth*numChannels]
	r.frow = work[dstWidth*numChannels:]

	// Horizontal expansion uses bilinear interpolation.
	if r.xExpand {
		r.xAdd = dstWidth - 1
		r.xSub = srcWidth - 1
	} else {
		r.xAdd = srcWidth
		r.xSub = dstWidth
		r.fxScale = rescalerFrac(1, r.xSub)
	}
	if r.yExpand {
		r.yAdd = srcHeight - 1
		r.ySub = dstHeight - 1
		r.yAccum = r.ySub
		r.fyScale = rescalerFrac(1, r.xAdd)
	} else {
		r.yAdd = srcHeight
		r.ySub = dstHeight
		r.yAccum = r.yAdd
		// dstHeight <= yAdd and xAdd >= 1, so the ratio fits in 32 bits
		// unless it is exactly one; that case exports through irow directly
		// and is flagged with fxyScale == 0.
		num := uint64(dstHeight) * rescalerOne
		den := uint64(r.xAdd) * uint64(r.yAdd)
		ratio := num / den
		if ratio > 0xffffffff {
			r.fxyScale = 0
		} else {
			r.fxyScale = uint32(ratio)
		}
		r.fyScale = rescalerFrac(1, r.ySub)
	}
}

func (r *rescaler) inputDone() bool {
	return r.srcY >= r.srcHeight
}

func (r *rescaler) outputDone() bool {
	return r.dstY >= r.dstHeight
}

func (r *rescaler) hasPendingOutput() bool {
	// yAccum can stay at zero after the last export when upscaling from a
	// single source row (yAdd == 0), so outputDone must bound the loop.
	return !r.outputDone() && r.yAccum <= 0
}

// neededLines returns how many input rows are needed before the next output
// row can be produced, capped at maxNumLines.
func (r *rescaler) neededLines(maxNumLines int) int {
	numLines := (r.yAccum + r.ySub - 1) / r.ySub
	if numLines > maxNumLines {
		return maxNumLines
	}
	return numLines
}

func (r *rescaler) importRowExpand(src []uint8) {
	xStride := r.numChannels
	xOutMax := r.dstWidth * r.numChannels
	for channel := 0; channel < xStride; channel++ {
		xIn := channel
		xOut := channel
		// simple bilinear interpolation
		accum := r.xAdd
		left := uint32(src[xIn])
		right := left
		if r.srcWidth > 1 {
			right = uint32(src[xIn+xStride])
		}
		xIn += xStride
		for {
			r.frow[xOut] = right*uint32(r.xAdd) + (left-right)*uint32(accum)
			xOut += xStride
			if xOut >= xOutMax {
				break
			}
			accum -= r.xSub
			if accum < 0 {
				left = right
				xIn += xStride
				right = uint32(src[xIn])
				accum += r.xAdd
			}
		}
	}
}

func (r *rescaler) importRowShrink(src []uint8) {
	xStride := r.numChannels
	xOutMax := r.dstWidth * r.numChannels
	for channel := 0; channel < xStride; channel++ {
		xIn := channel
		xOut := channel
		sum := uint32(0)
		accum := 0
		for xOut < xOutMax {
			base := uint32(0)
			accum += r.xAdd
			for accum > 0 {
				accum -= r.xSub
				base = uint32(src[xIn])
				sum += base
				xIn += xStride
			}
			// Emit next horizontal pixel.
			frac := base * uint32(-accum)
			r.frow[xOut] = sum*uint32(r.xSub) - frac
			// fresh fractional start for next pixel
			sum = uint32(multFix(uint64(frac), uint64(r.fxScale)))
			xOut += xStride
		}
	}
}

func (r *rescaler) importRow(src []uint8) {
	if r.xExpand {
		r.importRowExpand(src)
	} else {
		r.importRowShrink(src)
	}
}

// absorbRow feeds one source row into the vertical accumulator. Callers
// stop absorbing as soon as hasPendingOutput reports an output row is due.
func (r *rescaler) absorbRow(src []uint8) {
	if r.yExpand {
		r.irow, r.frow = r.frow, r.irow
	}
	r.importRow(src)
	if !r.yExpand {
		// Accumulate the contribution of the new row.
		for x := 0; x < r.numChannels*r.dstWidth; x++ {
			r.irow[x] += r.frow[x]
		}
	}
	r.srcY++
	r.yAccum -= r.ySub
}

func (r *rescaler) exportRowExpand() {
	dst := r.dst[r.dstOff:]
	xOutMax := r.dstWidth * r.numChannels
	if r.yAccum == 0 {
		for xOut := 0; xOut < xOutMax; xOut++ {
			j := r.frow[xOut]
			v := multFix(uint64(j), uint64(r.fyScale))
			if v > 255 {
				v = 255
			}
			dst[xOut] = uint8(v)
		}
	} else {
		b := uint64(rescalerFrac(-r.yAccum, r.ySub))
		a := rescalerOne - b
		for xOut := 0; xOut < xOutMax; xOut++ {
			i := a*uint64(r.frow[xOut]) + b*uint64(r.irow[xOut])
			j := (i + rescalerRounder) >> rescalerRFix
			v := multFix(j, uint64(r.fyScale))
			if v > 255 {
				v = 255
			}
			dst[xOut] = uint8(v)
		}
	}
}

func (r *rescaler) exportRowShrink() {
	dst := r.dst[r.dstOff:]
	xOutMax := r.dstWidth * r.numChannels
	yScale := uint64(r.fyScale) * uint64(-r.yAccum)
	if yScale != 0 {
		for xOut := 0; xOut < xOutMax; xOut++ {
			frac := multFixFloor(uint64(r.frow[xOut]), yScale)
			v := multFix(uint64(r.irow[xOut])-frac, uint64(r.fxyScale))
			if v > 255 {
				v = 255
			}
			dst[xOut] = uint8(v)
			r.irow[xOut] = uint32(frac) // new fractional start
		}
	} else {
		for xOut := 0; xOut < xOutMax; xOut++ {
			v := multFix(uint64(r.irow[xOut]), uint64(r.fxyScale))
			if v > 255 {
				v = 255
			}
			dst[xOut] = uint8(v)
			r.irow[xOut] = 0
		}
	}
}

func (r *rescaler) exportRow() {
	if r.yAccum <= 0 {
		if r.yExpand {
			r.exportRowExpand()
		} else if r.fxyScale != 0 {
			r.exportRowShrink()
		} else {
			// Very small image special case: src and dst heights match and
			// the accumulated row is the output row.
			for i := 0; i < r.numChannels*r.dstWidth; i++ {
				r.dst[r.dstOff+i] = uint8(r.irow[i])
				r.irow[i] = 0
			}
		}
		r.yAccum += r.yAdd
		r.dstOff += r.dstStride
		r.dstY++
	}
}
