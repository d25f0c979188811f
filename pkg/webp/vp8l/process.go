package vp8l

import "encoding/binary"

// applyInverseTransforms undoes every transform, last read first, over
// numRows decoded rows starting at rows. The result lands in the argb cache
// region of d.pixels; numRows must not exceed numARGBCacheRows.
func (d *Decoder) applyInverseTransforms(startRow, numRows int, rows []uint32) {
	endRow := startRow + numRows
	cachePixs := d.width * numRows
	rowsOut := d.pixels[d.argbCacheOff:]

	// Seed the cache with the decoded rows; the in-place transforms
	// (predictor, subtract-green) operate directly on it.
	copy(rowsOut[:cachePixs], rows[:cachePixs])
	rowsIn := rows
	for n := d.nextTransform - 1; n >= 0; n-- {
		t := &d.transforms[n]
		t.inverse(startRow, endRow, rowsIn, d.pixels, d.argbCacheOff)
		rowsIn = rowsOut
	}
}

// setCropWindow clips the decoded batch [yStart, yEnd) against the crop
// rectangle. It returns the pixel offset of the first visible pixel inside
// the batch and false when nothing of the batch is visible. The visible
// strip is recorded in mbY/mbW/mbH.
func (io *decIO) setCropWindow(yStart, yEnd int) (int, bool) {
	offset := 0
	if yEnd > io.cropBottom {
		yEnd = io.cropBottom // avoid processing rows beyond the crop area
	}
	if yStart < io.cropTop {
		delta := io.cropTop - yStart
		yStart = io.cropTop
		offset += delta * io.width
	}
	if yStart >= yEnd {
		return 0, false
	}
	offset += io.cropLeft

	io.mbY = yStart - io.cropTop
	io.mbW = io.cropRight - io.cropLeft
	io.mbH = yEnd - yStart
	return offset, true
}

// processRows is called by the decode loop every few rows: it applies the
// inverse transforms to the freshly decoded rows and delivers the visible
// part to the output buffer, converting and scaling as requested.
func (d *Decoder) processRows(row int) {
	numRows := row - d.lastRow
	if numRows <= 0 {
		return // nothing to be done
	}
	rows := d.pixels[d.width*d.lastRow:]
	d.applyInverseTransforms(d.lastRow, numRows, rows)

	io := &d.io
	inStride := io.width // cache rows are stored at the final width
	if off, ok := io.setCropWindow(d.lastRow, row); ok {
		out := d.output
		rowsData := d.pixels[d.argbCacheOff+off:]
		if IsRGBMode(out.Colorspace) {
			rgba := out.Pixels[d.lastOutRow*out.Stride:]
			var numOut int
			if io.useScaling {
				numOut = d.emitRescaledRowsRGBA(rowsData, inStride, io.mbH, rgba, out.Stride)
			} else {
				numOut = emitRows(out.Colorspace, rowsData, inStride, io.mbW, io.mbH, rgba, out.Stride)
			}
			d.lastOutRow += numOut
		} else {
			if io.useScaling {
				d.lastOutRow = d.emitRescaledRowsYUVA(rowsData, inStride, io.mbH)
			} else {
				d.lastOutRow = d.emitRowsYUVA(rowsData, inStride, io.mbW, io.mbH)
			}
		}
	}
	d.lastRow = row
}

// emitRows converts mbH rows of BGRA pixels into the requested colorspace.
func emitRows(mode Colorspace, rowsIn []uint32, inStride, mbW, mbH int, out []uint8, outStride int) int {
	inOff, outOff := 0, 0
	for lines := mbH; lines > 0; lines-- {
		convertFromBGRA(rowsIn[inOff:], mbW, mode, out[outOff:])
		inOff += inStride
		outOff += outStride
	}
	return mbH
}

// allocateAndInitRescaler sets up the fixed-point rescaler plus the scratch
// rows used to shuttle pixels across the word/byte boundary.
func (d *Decoder) allocateAndInitRescaler() {
	io := &d.io
	inWidth := io.cropRight - io.cropLeft
	inHeight := io.cropBottom - io.cropTop
	outWidth := io.scaledWidth
	outHeight := io.scaledHeight

	d.scaledRow = make([]uint32, outWidth)
	d.importRowBuf = make([]uint8, inWidth*4)
	dst := make([]uint8, outWidth*4)
	d.rescaler = new(rescaler)
	d.rescaler.init(inWidth, inHeight, dst, outWidth, outHeight, 0, 4)
}

// absorbRows feeds up to linesLeft rows into the rescaler and returns how
// many were consumed. Scaling happens in premultiplied-alpha space so that
// the interpolation does not bleed colors from transparent pixels.
func (d *Decoder) absorbRows(in []uint32, inStride, linesLeft int) int {
	r := d.rescaler
	needed := r.neededLines(linesLeft)
	multARGBRows(in, inStride, r.srcWidth, needed, false)
	imported := 0
	for imported < linesLeft && !r.hasPendingOutput() {
		convertBGRAToBGRA(in[imported*inStride:], r.srcWidth, d.importRowBuf)
		r.absorbRow(d.importRowBuf)
		imported++
	}
	return imported
}

// exportRow pulls the next scaled row back into word form with straight
// alpha restored.
func (d *Decoder) exportScaledRow() []uint32 {
	r := d.rescaler
	r.exportRow()
	for x := 0; x < r.dstWidth; x++ {
		d.scaledRow[x] = binary.LittleEndian.Uint32(r.dst[4*x:])
	}
	multARGBRow(d.scaledRow, r.dstWidth, true)
	return d.scaledRow[:r.dstWidth]
}

func (d *Decoder) emitRescaledRowsRGBA(in []uint32, inStride, mbH int, out []uint8, outStride int) int {
	mode := d.output.Colorspace
	r := d.rescaler
	numLinesIn := 0
	numLinesOut := 0
	for numLinesIn < mbH {
		numLinesIn += d.absorbRows(in[numLinesIn*inStride:], inStride, mbH-numLinesIn)
		for r.hasPendingOutput() {
			row := d.exportScaledRow()
			convertFromBGRA(row, r.dstWidth, mode, out[numLinesOut*outStride:])
			numLinesOut++
		}
	}
	return numLinesOut
}

//------------------------------------------------------------------------------
// YUV 4:2:0 output

// convertToYUVA converts one row of BGRA pixels into the planar output at
// row yPos. Chroma rows are averaged in pairs: the even row stores a first
// estimate that the following odd row refines.
func (d *Decoder) convertToYUVA(src []uint32, width, yPos int) {
	out := d.output
	convertARGBToY(src, out.Y[yPos*out.YStride:], width)
	u := out.U[(yPos>>1)*out.UVStride:]
	v := out.V[(yPos>>1)*out.UVStride:]
	convertARGBToUV(src, u, v, width, yPos&1 == 0)
	if out.Colorspace == ModeYUVA {
		extractAlpha(src, out.A[yPos*out.AStride:], width)
	}
}

func (d *Decoder) emitRowsYUVA(in []uint32, inStride, mbW, numRows int) int {
	yPos := d.lastOutRow
	off := 0
	for ; numRows > 0; numRows-- {
		d.convertToYUVA(in[off:], mbW, yPos)
		off += inStride
		yPos++
	}
	return yPos
}

func (d *Decoder) emitRescaledRowsYUVA(in []uint32, inStride, mbH int) int {
	r := d.rescaler
	numLinesIn := 0
	yPos := d.lastOutRow
	for numLinesIn < mbH {
		numLinesIn += d.absorbRows(in[numLinesIn*inStride:], inStride, mbH-numLinesIn)
		for r.hasPendingOutput() {
			row := d.exportScaledRow()
			d.convertToYUVA(row, r.dstWidth, yPos)
			yPos++
		}
	}
	return yPos
}
