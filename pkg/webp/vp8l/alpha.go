package vp8l

// AlphaDecoder decodes a lossless-compressed alpha plane: an 8-bit image
// carried in the green channel of a regular lossless stream.
type AlphaDecoder struct {
	width  int
	height int

	dec *Decoder

	// True when the stream is a pure palette of gray levels with trivial
	// red/blue/alpha trees: pixels then decode straight to bytes.
	use8bDecode bool
}

func NewAlphaDecoder(width, height int) *AlphaDecoder {
	return &AlphaDecoder{width: width, height: height}
}

// is8bOptimizable reports whether the red, blue and alpha trees of every
// group are single-symbol, so only the green channel carries information.
func is8bOptimizable(hdr *metadata) bool {
	if hdr.colorCacheSize > 0 {
		return false
	}
	for i := range hdr.htreeGroups {
		h := &hdr.htreeGroups[i]
		if h.htrees[treeRed][0].bits > 0 ||
			h.htrees[treeBlue][0].bits > 0 ||
			h.htrees[treeAlpha][0].bits > 0 {
			return false
		}
	}
	return true
}

// DecodeHeader parses the alpha substream header and decides between the
// 8-bit fast path and the general 32-bit path. Decoded alpha bytes land in
// output, which must hold width*height bytes.
func (a *AlphaDecoder) DecodeHeader(data []byte, output []uint8) error {
	if len(output) < a.width*a.height {
		return ErrInvalidParam
	}
	a.dec = NewDecoder()
	d := a.dec
	d.width = a.width
	d.height = a.height
	d.io.width = a.width
	d.io.height = a.height
	d.alphaOut = output
	d.br.init(data)

	if _, err := d.decodeImageStream(a.width, a.height, true); err != nil {
		a.dec = nil
		return err
	}

	// Special case: if alpha data uses only the color indexing transform and
	// the green-only shortcut applies, decoding can stay in 8-bit.
	if d.nextTransform == 1 &&
		d.transforms[0].kind == colorIndexingTransform &&
		is8bOptimizable(&d.hdr) {
		a.use8bDecode = true
		d.allocateInternalBuffers8b()
	} else {
		a.use8bDecode = false
		d.allocateInternalBuffers32b(a.width)
	}
	return nil
}

// DecodeRows decodes the plane up to row lastRow (exclusive). It may be
// called repeatedly with increasing rows.
func (a *AlphaDecoder) DecodeRows(lastRow int) error {
	d := a.dec
	if d == nil {
		return ErrInvalidParam
	}
	if d.lastRow >= lastRow {
		return nil // done/nothing to be done
	}
	if a.use8bDecode {
		return d.decodeAlphaData(d.pixels8, d.width, d.height, lastRow)
	}
	return d.decodeImageData(d.pixels, d.width, d.height, lastRow, (*Decoder).extractAlphaRows)
}

// DecodeAlpha decodes a whole lossless alpha stream into a fresh plane.
func DecodeAlpha(data []byte, width, height int) ([]uint8, error) {
	a := NewAlphaDecoder(width, height)
	plane := make([]uint8, width*height)
	if err := a.DecodeHeader(data, plane); err != nil {
		return nil, err
	}
	if err := a.DecodeRows(height); err != nil {
		return nil, err
	}
	return plane, nil
}

// extractAlphaRows runs the inverse transforms over the freshly decoded rows
// and extracts the green channel into the alpha plane. The batch is processed
// in argb-cache-sized chunks, since resuming after a partial decode can leave
// more than numARGBCacheRows pending.
func (d *Decoder) extractAlphaRows(row int) {
	curRow := d.lastRow
	numRows := row - curRow
	if numRows <= 0 {
		return
	}
	width := d.io.width
	for numRows > 0 {
		n := numRows
		if n > numARGBCacheRows {
			n = numARGBCacheRows
		}
		d.applyInverseTransforms(curRow, n, d.pixels[d.width*curRow:])
		extractGreen(d.pixels[d.argbCacheOff:], d.alphaOut[width*curRow:], width*n)
		curRow += n
		numRows -= n
	}
	d.lastRow = row
	d.lastOutRow = row
}

// extractPalettedAlphaRows unpacks the palette indices decoded so far
// directly into the alpha plane.
func (d *Decoder) extractPalettedAlphaRows(row int) {
	numRows := row - d.lastRow
	if numRows > 0 {
		in := d.pixels8[d.width*d.lastRow:]
		out := d.alphaOut[d.io.width*d.lastRow:]
		colorIndexInverseTransformAlpha(&d.transforms[0], d.lastRow, row, in, out)
	}
	d.lastRow = row
	d.lastOutRow = row
}

func copyBlock8b(data []uint8, pos, dist, length int) {
	if dist >= length {
		copy(data[pos:pos+length], data[pos-dist:pos-dist+length])
		return
	}
	if dist == 1 {
		b := data[pos-1]
		for i := 0; i < length; i++ {
			data[pos+i] = b
		}
		return
	}
	for i := 0; i < length; i++ {
		data[pos+i] = data[pos-dist+i]
	}
}

// decodeAlphaData is the 8-bit variant of the decode loop: literals are
// palette indices, there is no color cache and no red/blue/alpha channels.
func (d *Decoder) decodeAlphaData(data []uint8, width, height, lastRow int) error {
	br := &d.br
	hdr := &d.hdr

	row := d.lastPixel / width
	col := d.lastPixel % width
	group := hdr.hTreeGroupForPos(col, row)

	pos := d.lastPixel
	end := width * height
	last := width * lastRow
	lenCodeLimit := numLiteralCodes + numLengthCodes
	mask := hdr.huffmanMask

	for !br.eos && pos < last {
		// Only update when crossing a tile boundary.
		if col&mask == 0 {
			group = hdr.hTreeGroupForPos(col, row)
		}
		br.fillBitWindow()
		code := readSymbol(group.htrees[treeGreen], br)
		switch {
		case code < numLiteralCodes: // literal
			data[pos] = uint8(code)
			pos++
			col++
			if col >= width {
				col = 0
				row++
				if row <= lastRow && row%numARGBCacheRows == 0 {
					d.extractPalettedAlphaRows(row)
				}
			}
		case code < lenCodeLimit: // backward reference
			lengthSym := code - numLiteralCodes
			length := getCopyLength(lengthSym, br)
			distSymbol := readSymbol(group.htrees[treeDist], br)
			br.fillBitWindow()
			distCode := getCopyDistance(distSymbol, br)
			dist := planeCodeToDistance(width, distCode)
			if pos < dist || end-pos < length {
				if br.eos {
					break
				}
				return d.setError(ErrBitstream)
			}
			copyBlock8b(data, pos, dist, length)
			pos += length
			col += length
			for col >= width {
				col -= width
				row++
				if row <= lastRow && row%numARGBCacheRows == 0 {
					d.extractPalettedAlphaRows(row)
				}
			}
			if pos < last && col&mask != 0 {
				group = hdr.hTreeGroupForPos(col, row)
			}
		default: // invalid symbol
			return d.setError(ErrBitstream)
		}
	}
	// A backward reference may have decoded past the requested row.
	if row > lastRow {
		row = lastRow
	}
	d.extractPalettedAlphaRows(row)

	if br.eos && pos < end {
		d.status = ErrSuspended
		return ErrSuspended
	}
	d.status = nil
	d.lastPixel = pos
	return nil
}
