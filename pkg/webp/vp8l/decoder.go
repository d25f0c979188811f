// Package vp8l decodes WebP lossless (VP8L) bitstreams: LZ77 backward
// references and color-cache hits over Huffman-coded symbols, followed by up
// to four inverse transforms (predictor, cross-color, subtract-green,
// color-indexing).
package vp8l

import "errors"

type decodeState int

const (
	stateReadDim decodeState = iota
	stateReadHdr
	stateReadData
	stateDone
)

// Minimum number of rows decoded between two incremental checkpoints.
const syncEveryNRows = 8

// metadata groups the entropy state of the stream currently being decoded:
// the meta-Huffman image, the lookup tables and the color cache. A recursive
// sub-stream (transform data, meta codes) gets its own copy for the duration
// of its decode.
type metadata struct {
	colorCacheSize  int
	colorCache      colorCache
	savedColorCache colorCache // for incremental checkpoints

	huffmanMask          int
	huffmanSubsampleBits int
	huffmanXsize         int
	huffmanImage         []uint32
	numHTreeGroups       int
	htreeGroups          []hTreeGroup
	huffmanTables        huffmanTables
}

func (hdr *metadata) clear() {
	hdr.huffmanImage = nil
	hdr.htreeGroups = nil
	hdr.huffmanTables.release()
	hdr.colorCache.colors = nil
	hdr.savedColorCache.colors = nil
	hdr.colorCacheSize = 0
	hdr.huffmanMask = 0
	hdr.huffmanSubsampleBits = 0
	hdr.huffmanXsize = 0
	hdr.numHTreeGroups = 0
}

type processRowsFunc func(d *Decoder, row int)

// Decoder decodes one lossless stream. The zero value is not usable; obtain
// one from NewDecoder or NewIncrementalDecoder.
type Decoder struct {
	status error
	state  decodeState

	br bitReader

	width    int // may shrink when a color-indexing transform packs pixels
	height   int
	hasAlpha bool

	hdr metadata

	nextTransform  int
	transforms     [numTransforms]transform
	transformsSeen uint32

	// pixels is the main 32-bit work area: width*height decoded pixels,
	// one saved top row for the predictor transform, then numARGBCacheRows
	// rows of post-transform scratch starting at argbCacheOff.
	pixels       []uint32
	pixels8      []uint8 // 8-bit work area for the alpha fast path
	argbCacheOff int

	lastPixel  int // last decoded pixel, exclusive; decoding resumes here
	lastRow    int // last row the inverse transforms were applied to
	lastOutRow int // last row delivered to the output buffer

	incremental    bool
	savedBR        bitReader
	savedLastPixel int

	io     decIO
	output *OutputBuffer

	rescaler     *rescaler
	scaledRow    []uint32
	importRowBuf []uint8

	alphaOut []uint8 // destination plane when decoding an alpha channel
}

// NewDecoder returns a decoder for a complete, fully buffered stream.
func NewDecoder() *Decoder {
	return &Decoder{state: stateReadDim}
}

// NewIncrementalDecoder returns a decoder that checkpoints its progress while
// decoding, so a Decode interrupted by the end of the input (ErrSuspended)
// can resume after ExtendInput supplies more bytes.
func NewIncrementalDecoder() *Decoder {
	d := NewDecoder()
	d.incremental = true
	return d
}

// Status returns the sticky decoder status: nil, ErrSuspended, or the first
// hard error encountered.
func (d *Decoder) Status() error { return d.status }

func (d *Decoder) Width() int     { return d.io.width }
func (d *Decoder) Height() int    { return d.io.height }
func (d *Decoder) HasAlpha() bool { return d.hasAlpha }

// LastRow returns the number of fully decoded and delivered output rows.
func (d *Decoder) LastRow() int { return d.lastOutRow }

// Header holds the dimensions signalled in a stream header.
type Header struct {
	Width    int
	Height   int
	HasAlpha bool
}

func checkSignature(data []byte) bool {
	return len(data) >= 1 && data[0] == magicByte
}

func readImageInfo(br *bitReader) (Header, bool) {
	var h Header
	if br.readBits(8) != magicByte {
		return h, false
	}
	h.Width = int(br.readBits(imageSizeBits)) + 1
	h.Height = int(br.readBits(imageSizeBits)) + 1
	h.HasAlpha = br.readBits(1) != 0
	if br.readBits(versionBits) != version {
		return h, false
	}
	return h, !br.eos
}

// GetInfo validates the stream signature and returns the image dimensions
// without building a decoder.
func GetInfo(data []byte) (Header, error) {
	if len(data) < frameHeaderSize {
		return Header{}, ErrNotEnoughData
	}
	var br bitReader
	br.init(data)
	h, ok := readImageInfo(&br)
	if !ok {
		return Header{}, ErrBitstream
	}
	return h, nil
}

// DecodeHeader parses the stream header and all entropy metadata: the
// transforms, the color cache parameters and every Huffman tree. After a
// successful call the decoder holds everything needed to decode pixels.
func (d *Decoder) DecodeHeader(data []byte) error {
	if d == nil {
		return ErrInvalidParam
	}
	if len(data) < frameHeaderSize {
		return d.setError(ErrNotEnoughData)
	}
	d.status = nil
	d.state = stateReadDim
	d.br.init(data)
	h, ok := readImageInfo(&d.br)
	if !ok {
		err := d.setError(ErrBitstream)
		d.Clear()
		return err
	}
	d.width = h.Width
	d.height = h.Height
	d.hasAlpha = h.HasAlpha
	d.io.width = h.Width
	d.io.height = h.Height

	if _, err := d.decodeImageStream(h.Width, h.Height, true); err != nil {
		d.Clear()
		return err
	}
	return nil
}

// Decode decodes the whole image into out, applying the inverse transforms
// and the crop/scale/conversion options row-block by row-block. With an
// incremental decoder it returns ErrSuspended when the input runs out;
// extend the input and call Decode again to resume.
func (d *Decoder) Decode(out *OutputBuffer) error {
	if d == nil || out == nil {
		return ErrInvalidParam
	}
	switch d.state {
	case stateReadHdr:
		d.output = out
		if err := d.io.initFromOptions(out, d.io.width, d.io.height); err != nil {
			d.Clear()
			return d.setError(err)
		}
		if err := out.allocate(); err != nil {
			d.Clear()
			return d.setError(err)
		}
		d.allocateInternalBuffers32b(d.io.width)
		if d.io.useScaling {
			d.allocateAndInitRescaler()
		}
		if d.incremental && d.hdr.colorCacheSize > 0 {
			d.hdr.savedColorCache.init(d.hdr.colorCache.hashBits)
		}
		d.state = stateReadData
	case stateReadData:
		// resuming a suspended decode
	default:
		return d.setError(ErrInvalidParam)
	}

	err := d.decodeImageData(d.pixels, d.width, d.height, d.height, (*Decoder).processRows)
	if err != nil {
		if errors.Is(err, ErrSuspended) {
			return err
		}
		d.Clear()
		return err
	}
	d.state = stateDone
	return nil
}

// ExtendInput presents a longer view of the input bitstream to a suspended
// incremental decoder. data must contain every previously supplied byte as a
// prefix.
func (d *Decoder) ExtendInput(data []byte) error {
	if d == nil || !d.incremental {
		return ErrInvalidParam
	}
	if len(data) < len(d.br.buf) {
		return ErrInvalidParam
	}
	d.br.setBuffer(data)
	if d.savedBR.buf != nil {
		d.savedBR.setBuffer(data)
	}
	return nil
}

// Clear releases all internal buffers. The sticky status survives; the
// decoder can parse a fresh stream with DecodeHeader afterwards.
func (d *Decoder) Clear() {
	if d == nil {
		return
	}
	d.hdr.clear()
	d.pixels = nil
	d.pixels8 = nil
	for i := 0; i < d.nextTransform; i++ {
		d.transforms[i].data = nil
	}
	d.nextTransform = 0
	d.transformsSeen = 0
	d.rescaler = nil
	d.scaledRow = nil
	d.importRowBuf = nil
	d.output = nil
}

func (d *Decoder) allocateInternalBuffers32b(finalWidth int) {
	numPixels := d.width * d.height
	// One scanline of padding keeps the last row of the previous block
	// available as the predictor top row, then the post-transform cache.
	cacheTopPixels := finalWidth
	cachePixels := finalWidth * numARGBCacheRows
	d.pixels = make([]uint32, numPixels+cacheTopPixels+cachePixels)
	d.argbCacheOff = numPixels + cacheTopPixels
}

func (d *Decoder) allocateInternalBuffers8b() {
	d.pixels8 = make([]uint8, d.width*d.height)
}

// updateDecoder records the dimensions of the stream being decoded and the
// meta-Huffman tiling derived from them.
func (d *Decoder) updateDecoder(width, height int) {
	hdr := &d.hdr
	numBits := hdr.huffmanSubsampleBits
	d.width = width
	d.height = height
	hdr.huffmanXsize = subSampleSize(width, numBits)
	if numBits == 0 {
		hdr.huffmanMask = -1
	} else {
		hdr.huffmanMask = 1<<uint(numBits) - 1
	}
}

func getMetaIndex(image []uint32, xsize, bits, x, y int) int {
	if bits == 0 {
		return 0
	}
	return int(image[xsize*(y>>uint(bits))+x>>uint(bits)])
}

func (hdr *metadata) hTreeGroupForPos(x, y int) *hTreeGroup {
	metaIndex := getMetaIndex(hdr.huffmanImage, hdr.huffmanXsize, hdr.huffmanSubsampleBits, x, y)
	return &hdr.htreeGroups[metaIndex]
}

// readHuffmanCodeLengths decodes codeLengths for numSymbols symbols, where
// the lengths are themselves Huffman-coded with the code described by
// codeLengthCodeLengths.
func (d *Decoder) readHuffmanCodeLengths(codeLengthCodeLengths []int, numSymbols int, codeLengths []int) error {
	br := &d.br

	size := buildHuffmanTable(nil, lengthsTableBits, codeLengthCodeLengths)
	if size == 0 {
		return d.setError(ErrBitstream)
	}
	table := make([]huffmanCode, size)
	buildHuffmanTable(table, lengthsTableBits, codeLengthCodeLengths)

	maxSymbol := numSymbols
	if br.readBits(1) != 0 { // use length
		lengthNBits := 2 + 2*int(br.readBits(3))
		maxSymbol = 2 + int(br.readBits(lengthNBits))
		if maxSymbol > numSymbols {
			return d.setError(ErrBitstream)
		}
	}

	prevCodeLen := defaultCodeLength
	symbol := 0
	for symbol < numSymbols {
		if maxSymbol == 0 {
			break
		}
		maxSymbol--
		br.fillBitWindow()
		p := table[br.prefetchBits()&lengthsTableMask]
		br.setBitPos(br.bitPos + int(p.bits))
		codeLen := int(p.value)
		if codeLen < codeLengthLiterals {
			codeLengths[symbol] = codeLen
			symbol++
			if codeLen != 0 {
				prevCodeLen = codeLen
			}
		} else {
			usePrev := codeLen == codeLengthRepeatCode
			slot := codeLen - codeLengthLiterals
			extraBits := int(codeLengthExtraBits[slot])
			repeatOffset := int(codeLengthRepeatOffsets[slot])
			repeat := int(br.readBits(extraBits)) + repeatOffset
			if symbol+repeat > numSymbols {
				return d.setError(ErrBitstream)
			}
			length := 0
			if usePrev {
				length = prevCodeLen
			}
			for ; repeat > 0; repeat-- {
				codeLengths[symbol] = length
				symbol++
			}
		}
	}
	return nil
}

// readHuffmanCode reads one Huffman code of the given alphabet size and
// builds its lookup tables into a fresh segment of the arena. codeLengths is
// caller-provided scratch, at least alphabetSize long. A nil tables only
// validates the code and returns no segment.
func (d *Decoder) readHuffmanCode(alphabetSize int, codeLengths []int, tables *huffmanTables) ([]huffmanCode, error) {
	br := &d.br
	for i := 0; i < alphabetSize; i++ {
		codeLengths[i] = 0
	}

	if br.readBits(1) != 0 {
		// Simple code: one or two symbols spelled out directly.
		numSymbols := int(br.readBits(1)) + 1
		firstSymbolLenCode := br.readBits(1)
		// The first code is either 1 bit or 8 bit code.
		nbits := 1
		if firstSymbolLenCode != 0 {
			nbits = 8
		}
		symbol := int(br.readBits(nbits))
		codeLengths[symbol] = 1
		// The second code (if present) is always 8 bits long.
		if numSymbols == 2 {
			symbol = int(br.readBits(8))
			codeLengths[symbol] = 1
		}
	} else {
		// Decode the code lengths, themselves Huffman-coded.
		var codeLengthCodeLengths [numCodeLengthCodes]int
		numCodes := int(br.readBits(4)) + 4
		if numCodes > numCodeLengthCodes {
			return nil, d.setError(ErrBitstream)
		}
		for i := 0; i < numCodes; i++ {
			codeLengthCodeLengths[codeLengthCodeOrder[i]] = int(br.readBits(3))
		}
		if err := d.readHuffmanCodeLengths(codeLengthCodeLengths[:], alphabetSize, codeLengths); err != nil {
			return nil, err
		}
	}
	if br.eos {
		return nil, d.setError(ErrBitstream)
	}

	// First pass validates and sizes, second pass fills the tables.
	size := buildHuffmanTable(nil, huffmanTableBits, codeLengths[:alphabetSize])
	if size == 0 {
		return nil, d.setError(ErrBitstream)
	}
	if tables == nil {
		return nil, nil
	}
	seg := tables.carve(size)
	if seg == nil {
		return nil, d.setError(ErrOutOfMemory)
	}
	buildHuffmanTable(seg, huffmanTableBits, codeLengths[:alphabetSize])
	return seg, nil
}

// readHuffmanCodesHelper reads the five Huffman codes of each htree group and
// derives the per-group fast paths. mapping (when non-nil) maps sparse meta
// indices to dense group slots, with -1 marking indices never referenced by
// the meta image; their codes are validated but not stored.
func (d *Decoder) readHuffmanCodesHelper(colorCacheBits, numHTreeGroups, numHTreeGroupsMax int, mapping []int) ([]hTreeGroup, error) {
	hdr := &d.hdr

	if (mapping == nil && numHTreeGroups != numHTreeGroupsMax) || numHTreeGroups > numHTreeGroupsMax {
		return nil, d.setError(ErrBitstream)
	}

	maxAlphabetSize := int(kAlphabetSize[0])
	if colorCacheBits > 0 {
		maxAlphabetSize += 1 << uint(colorCacheBits)
	}
	tableSize := kTableSize[colorCacheBits]

	codeLengths := make([]int, maxAlphabetSize)
	htreeGroups := make([]hTreeGroup, numHTreeGroups)
	hdr.huffmanTables.allocate(numHTreeGroups * tableSize)

	for i := 0; i < numHTreeGroupsMax; i++ {
		if mapping != nil && mapping[i] == -1 {
			for j := 0; j < huffmanCodesPerMetaCode; j++ {
				alphabetSize := int(kAlphabetSize[j])
				if j == 0 && colorCacheBits > 0 {
					alphabetSize += 1 << uint(colorCacheBits)
				}
				if _, err := d.readHuffmanCode(alphabetSize, codeLengths, nil); err != nil {
					return nil, err
				}
			}
			continue
		}

		idx := i
		if mapping != nil {
			idx = mapping[i]
		}
		group := &htreeGroups[idx]
		totalSize := 0
		isTrivialLiteral := true
		maxBits := 0
		for j := 0; j < huffmanCodesPerMetaCode; j++ {
			alphabetSize := int(kAlphabetSize[j])
			if j == 0 && colorCacheBits > 0 {
				alphabetSize += 1 << uint(colorCacheBits)
			}
			htree, err := d.readHuffmanCode(alphabetSize, codeLengths, &hdr.huffmanTables)
			if err != nil {
				return nil, err
			}
			group.htrees[j] = htree
			if isTrivialLiteral && literalMap[j] == 1 {
				isTrivialLiteral = htree[0].bits == 0
			}
			totalSize += int(htree[0].bits)
			if j <= treeAlpha {
				localMaxBits := codeLengths[0]
				for k := 1; k < alphabetSize; k++ {
					if codeLengths[k] > localMaxBits {
						localMaxBits = codeLengths[k]
					}
				}
				maxBits += localMaxBits
			}
		}
		group.isTrivialLiteral = isTrivialLiteral
		group.isTrivialCode = false
		if isTrivialLiteral {
			redVal := uint32(group.htrees[treeRed][0].value)
			blueVal := uint32(group.htrees[treeBlue][0].value)
			alphaVal := uint32(group.htrees[treeAlpha][0].value)
			group.literalARB = alphaVal<<24 | redVal<<16 | blueVal
			if totalSize == 0 && int(group.htrees[treeGreen][0].value) < numLiteralCodes {
				// Every pixel decodes to the same value without consuming
				// a single bit.
				group.isTrivialCode = true
				group.literalARB |= uint32(group.htrees[treeGreen][0].value) << 8
			}
		}
		group.usePackedTable = !group.isTrivialCode && maxBits < huffmanPackedBits
		if group.usePackedTable {
			buildPackedTable(group)
		}
	}
	return htreeGroups, nil
}

func (d *Decoder) readHuffmanCodes(xsize, ysize, colorCacheBits int, allowRecursion bool) error {
	br := &d.br
	hdr := &d.hdr

	var huffmanImage []uint32
	var mapping []int
	numHTreeGroups := 1
	numHTreeGroupsMax := 1

	if allowRecursion && br.readBits(1) != 0 {
		// Meta Huffman image: a sub-resolution map of htree group indices.
		huffmanPrecision := minHuffmanBits + int(br.readBits(numHuffmanBits))
		huffmanXsize := subSampleSize(xsize, huffmanPrecision)
		huffmanYsize := subSampleSize(ysize, huffmanPrecision)
		huffmanPixs := huffmanXsize * huffmanYsize
		var err error
		huffmanImage, err = d.decodeImageStream(huffmanXsize, huffmanYsize, false)
		if err != nil {
			return err
		}
		hdr.huffmanSubsampleBits = huffmanPrecision
		for i := 0; i < huffmanPixs; i++ {
			// The huffman data is stored in red and green bytes.
			group := int(huffmanImage[i] >> 8 & 0xffff)
			huffmanImage[i] = uint32(group)
			if group >= numHTreeGroupsMax {
				numHTreeGroupsMax = group + 1
			}
		}
		if numHTreeGroupsMax > maxNumHTreeGroups {
			return d.setError(ErrBitstream)
		}
		// A degenerate meta image can reference far more groups than there
		// are pixels; remap the used indices to a dense range so only the
		// referenced trees are kept.
		if numHTreeGroupsMax > 1000 || numHTreeGroupsMax > xsize*ysize {
			mapping = make([]int, numHTreeGroupsMax)
			for i := range mapping {
				mapping[i] = -1
			}
			numHTreeGroups = 0
			for i := 0; i < huffmanPixs; i++ {
				if mapping[huffmanImage[i]] == -1 {
					mapping[huffmanImage[i]] = numHTreeGroups
					numHTreeGroups++
				}
				huffmanImage[i] = uint32(mapping[huffmanImage[i]])
			}
		} else {
			numHTreeGroups = numHTreeGroupsMax
		}
	}

	if br.eos {
		return d.setError(ErrBitstream)
	}

	htreeGroups, err := d.readHuffmanCodesHelper(colorCacheBits, numHTreeGroups, numHTreeGroupsMax, mapping)
	if err != nil {
		return err
	}
	hdr.huffmanImage = huffmanImage
	hdr.numHTreeGroups = numHTreeGroups
	hdr.htreeGroups = htreeGroups
	return nil
}

// readTransform reads one transform header (and its sub-image, when it has
// one) and returns the possibly reduced xsize of the remaining stream.
func (d *Decoder) readTransform(xsize, ysize int) (int, error) {
	br := &d.br
	t := &d.transforms[d.nextTransform]
	kind := transformType(br.readBits(2))

	// Each transform type can only be present once in the stream.
	if d.transformsSeen&(1<<uint(kind)) != 0 {
		return 0, d.setError(ErrBitstream)
	}
	d.transformsSeen |= 1 << uint(kind)

	t.kind = kind
	t.xsize = xsize
	t.ysize = ysize
	t.data = nil
	d.nextTransform++

	switch kind {
	case predictorTransform, crossColorTransform:
		t.bits = int(br.readBits(numTransformBits)) + minTransformBits
		data, err := d.decodeImageStream(subSampleSize(t.xsize, t.bits), subSampleSize(t.ysize, t.bits), false)
		if err != nil {
			return 0, err
		}
		t.data = data
	case colorIndexingTransform:
		numColors := int(br.readBits(8)) + 1
		switch {
		case numColors > 16:
			t.bits = 0
		case numColors > 4:
			t.bits = 1
		case numColors > 2:
			t.bits = 2
		default:
			t.bits = 3
		}
		xsize = subSampleSize(t.xsize, t.bits)
		data, err := d.decodeImageStream(numColors, 1, false)
		if err != nil {
			return 0, err
		}
		t.data = data
		expandColorMap(numColors, t)
	case subtractGreenTransform:
		// no data
	}
	return xsize, nil
}

// decodeImageStream decodes a (sub-)stream: optional transforms (level 0
// only), color cache parameters and Huffman codes, then the pixel data. At
// level 0 it stops after the metadata; for sub-streams it returns the decoded
// pixels.
func (d *Decoder) decodeImageStream(xsize, ysize int, isLevel0 bool) ([]uint32, error) {
	br := &d.br
	hdr := &d.hdr
	transformXsize := xsize
	transformYsize := ysize
	colorCacheBits := 0

	// Read the transforms (level 0 only).
	if isLevel0 {
		for br.readBits(1) != 0 {
			var err error
			transformXsize, err = d.readTransform(transformXsize, transformYsize)
			if err != nil {
				return nil, err
			}
		}
	}

	// Color cache.
	if br.readBits(1) != 0 {
		colorCacheBits = int(br.readBits(4))
		if colorCacheBits < 1 || colorCacheBits > maxCacheBits {
			hdr.clear()
			return nil, d.setError(ErrBitstream)
		}
	}

	// Read the Huffman codes (may recurse for the meta image).
	if err := d.readHuffmanCodes(transformXsize, transformYsize, colorCacheBits, isLevel0); err != nil {
		hdr.clear()
		return nil, d.setError(ErrBitstream)
	}

	if colorCacheBits > 0 {
		hdr.colorCacheSize = 1 << uint(colorCacheBits)
		hdr.colorCache.init(colorCacheBits)
	} else {
		hdr.colorCacheSize = 0
	}
	d.updateDecoder(transformXsize, transformYsize)

	if isLevel0 {
		// level 0 is fully parsed; pixels are decoded later.
		d.state = stateReadHdr
		return nil, nil
	}

	data := make([]uint32, transformXsize*transformYsize)
	if err := d.decodeImageData(data, transformXsize, transformYsize, transformYsize, nil); err != nil {
		hdr.clear()
		return nil, err
	}
	if br.eos {
		hdr.clear()
		return nil, d.setError(ErrBitstream)
	}
	d.lastPixel = 0 // the sub-stream is done, reset for the next one
	hdr.clear()
	return data, nil
}

func getCopyDistance(distanceSymbol int, br *bitReader) int {
	if distanceSymbol < 4 {
		return distanceSymbol + 1
	}
	extraBits := (distanceSymbol - 2) >> 1
	offset := (2 + distanceSymbol&1) << uint(extraBits)
	return offset + int(br.readBits(extraBits)) + 1
}

func getCopyLength(lengthSymbol int, br *bitReader) int {
	// Length and distance prefixes share the same encoding.
	return getCopyDistance(lengthSymbol, br)
}

func planeCodeToDistance(xsize, planeCode int) int {
	if planeCode > len(codeToPlane) {
		return planeCode - len(codeToPlane)
	}
	distCode := int(codeToPlane[planeCode-1])
	yoffset := distCode >> 4
	xoffset := 8 - distCode&0xf
	dist := yoffset*xsize + xoffset
	if dist < 1 {
		// dist < 1 can happen for images narrower than 8 pixels
		dist = 1
	}
	return dist
}

// copyBlock32b copies length pixels from dist pixels back, allowing overlap.
// The short-distance overlapping cases get dedicated pattern loops.
func copyBlock32b(data []uint32, pos, dist, length int) {
	if dist >= length {
		copy(data[pos:pos+length], data[pos-dist:pos-dist+length])
		return
	}
	switch dist {
	case 1:
		v := data[pos-1]
		for i := 0; i < length; i++ {
			data[pos+i] = v
		}
	case 2:
		v0, v1 := data[pos-2], data[pos-1]
		i := 0
		for ; i+1 < length; i += 2 {
			data[pos+i] = v0
			data[pos+i+1] = v1
		}
		if i < length {
			data[pos+i] = v0
		}
	default:
		for i := 0; i < length; i++ {
			data[pos+i] = data[pos-dist+i]
		}
	}
}

// saveState checkpoints the bit reader, the decode position and the color
// cache, so a decode that later runs out of input can roll back here.
func (d *Decoder) saveState(lastPixel int) {
	d.savedBR = d.br
	d.savedLastPixel = lastPixel
	if d.hdr.colorCacheSize > 0 {
		d.hdr.colorCache.copyTo(&d.hdr.savedColorCache)
	}
}

func (d *Decoder) restoreState() {
	d.status = ErrSuspended
	d.br = d.savedBR
	d.lastPixel = d.savedLastPixel
	if d.hdr.colorCacheSize > 0 {
		d.hdr.savedColorCache.copyTo(&d.hdr.colorCache)
	}
}

// decodeImageData is the main decode loop: it emits pixels into data until
// row lastRow is complete, calling processFunc every numARGBCacheRows rows
// and at the end so transforms and output conversion run in step with the
// decoding.
func (d *Decoder) decodeImageData(data []uint32, width, height, lastRow int, processFunc processRowsFunc) error {
	br := &d.br
	hdr := &d.hdr

	row := d.lastPixel / width
	col := d.lastPixel % width
	group := hdr.hTreeGroupForPos(col, row)

	src := d.lastPixel
	lastCached := src
	srcEnd := width * height
	srcLast := width * lastRow

	lenCodeLimit := numLiteralCodes + numLengthCodes
	colorCacheLimit := lenCodeLimit + hdr.colorCacheSize
	var cache *colorCache
	if hdr.colorCacheSize > 0 {
		cache = &hdr.colorCache
	}
	mask := hdr.huffmanMask

	nextSyncRow := 1 << 24
	if d.incremental {
		nextSyncRow = row
	}

decode:
	for src < srcLast {
		if d.incremental && row >= nextSyncRow {
			d.saveState(src)
			nextSyncRow = row + syncEveryNRows
		}
		// Only update when crossing a tile boundary.
		if col&mask == 0 {
			group = hdr.hTreeGroupForPos(col, row)
		}

		literal := false
		if group.isTrivialCode {
			data[src] = group.literalARB
			literal = true
		} else {
			br.fillBitWindow()
			var code int
			if group.usePackedTable {
				code = readPackedSymbols(group, br, &data[src])
				if br.eos {
					break decode
				}
				if code == packedNonLiteralCode {
					literal = true
				}
			} else {
				code = readSymbol(group.htrees[treeGreen], br)
			}
			if br.eos {
				break decode
			}

			if !literal {
				switch {
				case code < numLiteralCodes: // literal
					if group.isTrivialLiteral {
						data[src] = group.literalARB | uint32(code)<<8
					} else {
						redSym := readSymbol(group.htrees[treeRed], br)
						br.fillBitWindow()
						blueSym := readSymbol(group.htrees[treeBlue], br)
						alphaSym := readSymbol(group.htrees[treeAlpha], br)
						if br.eos {
							break decode
						}
						data[src] = uint32(alphaSym)<<24 | uint32(redSym)<<16 |
							uint32(code)<<8 | uint32(blueSym)
					}
					literal = true

				case code < lenCodeLimit: // backward reference
					lengthSym := code - numLiteralCodes
					length := getCopyLength(lengthSym, br)
					distSymbol := readSymbol(group.htrees[treeDist], br)
					br.fillBitWindow()
					distCode := getCopyDistance(distSymbol, br)
					dist := planeCodeToDistance(width, distCode)
					if br.eos {
						break decode
					}
					if src < dist || srcEnd-src < length {
						return d.setError(ErrBitstream)
					}
					copyBlock32b(data, src, dist, length)
					src += length
					col += length
					for col >= width {
						col -= width
						row++
						if row <= lastRow && row%numARGBCacheRows == 0 && processFunc != nil {
							processFunc(d, row)
						}
					}
					if col&mask != 0 {
						group = hdr.hTreeGroupForPos(col, row)
					}
					if cache != nil {
						for ; lastCached < src; lastCached++ {
							cache.insert(data[lastCached])
						}
					}
					continue decode

				case code < colorCacheLimit: // color cache hit
					key := code - lenCodeLimit
					for ; lastCached < src; lastCached++ {
						cache.insert(data[lastCached])
					}
					data[src] = cache.lookup(key)
					literal = true

				default:
					return d.setError(ErrBitstream)
				}
			}
		}

		if literal {
			src++
			col++
			if col >= width {
				col = 0
				row++
				if row <= lastRow && row%numARGBCacheRows == 0 && processFunc != nil {
					processFunc(d, row)
				}
				if cache != nil {
					for ; lastCached < src; lastCached++ {
						cache.insert(data[lastCached])
					}
				}
			}
		}
	}

	if d.incremental && br.eos && src < srcEnd {
		d.restoreState()
		return ErrSuspended
	}
	if !br.eos {
		// Process the remaining rows of the last block. A backward
		// reference may have decoded past the requested row.
		if processFunc != nil {
			if row > lastRow {
				row = lastRow
			}
			processFunc(d, row)
		}
		d.status = nil
		d.lastPixel = src // only update it after the whole row is decoded
		return nil
	}
	// The bitstream ended before the image was complete.
	return d.setError(ErrBitstream)
}
