package vp8l

// Two-level canonical Huffman lookup tables: an 8-bit root table whose
// entries either resolve a symbol directly or point at a second-level table
// holding the remaining bits of longer codes.
const (
	huffmanTableBits = 8
	huffmanTableMask = (1 << huffmanTableBits) - 1

	// Root table size used while decoding the code-length code itself.
	lengthsTableBits = 7
	lengthsTableMask = (1 << lengthsTableBits) - 1

	huffmanPackedBits      = 6
	huffmanPackedTableSize = 1 << huffmanPackedBits

	bitsSpecialMarker    = 0x100 // large enough, and a bit-mask
	packedNonLiteralCode = 0     // must be < numLiteralCodes
)

type huffmanCode struct {
	bits  uint8  // number of bits used for this symbol
	value uint16 // symbol value or table offset
}

// huffmanCode32 is a packed-table entry: for literals, value holds the fully
// assembled BGRA pixel and bits the total bits consumed; otherwise bits
// carries bitsSpecialMarker and value the green-channel code.
type huffmanCode32 struct {
	bits  int
	value uint32
}

var kAlphabetSize = [huffmanCodesPerMetaCode]uint16{
	numLiteralCodes + numLengthCodes,
	numLiteralCodes,
	numLiteralCodes,
	numLiteralCodes,
	numDistanceCodes,
}

// literalMap flags the trees whose triviality makes a literal trivial
// (red, blue, alpha).
var literalMap = [huffmanCodesPerMetaCode]uint8{0, 1, 1, 1, 0}

// Memory needed for the lookup tables of one htree group. Red, blue, alpha
// and distance alphabets have constant sizes (256, 256, 256, 40) and their
// worst-case table sizes are 630 and 410. The green alphabet depends on the
// color cache size: 256 + 24 + color_cache_size, for cache bits 0..11.
// Worst cases computed for an 8-bit first-level lookup with enough.c.
const fixedTableSize = 630*3 + 410

var kTableSize = [12]int{
	fixedTableSize + 654,
	fixedTableSize + 656,
	fixedTableSize + 658,
	fixedTableSize + 662,
	fixedTableSize + 670,
	fixedTableSize + 686,
	fixedTableSize + 718,
	fixedTableSize + 782,
	fixedTableSize + 912,
	fixedTableSize + 1168,
	fixedTableSize + 1680,
	fixedTableSize + 2704,
}

// huffmanTables is a bump arena holding every lookup table of an image: one
// contiguous slab carved into per-tree segments as codes are read.
type huffmanTables struct {
	slab []huffmanCode
	used int
}

func (t *huffmanTables) allocate(size int) {
	t.slab = make([]huffmanCode, size)
	t.used = 0
}

// carve reserves the next size entries of the slab. Returns nil when the
// arena is exhausted, which a valid stream cannot trigger.
func (t *huffmanTables) carve(size int) []huffmanCode {
	if t.used+size > len(t.slab) {
		return nil
	}
	seg := t.slab[t.used : t.used+size : t.used+size]
	t.used += size
	return seg
}

func (t *huffmanTables) release() {
	t.slab = nil
	t.used = 0
}

// hTreeGroup bundles the five Huffman trees in use over one tile of the
// image, plus the fast paths derived from their shapes.
type hTreeGroup struct {
	htrees [huffmanCodesPerMetaCode][]huffmanCode

	// True if the red, blue and alpha trees are single-symbol.
	isTrivialLiteral bool
	// (alpha << 24) | (red << 16) | blue, valid when isTrivialLiteral.
	literalARB uint32
	// True if is_trivial_literal and the green tree is single-symbol too:
	// every literal decodes to the same pixel without reading any bit.
	isTrivialCode bool

	usePackedTable bool
	packedTable    [huffmanPackedTableSize]huffmanCode32
}

func replicateValue(table []huffmanCode, step, end int, code huffmanCode) {
	for {
		end -= step
		table[end] = code
		if end <= 0 {
			break
		}
	}
}

// getNextKey returns the next bit-reversed key of the given length after key.
func getNextKey(key, length int) int {
	step := 1 << uint(length-1)
	for key&step != 0 {
		step >>= 1
	}
	if step == 0 {
		return key
	}
	return key&(step-1) + step
}

// nextTableBitSize returns the table width of the next second-level table,
// wide enough for all remaining codes starting at the given length.
func nextTableBitSize(count []int, length, rootBits int) int {
	left := 1 << uint(length-rootBits)
	for length < maxAllowedCodeLength {
		left -= count[length]
		if left <= 0 {
			break
		}
		length++
		left <<= 1
	}
	return length - rootBits
}

// buildHuffmanTable builds the canonical lookup tables for the given code
// lengths into rootTable and returns the total number of entries used, or 0
// if the lengths do not describe a valid (complete) code. A nil rootTable
// runs the same validation and sizing without writing anything.
func buildHuffmanTable(rootTable []huffmanCode, rootBits int, codeLengths []int) int {
	var count [maxAllowedCodeLength + 1]int
	var offset [maxAllowedCodeLength + 1]int
	totalSize := 1 << uint(rootBits)

	for _, l := range codeLengths {
		if l > maxAllowedCodeLength {
			return 0
		}
		count[l]++
	}
	if count[0] == len(codeLengths) {
		return 0 // no symbols at all
	}

	offset[1] = 0
	for l := 1; l < maxAllowedCodeLength; l++ {
		if count[l] > 1<<uint(l) {
			return 0
		}
		offset[l+1] = offset[l] + count[l]
	}

	// Sort symbols by code length, then by symbol order within each length.
	var sorted []uint16
	if rootTable != nil {
		sorted = make([]uint16, len(codeLengths))
	}
	for symbol, l := range codeLengths {
		if l > 0 {
			if sorted != nil {
				sorted[offset[l]] = uint16(symbol)
			}
			offset[l]++
		}
	}

	// Single-symbol code: zero-length entries that decode without consuming
	// any bit.
	if offset[maxAllowedCodeLength] == 1 {
		if rootTable != nil {
			replicateValue(rootTable, 1, totalSize, huffmanCode{bits: 0, value: sorted[0]})
		}
		return totalSize
	}

	var (
		low       = -1 // low bits of the current root entry (unset)
		mask      = totalSize - 1
		key       = 0 // reversed prefix code
		numNodes  = 1
		numOpen   = 1 // open branches on the current tree level
		tableBits = rootBits
		tableSize = 1 << uint(tableBits)
		tableOff  = 0 // current table start, relative to rootTable
		symbol    = 0
	)

	// Fill in the root table.
	for length, step := 1, 2; length <= rootBits; length, step = length+1, step<<1 {
		numOpen <<= 1
		numNodes += numOpen
		numOpen -= count[length]
		if numOpen < 0 {
			return 0
		}
		if rootTable == nil {
			continue
		}
		for ; count[length] > 0; count[length]-- {
			code := huffmanCode{bits: uint8(length), value: sorted[symbol]}
			symbol++
			replicateValue(rootTable[key:], step, tableSize, code)
			key = getNextKey(key, length)
		}
	}

	// Fill in the second-level tables and add pointers to them.
	for length, step := rootBits+1, 2; length <= maxAllowedCodeLength; length, step = length+1, step<<1 {
		numOpen <<= 1
		numNodes += numOpen
		numOpen -= count[length]
		if numOpen < 0 {
			return 0
		}
		for ; count[length] > 0; count[length]-- {
			if key&mask != low {
				if rootTable != nil {
					tableOff += tableSize
				}
				tableBits = nextTableBitSize(count[:], length, rootBits)
				tableSize = 1 << uint(tableBits)
				totalSize += tableSize
				low = key & mask
				if rootTable != nil {
					rootTable[low] = huffmanCode{
						bits:  uint8(tableBits + rootBits),
						value: uint16(tableOff - low),
					}
				}
			}
			if rootTable != nil {
				code := huffmanCode{bits: uint8(length - rootBits), value: sorted[symbol]}
				symbol++
				replicateValue(rootTable[tableOff+key>>uint(rootBits):], step, tableSize, code)
			}
			key = getNextKey(key, length)
		}
	}

	// The tree must be full and must not overflow.
	if numNodes != 2*offset[maxAllowedCodeLength]-1 {
		return 0
	}
	return totalSize
}

// readSymbol decodes the next symbol using table. fillBitWindow must be
// called at minimum every second call, to keep enough bits pre-fetched.
func readSymbol(table []huffmanCode, br *bitReader) int {
	val := br.prefetchBits()
	idx := int(val & huffmanTableMask)
	entry := table[idx]
	nbits := int(entry.bits) - huffmanTableBits
	if nbits > 0 {
		br.setBitPos(br.bitPos + huffmanTableBits)
		val = br.prefetchBits()
		idx += int(entry.value) + int(val&uint32(1<<uint(nbits)-1))
		entry = table[idx]
	}
	br.setBitPos(br.bitPos + int(entry.bits))
	return int(entry.value)
}

// readPackedSymbols reads a whole literal pixel in one lookup when the
// packed table applies; non-literal green codes fall through to the caller.
func readPackedSymbols(group *hTreeGroup, br *bitReader, dst *uint32) int {
	val := br.prefetchBits() & (huffmanPackedTableSize - 1)
	code := group.packedTable[val]
	if code.bits < bitsSpecialMarker {
		br.setBitPos(br.bitPos + code.bits)
		*dst = code.value
		return packedNonLiteralCode
	}
	br.setBitPos(br.bitPos + code.bits - bitsSpecialMarker)
	return int(code.value)
}

func accumulateHCode(hcode huffmanCode, shift uint, huff *huffmanCode32) uint {
	huff.bits += int(hcode.bits)
	huff.value |= uint32(hcode.value) << shift
	return uint(hcode.bits)
}

func buildPackedTable(group *hTreeGroup) {
	for code := uint(0); code < huffmanPackedTableSize; code++ {
		bits := code
		huff := &group.packedTable[bits]
		hcode := group.htrees[treeGreen][bits]
		if hcode.value >= numLiteralCodes {
			huff.bits = int(hcode.bits) + bitsSpecialMarker
			huff.value = uint32(hcode.value)
		} else {
			huff.bits = 0
			huff.value = 0
			bits >>= accumulateHCode(hcode, 8, huff)
			bits >>= accumulateHCode(group.htrees[treeRed][bits], 16, huff)
			bits >>= accumulateHCode(group.htrees[treeBlue][bits], 0, huff)
			bits >>= accumulateHCode(group.htrees[treeAlpha][bits], 24, huff)
		}
	}
}
