package vp8l

// Test helpers for composing lossless bitstreams by hand. Bits are packed
// LSB-first into little-endian bytes, mirroring what an encoder emits.

type bitWriter struct {
	bits uint64
	n    uint
	buf  []byte
}

func (w *bitWriter) writeBits(v uint32, n uint) {
	w.bits |= uint64(v) << w.n
	w.n += n
	for w.n >= 8 {
		w.buf = append(w.buf, byte(w.bits))
		w.bits >>= 8
		w.n -= 8
	}
}

func (w *bitWriter) bytes() []byte {
	b := w.buf
	if w.n > 0 {
		b = append(b, byte(w.bits))
	}
	return b
}

func writeStreamHeader(w *bitWriter, width, height int, alpha bool) {
	w.writeBits(magicByte, 8)
	w.writeBits(uint32(width-1), imageSizeBits)
	w.writeBits(uint32(height-1), imageSizeBits)
	if alpha {
		w.writeBits(1, 1)
	} else {
		w.writeBits(0, 1)
	}
	w.writeBits(version, versionBits)
}

// writeSingleSymbolTree emits a simple code with one 8-bit symbol; decoding
// it consumes no bits.
func writeSingleSymbolTree(w *bitWriter, symbol uint32) {
	w.writeBits(1, 1) // simple code
	w.writeBits(0, 1) // one symbol
	w.writeBits(1, 1) // spelled with 8 bits
	w.writeBits(symbol, 8)
}

// writeTwoSymbolTree emits a simple code with two 8-bit symbols; the smaller
// symbol decodes from bit 0, the larger from bit 1.
func writeTwoSymbolTree(w *bitWriter, s0, s1 uint32) {
	w.writeBits(1, 1) // simple code
	w.writeBits(1, 1) // two symbols
	w.writeBits(1, 1) // first symbol spelled with 8 bits
	w.writeBits(s0, 8)
	w.writeBits(s1, 8)
}

// splitZeroRun splits a run of zero code lengths into chunks expressible
// with the repeat codes 17 (3..10) and 18 (11..138).
func splitZeroRun(n int) []int {
	var runs []int
	for n > 0 {
		r := n
		if r > 138 {
			r = 138
			if n-r < 3 {
				r = n - 3
			}
		}
		runs = append(runs, r)
		n -= r
	}
	return runs
}

func writeZeroRuns(w *bitWriter, runs []int) {
	for _, r := range runs {
		if r <= 10 {
			w.writeBits(1, 2) // code 17
			w.writeBits(uint32(r-3), 3)
		} else {
			w.writeBits(3, 2) // code 18
			w.writeBits(uint32(r-11), 7)
		}
	}
}

// writeTwoSymbolTreeLong assigns 1-bit codes to s0 and s1 (s0 < s1) through
// the code-length-coded form, for symbols beyond the 8-bit simple-code range
// (length prefixes, color cache codes).
func writeTwoSymbolTreeLong(w *bitWriter, s0, s1 int) {
	w.writeBits(0, 1) // code-length-coded
	w.writeBits(0, 4) // four code length codes: 17, 18, 0, 1
	w.writeBits(2, 3) // code 17 has length 2
	w.writeBits(2, 3) // code 18 has length 2
	w.writeBits(0, 3) // code 0 is unused
	w.writeBits(1, 3) // code 1 has length 1

	runs0 := splitZeroRun(s0)
	runs1 := splitZeroRun(s1 - s0 - 1)
	count := len(runs0) + len(runs1) + 2

	w.writeBits(1, 1)               // bound the number of length codes
	w.writeBits(3, 3)               // the bound field is 8 bits wide
	w.writeBits(uint32(count-2), 8) // read exactly count length codes

	writeZeroRuns(w, runs0)
	w.writeBits(0, 1) // symbol s0 has length 1
	writeZeroRuns(w, runs1)
	w.writeBits(0, 1) // symbol s1 has length 1
}

// writeSingleSymbolGroup emits the five trees of an htree group, each with a
// single symbol, making every pixel decode without consuming data bits.
func writeSingleSymbolGroup(w *bitWriter, green, red, blue, alpha, dist uint32) {
	writeSingleSymbolTree(w, green)
	writeSingleSymbolTree(w, red)
	writeSingleSymbolTree(w, blue)
	writeSingleSymbolTree(w, alpha)
	writeSingleSymbolTree(w, dist)
}
