package vp8l

import "encoding/binary"

// maxNumBitRead is the largest number of bits a single ReadBits call may
// request. Bigger reads are split by the callers.
const maxNumBitRead = 24

// accumBits is the size of the bit accumulator. After fillBitWindow at least
// 32 bits are available for prefetching.
const accumBits = 64

var bitMask = [maxNumBitRead + 1]uint32{
	0,
	0x000001, 0x000003, 0x000007, 0x00000f,
	0x00001f, 0x00003f, 0x00007f, 0x0000ff,
	0x0001ff, 0x0003ff, 0x0007ff, 0x000fff,
	0x001fff, 0x003fff, 0x007fff, 0x00ffff,
	0x01ffff, 0x03ffff, 0x07ffff, 0x0fffff,
	0x1fffff, 0x3fffff, 0x7fffff, 0xffffff,
}

// bitReader reads an LSB-first bitstream out of little-endian bytes through a
// 64-bit look-ahead window. Once eos is set it stays set: all further reads
// return zero. The struct is plain data, so a checkpoint is a struct copy.
type bitReader struct {
	val    uint64 // pre-fetched bits
	buf    []byte
	pos    int // next byte of buf to load
	bitPos int // current bit position within val
	eos    bool
}

func (br *bitReader) init(buf []byte) {
	br.buf = buf
	br.val = 0
	br.bitPos = 0
	br.eos = false

	n := len(buf)
	if n > 8 {
		n = 8
	}
	for i := 0; i < n; i++ {
		br.val |= uint64(buf[i]) << (8 * uint(i))
	}
	br.pos = n
}

// setBuffer swaps in a longer copy of the same stream. The caller guarantees
// buf is an extension of the previous buffer; the read position carries over.
func (br *bitReader) setBuffer(buf []byte) {
	br.buf = buf
	br.eos = br.pos > len(buf) || (br.pos == len(buf) && br.bitPos == accumBits)
}

func (br *bitReader) setEndOfStream() {
	br.eos = true
	br.bitPos = accumBits // all prefetched bits are invalid now
}

func (br *bitReader) isEndOfStream() bool {
	return br.eos || (br.pos == len(br.buf) && br.bitPos > accumBits)
}

// shiftBytes discards consumed whole bytes from the window and tops it up
// from the buffer, one byte at a time.
func (br *bitReader) shiftBytes() {
	for br.bitPos >= 8 && br.pos < len(br.buf) {
		br.val >>= 8
		br.val |= uint64(br.buf[br.pos]) << (accumBits - 8)
		br.pos++
		br.bitPos -= 8
	}
	if br.isEndOfStream() {
		br.setEndOfStream()
	}
}

// fillBitWindow guarantees at least 32 valid bits ahead of bitPos, loading
// four bytes at once when possible.
func (br *bitReader) fillBitWindow() {
	if br.bitPos >= 32 {
		if br.pos+4 <= len(br.buf) {
			br.val >>= 32
			br.val |= uint64(binary.LittleEndian.Uint32(br.buf[br.pos:])) << 32
			br.pos += 4
			br.bitPos -= 32
			return
		}
		br.shiftBytes() // slow path
	}
}

// prefetchBits returns the next 32 bits without consuming them. Only valid
// right after fillBitWindow.
func (br *bitReader) prefetchBits() uint32 {
	return uint32(br.val >> (uint(br.bitPos) & (accumBits - 1)))
}

// setBitPos consumes bits previously returned by prefetchBits.
func (br *bitReader) setBitPos(val int) {
	br.bitPos = val
	br.eos = br.isEndOfStream()
}

// readBits reads n bits (n <= maxNumBitRead) from the stream. Reading past
// the end sets eos and returns 0.
func (br *bitReader) readBits(n int) uint32 {
	if !br.eos && n <= maxNumBitRead {
		val := br.prefetchBits() & bitMask[n]
		br.bitPos += n
		br.shiftBytes()
		return val
	}
	br.setEndOfStream()
	return 0
}
