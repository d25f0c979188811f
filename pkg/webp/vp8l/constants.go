package vp8l

// Bitstream layout constants. The lossless format packs bits LSB-first into
// little-endian bytes; all sizes below are in bits unless noted.
const (
	// Signature byte that opens every lossless stream.
	magicByte = 0x2f

	// Only version 0 streams exist.
	versionBits = 3
	version     = 0

	imageSizeBits = 14

	frameHeaderSize = 5
)

// Symbol alphabet sizes.
const (
	numLiteralCodes  = 256
	numLengthCodes   = 24
	numDistanceCodes = 40

	numCodeLengthCodes = 19

	maxAllowedCodeLength = 15
	defaultCodeLength    = 8
	codeLengthLiterals   = 16
	codeLengthRepeatCode = 16
)

// Huffman tree roles inside an htree group.
const (
	treeGreen = iota
	treeRed
	treeBlue
	treeAlpha
	treeDist
	huffmanCodesPerMetaCode
)

// Sub-resolution image parameters.
const (
	minTransformBits = 2
	numTransformBits = 3
	minHuffmanBits   = 2
	numHuffmanBits   = 3
)

const (
	maxCacheBits = 11

	numARGBCacheRows = 16

	argbBlack = 0xff000000

	maxNumHTreeGroups = 0x10000
)

// Code-length codes appear in this fixed order in the stream.
var codeLengthCodeOrder = [numCodeLengthCodes]uint8{
	17, 18, 0, 1, 2, 3, 4, 5, 16, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

var codeLengthExtraBits = [3]uint8{2, 3, 7}
var codeLengthRepeatOffsets = [3]uint8{3, 3, 11}

// Distance codes below 120 address a 2D neighborhood around the current
// pixel; each entry packs (xoffset+8, yoffset) as (y << 4) | x.
var codeToPlane = [120]uint8{
	0x18, 0x07, 0x17, 0x19, 0x28, 0x06, 0x27, 0x29, 0x16, 0x1a,
	0x26, 0x2a, 0x38, 0x05, 0x37, 0x39, 0x15, 0x1b, 0x36, 0x3a,
	0x25, 0x2b, 0x48, 0x04, 0x47, 0x49, 0x14, 0x1c, 0x35, 0x3b,
	0x46, 0x4a, 0x24, 0x2c, 0x58, 0x45, 0x4b, 0x34, 0x3c, 0x03,
	0x57, 0x59, 0x13, 0x1d, 0x56, 0x5a, 0x23, 0x2d, 0x44, 0x4c,
	0x55, 0x5b, 0x33, 0x3d, 0x68, 0x02, 0x67, 0x69, 0x12, 0x1e,
	0x66, 0x6a, 0x22, 0x2e, 0x54, 0x5c, 0x43, 0x4d, 0x65, 0x6b,
	0x32, 0x3e, 0x78, 0x01, 0x77, 0x79, 0x53, 0x5d, 0x11, 0x1f,
	0x64, 0x6c, 0x42, 0x4e, 0x76, 0x7a, 0x21, 0x2f, 0x75, 0x7b,
	0x31, 0x3f, 0x63, 0x6d, 0x52, 0x5e, 0x00, 0x74, 0x7c, 0x41,
	0x4f, 0x10, 0x20, 0x62, 0x6e, 0x30, 0x73, 0x7d, 0x51, 0x5f,
	0x40, 0x72, 0x7e, 0x61, 0x6f, 0x50, 0x71, 0x7f, 0x60, 0x70,
}
