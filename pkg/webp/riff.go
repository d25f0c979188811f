package webp

import (
	"encoding/binary"
	"errors"

	"github.com/Nor-s/thorvg/pkg/webp/vp8l"
)

const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
	vp8xPayloadSize = 10
)

var (
	ErrNotWebP     = errors.New("webp: not a WebP file")
	ErrTruncated   = errors.New("webp: truncated data")
	ErrUnsupported = errors.New("webp: unsupported feature")
)

// Format identifies the bitstream carried by the container.
type Format int

const (
	FormatUndefined Format = iota
	FormatLossy
	FormatLossless
)

// Features describes a WebP file: the canvas geometry and the chunks found
// while walking the container.
type Features struct {
	Width    int
	Height   int
	HasAlpha bool
	Format   Format

	HasAnimation bool
	HasICCP      bool
	HasEXIF      bool
	HasXMP       bool

	bitstream []byte // payload of the VP8L chunk
}

// VP8X flag bits.
const (
	flagICCP      = 1 << 5
	flagAlpha     = 1 << 4
	flagEXIF      = 1 << 3
	flagXMP       = 1 << 2
	flagAnimation = 1 << 1
)

func get24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

// ParseFeatures walks the RIFF container (or a bare lossless stream) and
// collects the file features without decoding any pixels.
func ParseFeatures(data []byte) (*Features, error) {
	// A bare lossless bitstream, without RIFF wrapping, is accepted too.
	if len(data) >= 1 && data[0] != 'R' {
		hdr, err := vp8l.GetInfo(data)
		if err != nil {
			return nil, ErrNotWebP
		}
		return &Features{
			Width:     hdr.Width,
			Height:    hdr.Height,
			HasAlpha:  hdr.HasAlpha,
			Format:    FormatLossless,
			bitstream: data,
		}, nil
	}

	if len(data) < riffHeaderSize {
		return nil, ErrTruncated
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil, ErrNotWebP
	}
	riffSize := int(binary.LittleEndian.Uint32(data[4:8]))
	if riffSize < 4 {
		return nil, ErrNotWebP
	}
	if end := chunkHeaderSize + riffSize; end < len(data) {
		data = data[:end] // trailing garbage is ignored
	}

	f := &Features{}
	off := riffHeaderSize
	for off+chunkHeaderSize <= len(data) {
		tag := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		payloadOff := off + chunkHeaderSize
		if size < 0 || size > len(data)-payloadOff {
			return nil, ErrTruncated
		}
		payload := data[payloadOff : payloadOff+size]

		switch tag {
		case "VP8X":
			if size < vp8xPayloadSize {
				return nil, ErrTruncated
			}
			flags := payload[0]
			f.HasICCP = flags&flagICCP != 0
			f.HasAlpha = flags&flagAlpha != 0
			f.HasEXIF = flags&flagEXIF != 0
			f.HasXMP = flags&flagXMP != 0
			f.HasAnimation = flags&flagAnimation != 0
			f.Width = 1 + get24(payload[4:])
			f.Height = 1 + get24(payload[7:])
		case "VP8L":
			if f.Format == FormatUndefined {
				hdr, err := vp8l.GetInfo(payload)
				if err != nil {
					return nil, err
				}
				f.Format = FormatLossless
				f.bitstream = payload
				if f.Width == 0 {
					f.Width, f.Height = hdr.Width, hdr.Height
				}
				f.HasAlpha = f.HasAlpha || hdr.HasAlpha
			}
		case "VP8 ":
			if f.Format == FormatUndefined {
				f.Format = FormatLossy
			}
		case "ANIM", "ANMF":
			f.HasAnimation = true
		}

		// Chunks are padded to even sizes.
		off = payloadOff + size + size&1
	}

	if f.Format == FormatUndefined {
		return nil, ErrNotWebP
	}
	return f, nil
}
