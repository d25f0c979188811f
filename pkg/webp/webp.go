// Package webp reads WebP files holding lossless (VP8L) bitstreams and
// exposes them through the standard image interfaces.
package webp

import (
	"image"
	"image/color"
	"io"

	"github.com/Nor-s/thorvg/pkg/logging"
	"github.com/Nor-s/thorvg/pkg/webp/vp8l"
)

func init() {
	image.RegisterFormat("webp", "RIFF????WEBP", Decode, DecodeConfig)
}

// DecodeConfig returns the dimensions and color model of a WebP image
// without decoding the pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	f, err := ParseFeatures(data)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      f.Width,
		Height:     f.Height,
	}, nil
}

// Decode decodes a WebP image. Lossy (VP8) and animated files are rejected
// with ErrUnsupported.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory file.
func DecodeBytes(data []byte) (image.Image, error) {
	out := &vp8l.OutputBuffer{Colorspace: vp8l.ModeRGBA}
	if err := DecodeInto(data, out); err != nil {
		return nil, err
	}
	return &image.NRGBA{
		Pix:    out.Pixels,
		Stride: out.Stride,
		Rect:   image.Rect(0, 0, out.Width, out.Height),
	}, nil
}

// DecodeInto decodes a WebP file into a caller-prepared output buffer,
// honoring its colorspace, cropping and scaling options.
func DecodeInto(data []byte, out *vp8l.OutputBuffer) error {
	f, err := ParseFeatures(data)
	if err != nil {
		return err
	}
	if f.HasAnimation {
		return ErrUnsupported
	}
	if f.Format != FormatLossless {
		return ErrUnsupported
	}

	d := vp8l.NewDecoder()
	if err := d.DecodeHeader(f.bitstream); err != nil {
		return err
	}
	if err := d.Decode(out); err != nil {
		return err
	}
	logging.Debug().
		Int("width", out.Width).
		Int("height", out.Height).
		Bool("alpha", d.HasAlpha()).
		Msg("decoded lossless bitstream")
	return nil
}
