package vp8l

// OutputBuffer describes where and how decoded pixels are delivered. Zero
// values get sensible defaults: a nil Pixels (or nil planes for YUV modes)
// is allocated by the decoder, a zero Stride is derived from the width.
type OutputBuffer struct {
	Colorspace Colorspace

	// Interleaved storage for the RGB-family modes.
	Pixels []uint8
	Stride int

	// Planar storage for ModeYUV / ModeYUVA.
	Y, U, V, A                 []uint8
	YStride, UVStride, AStride int

	// Cropping window, in source coordinates. Applied before scaling.
	UseCropping                              bool
	CropLeft, CropTop, CropWidth, CropHeight int

	// Scaling of the (possibly cropped) window. A zero width or height is
	// derived from the other, preserving the aspect ratio.
	UseScaling                bool
	ScaledWidth, ScaledHeight int

	// Final output dimensions, set by the decoder.
	Width, Height int
}

// decIO carries the crop/scale bookkeeping between the decode loop and the
// emit stage: the source window and the per-batch strip inside it.
type decIO struct {
	width, height int // full source dimensions

	useCropping                              bool
	cropLeft, cropRight, cropTop, cropBottom int

	useScaling                bool
	scaledWidth, scaledHeight int

	// Current strip, set by setCropWindow.
	mbY, mbW, mbH int
}

// initFromOptions validates the crop/scale options against the source
// dimensions and locks in the final output size.
func (io *decIO) initFromOptions(out *OutputBuffer, srcWidth, srcHeight int) error {
	io.width = srcWidth
	io.height = srcHeight

	io.useCropping = out.UseCropping
	io.cropLeft, io.cropTop = 0, 0
	io.cropRight, io.cropBottom = srcWidth, srcHeight
	if io.useCropping {
		x, y := out.CropLeft, out.CropTop
		w, h := out.CropWidth, out.CropHeight
		if !IsRGBMode(out.Colorspace) {
			// Snap to even positions so the chroma subsampling stays aligned.
			x &^= 1
			y &^= 1
		}
		if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > srcWidth || y+h > srcHeight {
			return ErrInvalidParam
		}
		io.cropLeft, io.cropTop = x, y
		io.cropRight, io.cropBottom = x+w, y+h
	}
	w := io.cropRight - io.cropLeft
	h := io.cropBottom - io.cropTop

	io.useScaling = out.UseScaling
	if io.useScaling {
		sw, sh := out.ScaledWidth, out.ScaledHeight
		// Derive the unspecified dimension proportionally.
		if sw == 0 && h > 0 {
			sw = (w*sh + h - 1) / h
		}
		if sh == 0 && w > 0 {
			sh = (h*sw + w - 1) / w
		}
		if sw <= 0 || sh <= 0 {
			return ErrInvalidParam
		}
		io.scaledWidth, io.scaledHeight = sw, sh
		out.ScaledWidth, out.ScaledHeight = sw, sh
		w, h = sw, sh
	}

	out.Width, out.Height = w, h
	return nil
}

// allocate provides default storage and strides for whatever the caller
// left unset, and checks user-provided buffers for sufficient size.
func (out *OutputBuffer) allocate() error {
	w, h := out.Width, out.Height
	if IsRGBMode(out.Colorspace) {
		if out.Stride == 0 {
			out.Stride = w * out.Colorspace.BytesPerPixel()
		}
		if out.Stride < w*out.Colorspace.BytesPerPixel() {
			return ErrInvalidParam
		}
		need := out.Stride * h
		if out.Pixels == nil {
			out.Pixels = make([]uint8, need)
		} else if len(out.Pixels) < need {
			return ErrInvalidParam
		}
		return nil
	}

	// YUV 4:2:0 planes.
	uvWidth := (w + 1) / 2
	uvHeight := (h + 1) / 2
	if out.YStride == 0 {
		out.YStride = w
	}
	if out.UVStride == 0 {
		out.UVStride = uvWidth
	}
	if out.YStride < w || out.UVStride < uvWidth {
		return ErrInvalidParam
	}
	if out.Y == nil {
		out.Y = make([]uint8, out.YStride*h)
	}
	if out.U == nil {
		out.U = make([]uint8, out.UVStride*uvHeight)
	}
	if out.V == nil {
		out.V = make([]uint8, out.UVStride*uvHeight)
	}
	if len(out.Y) < out.YStride*h || len(out.U) < out.UVStride*uvHeight ||
		len(out.V) < out.UVStride*uvHeight {
		return ErrInvalidParam
	}
	if out.Colorspace == ModeYUVA {
		if out.AStride == 0 {
			out.AStride = w
		}
		if out.AStride < w {
			return ErrInvalidParam
		}
		if out.A == nil {
			out.A = make([]uint8, out.AStride*h)
		} else if len(out.A) < out.AStride*h {
			return ErrInvalidParam
		}
	}
	return nil
}
