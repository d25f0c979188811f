package vp8l

import "errors"

// Decoder status values. The first hard failure recorded on a decoder wins;
// ErrSuspended is not a failure, it only reports that more input is needed.
var (
	ErrBitstream     = errors.New("vp8l: bitstream error")
	ErrOutOfMemory   = errors.New("vp8l: out of memory")
	ErrInvalidParam  = errors.New("vp8l: invalid parameter")
	ErrSuspended     = errors.New("vp8l: suspended, more input needed")
	ErrUnsupported   = errors.New("vp8l: unsupported feature")
	ErrNotEnoughData = errors.New("vp8l: not enough data")
)

// setError records err as the decoder status unless an earlier hard error is
// already present. A suspended decoder may still fail later, so ErrSuspended
// can be overwritten.
func (d *Decoder) setError(err error) error {
	if d.status == nil || errors.Is(d.status, ErrSuspended) {
		d.status = err
	}
	return d.status
}
