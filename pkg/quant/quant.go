// Package quant converts real-valued samples to fixed-width integer codes
// with a scale and offset, and packs sub-byte codes into bytes.
//
// A sample is recovered as scale*code + offset.
package quant

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnsupportedBits = errors.New("quant: unsupported bit width")
	ErrPackOverflow    = errors.New("quant: packed value exceeds byte")
	ErrShift           = errors.New("quant: bit offset not on a code boundary")
)

// FoldMaxCode is the largest code stored for 16-bit folded data. Codes are
// kept non-negative so they fit a signed 16-bit column.
const FoldMaxCode = 32767

// Float covers the sample element types accepted by the quantizer.
type Float interface {
	~float32 | ~float64
}

// MaxCode returns the largest code for an unsigned bits-wide integer.
func MaxCode(bits int) (int, error) {
	switch bits {
	case 1, 2, 4, 8, 16:
		return 1<<bits - 1, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBits, bits)
	}
}

// ScaleOffset chooses the scale and offset mapping samples onto
// [0, maxCode]. When every sample is equal the scale is 1 and all codes
// become 0. Non-finite samples are ignored; an empty or all non-finite input
// yields (1, 0).
func ScaleOffset[T Float](samples []T, maxCode int) (scale, offset float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		v := float64(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo > hi {
		return 1, 0
	}
	offset = lo
	scale = (hi - lo) / float64(maxCode)
	if scale == 0 {
		scale = 1
	}
	return scale, offset
}

// Quantize maps x onto the nearest code in [0, maxCode]. Non-finite input
// maps to 0.
func Quantize(x, scale, offset float64, maxCode int) int {
	if math.IsNaN(x) || math.IsInf(x, 0) || scale == 0 {
		return 0
	}
	c := math.Round((x - offset) / scale)
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > float64(maxCode):
		return maxCode
	default:
		return int(c)
	}
}

// Dequantize returns scale*code + offset.
func Dequantize(code int, scale, offset float64) float64 {
	return scale*float64(code) + offset
}

// Finite reports whether both scale and offset are usable.
func Finite(scale, offset float64) bool {
	return !math.IsNaN(scale) && !math.IsInf(scale, 0) && !math.IsNaN(offset) && !math.IsInf(offset, 0)
}

// Block is one quantized block of samples with its shared parameters.
type Block struct {
	Scale  float64
	Offset float64
	Codes  []int
}

// QuantizeBlock computes the parameters for samples and quantizes them.
func QuantizeBlock[T Float](samples []T, maxCode int) Block {
	scale, offset := ScaleOffset(samples, maxCode)
	b := Block{Scale: scale, Offset: offset, Codes: make([]int, len(samples))}
	for i, s := range samples {
		b.Codes[i] = Quantize(float64(s), scale, offset, maxCode)
	}
	return b
}

// Values dequantizes the block into dst, which must hold len(b.Codes).
func (b Block) Values(dst []float64) {
	for i, c := range b.Codes {
		dst[i] = Dequantize(c, b.Scale, b.Offset)
	}
}
