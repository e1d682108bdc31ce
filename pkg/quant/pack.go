package quant

import "fmt"

// PackedSize returns the number of bytes needed for n codes of the given
// width.
func PackedSize(n, bits int) int {
	return (n*bits + 7) / 8
}

// SampleIndex is the position of a sample inside a packed search-mode row.
// Channels vary fastest, then polarizations, then bins.
func SampleIndex(bin, pol, ch, nrPols, nrChan int) int {
	return bin*nrPols*nrChan + pol*nrChan + ch
}

// ShiftFactor returns the multiplier placing a code at bitOffset within its
// byte. The first sample of a byte occupies the most significant bits.
func ShiftFactor(bits, bitOffset int) (int, error) {
	switch bits {
	case 8:
		if bitOffset == 0 {
			return 1, nil
		}
	case 4:
		switch bitOffset {
		case 0:
			return 16, nil
		case 4:
			return 1, nil
		}
	case 2:
		switch bitOffset {
		case 0:
			return 64, nil
		case 2:
			return 16, nil
		case 4:
			return 4, nil
		case 6:
			return 1, nil
		}
	case 1:
		if bitOffset >= 0 && bitOffset < 8 {
			return 1 << (7 - bitOffset), nil
		}
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBits, bits)
	}
	return 0, fmt.Errorf("%w: %d-bit code at bit %d", ErrShift, bits, bitOffset)
}

// Pack adds code for sample index into dst. dst must be zeroed before the
// first call for a row. 16-bit codes are stored most significant byte first.
func Pack(dst []byte, index, code, bits int) error {
	if bits == 16 {
		if code < 0 || code > 0xffff {
			return fmt.Errorf("%w: code %d for 16 bits", ErrPackOverflow, code)
		}
		if 2*index+1 >= len(dst) {
			return fmt.Errorf("quant: sample %d outside %d bytes", index, len(dst))
		}
		dst[2*index] = byte(code >> 8)
		dst[2*index+1] = byte(code)
		return nil
	}
	bit := index * bits
	pos, off := bit/8, bit%8
	factor, err := ShiftFactor(bits, off)
	if err != nil {
		return err
	}
	if pos >= len(dst) {
		return fmt.Errorf("quant: sample %d outside %d bytes", index, len(dst))
	}
	v := code*factor + int(dst[pos])
	if code < 0 || v > 255 {
		return fmt.Errorf("%w: code %d at sample %d", ErrPackOverflow, code, index)
	}
	dst[pos] = byte(v)
	return nil
}

// Unpack extracts the code for sample index from src.
func Unpack(src []byte, index, bits int) (int, error) {
	if bits == 16 {
		if 2*index+1 >= len(src) {
			return 0, fmt.Errorf("quant: sample %d outside %d bytes", index, len(src))
		}
		return int(src[2*index])<<8 | int(src[2*index+1]), nil
	}
	bit := index * bits
	pos, off := bit/8, bit%8
	factor, err := ShiftFactor(bits, off)
	if err != nil {
		return 0, err
	}
	if pos >= len(src) {
		return 0, fmt.Errorf("quant: sample %d outside %d bytes", index, len(src))
	}
	mask := 1<<bits - 1
	return int(src[pos]) / factor & mask, nil
}
