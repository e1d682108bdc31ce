package psrfits

import (
	"fmt"

	"github.com/samcharles93/psrio/pkg/quant"
	"github.com/samcharles93/psrio/pkg/table"
)

// WritePulse stores the profile of one (subint, pol, channel). Folded data
// must be written as a whole pulse starting at bin 0; receiver models accept
// a value or a value and its error.
func (f *File) WritePulse(sub, pol, ch, binStart int, samples []float64) error {
	if f.d == nil {
		return fmt.Errorf("psrfits: file is closed")
	}
	d := f.d
	if err := d.checkIndex(sub, pol, ch); err != nil {
		return err
	}
	switch s := d.Shape().(type) {
	case ReceiverShape:
		return f.writeReceiver(s, sub, pol, ch, binStart, samples)
	case SearchShape:
		return fmt.Errorf("%w: search-mode data is written one subintegration at a time", ErrShape)
	}
	if binStart != 0 || len(samples) != d.NrBins {
		return fmt.Errorf("%w: got %d samples from bin %d, want %d from bin 0",
			ErrPartialPulse, len(samples), binStart, d.NrBins)
	}
	if err := f.subint(); err != nil {
		return err
	}

	block := quant.QuantizeBlock(samples, quant.FoldMaxCode)
	scale, offset := f.trapNonFinite(block.Scale, block.Offset)
	codes := make([]float64, len(block.Codes))
	for i, c := range block.Codes {
		codes[i] = float64(c)
	}

	cols, err := f.cols4("DATA", "DAT_SCL", "DAT_OFFS", "DAT_WTS")
	if err != nil {
		return err
	}
	first := pol*d.NrBins*d.NrFreqChan + ch*d.NrBins
	if err := f.b.WriteFloats(cols[0], sub, first, codes); err != nil {
		return fmt.Errorf("psrfits: write pulse data: %w", err)
	}
	k := pol*d.NrFreqChan + ch
	if err := table.WriteFloat(f.b, cols[1], sub, k, scale); err != nil {
		return fmt.Errorf("psrfits: write scale: %w", err)
	}
	if err := table.WriteFloat(f.b, cols[2], sub, k, offset); err != nil {
		return fmt.Errorf("psrfits: write offset: %w", err)
	}
	if err := table.WriteFloat(f.b, cols[3], sub, ch, 1); err != nil {
		return fmt.Errorf("psrfits: write weight: %w", err)
	}
	if d.Scales != nil {
		d.Scales.Set(sub, pol, ch, scale, offset)
		d.Scales.SetWeight(sub, ch, 1)
	}
	return nil
}

// cols4 looks up four columns of the current table.
func (f *File) cols4(a, b, c, d string) ([4]int, error) {
	var out [4]int
	for i, name := range [4]string{a, b, c, d} {
		col, err := f.col(name)
		if err != nil {
			return out, err
		}
		out[i] = col
	}
	return out, nil
}

// ReadPulse returns n dequantized and weighted samples of one (subint, pol,
// channel) starting at binStart.
func (f *File) ReadPulse(sub, pol, ch, binStart, n int) ([]float64, error) {
	if f.d == nil {
		return nil, fmt.Errorf("psrfits: file is closed")
	}
	d := f.d
	if err := d.checkIndex(sub, pol, ch); err != nil {
		return nil, err
	}
	if s, ok := d.Shape().(ReceiverShape); ok {
		return f.readReceiver(s, sub, pol, ch, binStart, n)
	}
	if binStart < 0 || n < 0 || binStart+n > d.NrBins {
		return nil, fmt.Errorf("%w: bins [%d,%d) of %d", ErrIndex, binStart, binStart+n, d.NrBins)
	}
	if d.Scales == nil {
		return nil, ErrNoScales
	}
	if err := f.subint(); err != nil {
		return nil, err
	}
	if f.opts.WeightedFreq {
		if err := f.subintFreq(sub); err != nil {
			return nil, err
		}
	}
	col, err := f.col("DATA")
	if err != nil {
		return nil, err
	}

	scale, offset := d.Scales.Scale(sub, pol, ch), d.Scales.Offset(sub, pol, ch)
	out := make([]float64, n)
	switch d.NrBits {
	case 16:
		first := pol*d.NrBins*d.NrFreqChan + ch*d.NrBins + binStart
		if err := f.b.ReadFloats(col, sub, first, out); err != nil {
			return nil, fmt.Errorf("psrfits: read pulse data: %w", err)
		}
		for i, c := range out {
			out[i] = scale*c + offset
		}
	case 1, 2, 4, 8:
		packed, err := f.packedRow(col, sub)
		if err != nil {
			return nil, err
		}
		for i := range out {
			idx := quant.SampleIndex(binStart+i, pol, ch, d.NrPols, d.NrFreqChan)
			code, err := quant.Unpack(packed, idx, d.NrBits)
			if err != nil {
				return nil, err
			}
			out[i] = quant.Dequantize(code, scale, offset)
		}
	default:
		return nil, fmt.Errorf("%w: cannot read %d-bit samples", ErrShape, d.NrBits)
	}

	w := d.Scales.Weight(sub, ch)
	for i := range out {
		out[i] = f.opts.Weights.apply(out[i], w)
	}
	return out, nil
}

// subintFreq takes the centre frequency from the first DAT_FREQ element of
// row sub, where frequency-scrunched files keep the weighted frequency.
func (f *File) subintFreq(sub int) error {
	col, err := f.col("DAT_FREQ")
	if err != nil {
		return err
	}
	v, err := table.ReadFloat(f.b, col, sub, 0)
	if err != nil {
		return fmt.Errorf("psrfits: read weighted frequency: %w", err)
	}
	f.d.FreqMode = ModeFixed
	f.d.CentreFreq = v
	return nil
}

// packedRow returns the packed DATA bytes of row sub, reusing the last row
// read.
func (f *File) packedRow(col, sub int) ([]byte, error) {
	if f.row != nil && f.rowSub == sub {
		return f.row, nil
	}
	d := f.d
	buf := make([]byte, quant.PackedSize(d.NrBins*d.NrPols*d.NrFreqChan, d.NrBits))
	if err := f.b.ReadBytes(col, sub, 0, buf); err != nil {
		return nil, fmt.Errorf("psrfits: read subint %d: %w", sub, err)
	}
	f.row, f.rowSub = buf, sub
	return buf, nil
}

// receiverSlot maps a polarization index onto a FEEDPAR column and element.
// Parameters live in DATA/DATAERR at chan*ncpar+pol; with a fit the two
// extra slots are CHISQ and NFREE, indexed by channel.
func (s ReceiverShape) slot(pol, ch int) (value, errCol string, elem int) {
	if s.WithFit {
		switch pol {
		case s.NrParams:
			return "CHISQ", "", ch
		case s.NrParams + 1:
			return "NFREE", "", ch
		}
	}
	return "DATA", "DATAERR", ch*s.NrParams + pol
}

func (f *File) writeReceiver(s ReceiverShape, sub, pol, ch, binStart int, samples []float64) error {
	if binStart < 0 || binStart+len(samples) > 2 {
		return fmt.Errorf("%w: receiver models hold a value and an error, got bins [%d,%d)",
			ErrIndex, binStart, binStart+len(samples))
	}
	if err := f.moveTo("FEEDPAR"); err != nil {
		return err
	}
	valueCol, errCol, elem := s.slot(pol, ch)
	for i, v := range samples {
		name := valueCol
		if binStart+i == 1 {
			// fit statistics carry no error
			if errCol == "" {
				continue
			}
			name = errCol
		}
		col, err := f.col(name)
		if err != nil {
			return err
		}
		if err := table.WriteFloat(f.b, col, sub, elem, v); err != nil {
			return fmt.Errorf("psrfits: write %s: %w", name, err)
		}
	}
	return nil
}

func (f *File) readReceiver(s ReceiverShape, sub, pol, ch, binStart, n int) ([]float64, error) {
	if binStart < 0 || n < 0 || binStart+n > 2 {
		return nil, fmt.Errorf("%w: receiver models hold a value and an error, got bins [%d,%d)",
			ErrIndex, binStart, binStart+n)
	}
	if err := f.moveTo("FEEDPAR"); err != nil {
		return nil, err
	}
	valueCol, errCol, elem := s.slot(pol, ch)
	out := make([]float64, n)
	for i := range out {
		name := valueCol
		if binStart+i == 1 {
			if errCol == "" {
				continue
			}
			name = errCol
		}
		col, err := f.col(name)
		if err != nil {
			return nil, err
		}
		if out[i], err = table.ReadFloat(f.b, col, sub, elem); err != nil {
			return nil, fmt.Errorf("psrfits: read %s: %w", name, err)
		}
	}
	return out, nil
}
