package psrfits

import (
	"fmt"

	"github.com/samcharles93/psrio/pkg/quant"
)

// gridIndex is the position of (sub, pol, ch, bin) in a full logical grid.
func (d *Descriptor) gridIndex(sub, pol, ch, bin int) int {
	return d.NrBins*(pol+d.NrPols*(ch+sub*d.NrFreqChan)) + bin
}

func (d *Descriptor) gridSize() int {
	return d.NrSubints * d.NrFreqChan * d.NrPols * d.NrBins
}

// BuildSubint quantizes and packs subintegration sub of a full search-mode
// grid. Scales and offsets are indexed pol*NrFreqChan+chan.
func (f *File) BuildSubint(data []float64, sub int) (packed []byte, scales, offsets []float64, err error) {
	if f.d == nil {
		return nil, nil, nil, fmt.Errorf("psrfits: file is closed")
	}
	d := f.d
	s, ok := d.Shape().(SearchShape)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: BuildSubint needs search-mode data", ErrShape)
	}
	maxCode, err := quant.MaxCode(s.NrBits)
	if err != nil {
		return nil, nil, nil, err
	}
	if sub < 0 || sub >= d.NrSubints {
		return nil, nil, nil, fmt.Errorf("%w: subint %d of %d", ErrIndex, sub, d.NrSubints)
	}
	if need := d.gridIndex(sub+1, 0, 0, 0); len(data) < need {
		return nil, nil, nil, fmt.Errorf("%w: grid holds %d samples, subint %d needs %d", ErrIndex, len(data), sub, need)
	}

	nb, np, nc := d.NrBins, d.NrPols, d.NrFreqChan
	packed = make([]byte, quant.PackedSize(nb*np*nc, s.NrBits))
	scales = make([]float64, np*nc)
	offsets = make([]float64, np*nc)
	for ch := 0; ch < nc; ch++ {
		for p := 0; p < np; p++ {
			base := d.gridIndex(sub, p, ch, 0)
			block := data[base : base+nb]
			scale, offset := quant.ScaleOffset(block, maxCode)
			scales[p*nc+ch], offsets[p*nc+ch] = scale, offset
			for b, v := range block {
				code := quant.Quantize(v, scale, offset, maxCode)
				if err := quant.Pack(packed, quant.SampleIndex(b, p, ch, np, nc), code, s.NrBits); err != nil {
					return nil, nil, nil, err
				}
			}
		}
	}
	return packed, scales, offsets, nil
}

// WriteSubint stores one packed search-mode row with its scales and offsets.
// Weights are reset to 1 and OFFS_SUB is set to the middle of the row.
func (f *File) WriteSubint(sub int, packed []byte, scales, offsets []float64) error {
	if f.d == nil {
		return fmt.Errorf("psrfits: file is closed")
	}
	d := f.d
	s, ok := d.Shape().(SearchShape)
	if !ok {
		return fmt.Errorf("%w: WriteSubint needs search-mode data", ErrShape)
	}
	if sub < 0 || sub >= d.NrSubints {
		return fmt.Errorf("%w: subint %d of %d", ErrIndex, sub, d.NrSubints)
	}
	np, nc := d.NrPols, d.NrFreqChan
	if want := quant.PackedSize(d.NrBins*np*nc, s.NrBits); len(packed) != want {
		return fmt.Errorf("%w: packed row holds %d bytes, want %d", ErrShape, len(packed), want)
	}
	if len(scales) != np*nc || len(offsets) != np*nc {
		return fmt.Errorf("%w: got %d scales and %d offsets, want %d", ErrShape, len(scales), len(offsets), np*nc)
	}
	if err := f.subint(); err != nil {
		return err
	}

	sc := make([]float64, len(scales))
	of := make([]float64, len(offsets))
	for i := range sc {
		sc[i], of[i] = f.trapNonFinite(scales[i], offsets[i])
	}

	cols, err := f.cols4("DATA", "DAT_SCL", "DAT_OFFS", "DAT_WTS")
	if err != nil {
		return err
	}
	if err := f.b.WriteBytes(cols[0], sub, 0, packed); err != nil {
		return fmt.Errorf("psrfits: write subint %d: %w", sub, err)
	}
	if err := f.b.WriteFloats(cols[1], sub, 0, sc); err != nil {
		return fmt.Errorf("psrfits: write scales of subint %d: %w", sub, err)
	}
	if err := f.b.WriteFloats(cols[2], sub, 0, of); err != nil {
		return fmt.Errorf("psrfits: write offsets of subint %d: %w", sub, err)
	}
	if err := f.b.WriteFloats(cols[3], sub, 0, ones(nc)); err != nil {
		return fmt.Errorf("psrfits: write weights of subint %d: %w", sub, err)
	}
	offs, err := f.col("OFFS_SUB")
	if err != nil {
		return err
	}
	ts, _ := d.Tsamp()
	if err := f.b.WriteFloats(offs, sub, 0, []float64{(float64(sub) + 0.5) * float64(d.NrBins) * ts}); err != nil {
		return fmt.Errorf("psrfits: write OFFS_SUB: %w", err)
	}

	if d.Scales != nil {
		for p := 0; p < np; p++ {
			for ch := 0; ch < nc; ch++ {
				d.Scales.Set(sub, p, ch, sc[p*nc+ch], of[p*nc+ch])
			}
		}
		for ch := 0; ch < nc; ch++ {
			d.Scales.SetWeight(sub, ch, 1)
		}
	}
	if f.rowSub == sub {
		f.row = nil
	}
	return nil
}

// ReadSubint returns one subintegration as a grid indexed
// NrBins*(pol+NrPols*chan)+bin.
func (f *File) ReadSubint(sub int) ([]float64, error) {
	if f.d == nil {
		return nil, fmt.Errorf("psrfits: file is closed")
	}
	d := f.d
	out := make([]float64, d.NrFreqChan*d.NrPols*d.NrBins)
	for ch := 0; ch < d.NrFreqChan; ch++ {
		for p := 0; p < d.NrPols; p++ {
			v, err := f.ReadPulse(sub, p, ch, 0, d.NrBins)
			if err != nil {
				return nil, err
			}
			copy(out[d.gridIndex(0, p, ch, 0):], v)
		}
	}
	return out, nil
}

// WriteData stores a full grid indexed NrBins*(pol+NrPols*(chan+sub*NrFreqChan))+bin.
func (f *File) WriteData(data []float64) error {
	if f.d == nil {
		return fmt.Errorf("psrfits: file is closed")
	}
	d := f.d
	if len(data) != d.gridSize() {
		return fmt.Errorf("%w: grid holds %d samples, want %d", ErrShape, len(data), d.gridSize())
	}
	if _, ok := d.Shape().(SearchShape); ok {
		for n := 0; n < d.NrSubints; n++ {
			packed, scales, offsets, err := f.BuildSubint(data, n)
			if err != nil {
				return err
			}
			if err := f.WriteSubint(n, packed, scales, offsets); err != nil {
				return err
			}
		}
		return nil
	}
	for n := 0; n < d.NrSubints; n++ {
		for ch := 0; ch < d.NrFreqChan; ch++ {
			for p := 0; p < d.NrPols; p++ {
				i := d.gridIndex(n, p, ch, 0)
				if err := f.WritePulse(n, p, ch, 0, data[i:i+d.NrBins]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ReadData returns the full grid, laid out as for WriteData.
func (f *File) ReadData() ([]float64, error) {
	if f.d == nil {
		return nil, fmt.Errorf("psrfits: file is closed")
	}
	d := f.d
	out := make([]float64, d.gridSize())
	for n := 0; n < d.NrSubints; n++ {
		for ch := 0; ch < d.NrFreqChan; ch++ {
			for p := 0; p < d.NrPols; p++ {
				v, err := f.ReadPulse(n, p, ch, 0, d.NrBins)
				if err != nil {
					return nil, err
				}
				copy(out[d.gridIndex(n, p, ch, 0):], v)
			}
		}
	}
	return out, nil
}
