package psrfits

import (
	"fmt"

	"github.com/samcharles93/psrio/internal/logger"
	"github.com/samcharles93/psrio/pkg/table"
)

// ScaleTable holds the per-(subint, pol, channel) scales and offsets and the
// per-(subint, channel) weights. It is sized once and never resized.
type ScaleTable struct {
	nsub, npol, nchan int
	scales            []float64
	offsets           []float64
	weights           []float64
}

// NewScaleTable allocates a table with unit scales, zero offsets and unit
// weights.
func NewScaleTable(nsub, npol, nchan int) *ScaleTable {
	t := &ScaleTable{
		nsub:    nsub,
		npol:    npol,
		nchan:   nchan,
		scales:  make([]float64, nsub*npol*nchan),
		offsets: make([]float64, nsub*npol*nchan),
		weights: make([]float64, nsub*nchan),
	}
	for i := range t.scales {
		t.scales[i] = 1
	}
	for i := range t.weights {
		t.weights[i] = 1
	}
	return t
}

func (t *ScaleTable) index(sub, pol, ch int) int {
	return (sub*t.npol+pol)*t.nchan + ch
}

func (t *ScaleTable) Scale(sub, pol, ch int) float64  { return t.scales[t.index(sub, pol, ch)] }
func (t *ScaleTable) Offset(sub, pol, ch int) float64 { return t.offsets[t.index(sub, pol, ch)] }
func (t *ScaleTable) Weight(sub, ch int) float64      { return t.weights[sub*t.nchan+ch] }

// Set stores the scale and offset of one block.
func (t *ScaleTable) Set(sub, pol, ch int, scale, offset float64) {
	i := t.index(sub, pol, ch)
	t.scales[i] = scale
	t.offsets[i] = offset
}

func (t *ScaleTable) SetWeight(sub, ch int, w float64) {
	t.weights[sub*t.nchan+ch] = w
}

// LoadScaleTable reads DAT_SCL, DAT_OFFS and DAT_WTS from the current table.
// The layout is taken from the repeat count of DAT_SCL: NrPols*NrFreqChan
// values per row is the full layout, NrFreqChan values means one set shared
// by every polarization.
func LoadScaleTable(b table.Backend, nsub, npol, nchan int, log logger.Logger) (*ScaleTable, error) {
	colS, err := b.ColumnIndex("DAT_SCL")
	if err != nil {
		return nil, fmt.Errorf("psrfits: no scales: %w", err)
	}
	colO, err := b.ColumnIndex("DAT_OFFS")
	if err != nil {
		return nil, fmt.Errorf("psrfits: no offsets: %w", err)
	}
	colW, err := b.ColumnIndex("DAT_WTS")
	if err != nil {
		return nil, fmt.Errorf("psrfits: no weights: %w", err)
	}
	format, err := b.ColumnFormat(colS)
	if err != nil {
		return nil, err
	}
	var full bool
	switch format.Repeat {
	case npol * nchan:
		full = true
	case nchan:
		full = false
	default:
		return nil, fmt.Errorf("%w: DAT_SCL holds %d values for %d pols and %d channels",
			ErrScaleLayout, format.Repeat, npol, nchan)
	}
	log.Debug("loading scales", "full", full, "repeat", format.Repeat)

	t := NewScaleTable(nsub, npol, nchan)
	for n := 0; n < nsub; n++ {
		for p := 0; p < npol; p++ {
			first := 0
			if full {
				first = p * nchan
			}
			i := t.index(n, p, 0)
			if err := b.ReadFloats(colS, n, first, t.scales[i:i+nchan]); err != nil {
				return nil, fmt.Errorf("psrfits: scales of subint %d: %w", n, err)
			}
			if err := b.ReadFloats(colO, n, first, t.offsets[i:i+nchan]); err != nil {
				return nil, fmt.Errorf("psrfits: offsets of subint %d: %w", n, err)
			}
			if p == 0 {
				if err := b.ReadFloats(colW, n, 0, t.weights[n*nchan:(n+1)*nchan]); err != nil {
					return nil, fmt.Errorf("psrfits: weights of subint %d: %w", n, err)
				}
			}
		}
	}
	t.CheckWeights(log)
	return t, nil
}

// CheckWeights counts negative weights and logs a single warning if there
// are any.
func (t *ScaleTable) CheckWeights(log logger.Logger) int {
	n := 0
	for _, w := range t.weights {
		if w < 0 {
			n++
		}
	}
	if n > 0 {
		log.Warn("negative weights found, file is probably corrupted; consider absolute weights",
			"count", n)
	}
	return n
}
