package psrfits

import "fmt"

// Shape is the physical layout implied by a descriptor. It is one of
// FoldShape, SearchShape or ReceiverShape.
type Shape interface {
	shape()
}

// FoldShape stores each (subint, pol, channel) profile as 16-bit codes in the
// SUBINT DATA column, with its own scale and offset.
type FoldShape struct {
	Period float64
}

// SearchShape stores a whole subintegration as one packed blob.
type SearchShape struct {
	NrBits int
}

// ReceiverShape stores coupling-model parameters in FEEDPAR. The
// polarization axis indexes parameters; with WithFit the last two slots are
// the chi-square and the degrees of freedom. With WithErrors bin 1 holds the
// error of bin 0.
type ReceiverShape struct {
	NrParams   int
	WithErrors bool
	WithFit    bool
}

func (FoldShape) shape()     {}
func (SearchShape) shape()   {}
func (ReceiverShape) shape() {}

// Shape derives the layout from GenType, the fold state and NrBits.
func (d *Descriptor) Shape() Shape {
	if d.GenType.Receiver() {
		s := ReceiverShape{NrParams: d.NrPols, WithErrors: d.NrBins >= 2}
		if d.GenType == ReceiverModel2 {
			s.WithFit = true
			s.NrParams -= 2
		}
		return s
	}
	if d.folded() {
		p, _ := d.Period()
		return FoldShape{Period: p}
	}
	return SearchShape{NrBits: d.NrBits}
}

// calMethod returns the CAL_MTHD value for a parameter count.
func calMethod(nrParams int) (string, error) {
	switch nrParams {
	case 3:
		return "single", nil
	case 7:
		return "van04e18", nil
	default:
		return "", fmt.Errorf("%w: no coupling method has %d parameters", ErrShape, nrParams)
	}
}

var receiverParams = []struct{ name, comment string }{
	{"G", "scalar gain"},
	{"gamma", "differential gain (hyperbolic radians)"},
	{"phi", "differential phase (radians)"},
	{"el0", "ellipticity of receptor 0 (radians)"},
	{"or0", "orientation of receptor 0 (radians)"},
	{"el1", "ellipticity of receptor 1 (radians)"},
	{"or1", "orientation of receptor 1 (radians)"},
}

// checkDims validates the grid dimensions.
func (d *Descriptor) checkDims() error {
	if d.NrSubints <= 0 || d.NrFreqChan <= 0 || d.NrPols <= 0 || d.NrBins <= 0 {
		return fmt.Errorf("%w: %d subints, %d channels, %d pols, %d bins",
			ErrDimensions, d.NrSubints, d.NrFreqChan, d.NrPols, d.NrBins)
	}
	return nil
}

func (d *Descriptor) checkIndex(sub, pol, ch int) error {
	if sub < 0 || sub >= d.NrSubints || pol < 0 || pol >= d.NrPols || ch < 0 || ch >= d.NrFreqChan {
		return fmt.Errorf("%w: subint %d pol %d channel %d", ErrIndex, sub, pol, ch)
	}
	return nil
}
