package psrfits

import (
	"context"
	"fmt"

	"github.com/samcharles93/psrio/internal/coord"
	"github.com/samcharles93/psrio/pkg/table"
)

// Open infers a descriptor from the tables in b and returns a File ready for
// sample reads. Unless opts.NoScales is set the scale table of a SUBINT file
// is loaded as well.
func Open(ctx context.Context, b table.Backend, opts ReadOptions) (*File, error) {
	log := fileLogger(opts.Logger, opts.Filename)
	d := NewDescriptor()
	d.Filename = opts.Filename

	in := &inference{ctx: ctx, b: b, d: d, log: log, opts: opts}
	if err := in.run(); err != nil {
		return nil, err
	}
	log.Debug("descriptor inferred",
		"gentype", d.GenType,
		"nsub", d.NrSubints,
		"nchan", d.NrFreqChan,
		"npol", d.NrPols,
		"nbin", d.NrBins,
		"nbits", d.NrBits,
	)

	f := newFile(b, d, opts, log)
	if d.GenType.Receiver() || opts.NoScales {
		return f, nil
	}
	if err := f.moveTo("SUBINT"); err != nil {
		return nil, err
	}
	scales, err := LoadScaleTable(b, d.NrSubints, d.NrPols, d.NrFreqChan, log)
	if err != nil {
		return nil, err
	}
	d.Scales = scales
	return f, nil
}

// primary reads the primary header.
func (in *inference) primary() error {
	d := in.d
	if err := in.b.MovePrimary(); err != nil {
		return fmt.Errorf("psrfits: %w", err)
	}

	if c, ok := in.keyword("FITSTYPE"); !ok {
		in.log.Warn("FITSTYPE keyword missing, not sure this is a PSRFITS file")
	} else if v := cardText(c); v != "PSRFITS" {
		return fmt.Errorf("%w: FITSTYPE is %q", ErrNotPSRFITS, v)
	}

	var err error
	if d.Observatory, err = in.requiredText("TELESCOP"); err != nil {
		return err
	}

	x, okX := in.optionalFloat("ANT_X")
	y, okY := in.optionalFloat("ANT_Y")
	z, okZ := in.optionalFloat("ANT_Z")
	if okX && okY && okZ {
		d.TelescopeX, d.TelescopeY, d.TelescopeZ = x, y, z
	} else {
		in.log.Warn("telescope position (ANT_X/ANT_Y/ANT_Z) incomplete, set to zero")
	}

	if d.Source, err = in.requiredText("SRC_NAME"); err != nil {
		return err
	}
	if d.Instrument, err = in.requiredText("BACKEND"); err != nil {
		return err
	}

	ra, err := in.requiredText("RA")
	if err != nil {
		return err
	}
	if d.RA, err = coord.ParseRA(ra); err != nil {
		return fmt.Errorf("psrfits: RA: %w", err)
	}
	dec, err := in.requiredText("DEC")
	if err != nil {
		return err
	}
	if d.Dec, err = coord.ParseDec(dec); err != nil {
		return fmt.Errorf("psrfits: DEC: %w", err)
	}

	if f, ok := in.optionalFloat("OBSFREQ"); !ok {
		in.log.Warn("OBSFREQ keyword missing")
	} else {
		in.obsFreq = f
		if plausibleFrequency(f) {
			d.CentreFreq, d.RefFreq = f, f
			d.FreqMode = ModeFixed
		}
	}

	in.feed()

	imjd, err := in.requiredInt("STT_IMJD")
	if err != nil {
		return err
	}
	smjd, err := in.requiredInt("STT_SMJD")
	if err != nil {
		return err
	}
	offs, err := in.requiredFloat("STT_OFFS")
	if err != nil {
		return err
	}
	d.MJDStart = coord.JoinMJD(int64(imjd), int64(smjd), offs)

	d.XRange = in.axisRange("PS_XMIN", "PS_XMAX")
	d.YRange = in.axisRange("PS_YMIN", "PS_YMAX")

	for _, fl := range []struct {
		name string
		dst  *Correction
	}{
		{"PS_CSW", &d.CableSwap},
		{"PS_CSWC", &d.CableSwapCorrected},
		{"PS_DBASE", &d.Debased},
	} {
		if v, ok := in.optionalFloat(fl.name); ok {
			*fl.dst = correctionOf(int64(v))
		}
	}
	return nil
}

// feed combines FD_POLN and FD_HAND.
func (in *inference) feed() {
	d := in.d
	if c, ok := in.keyword("FD_POLN"); !ok {
		in.log.Warn("FD_POLN keyword missing, feed type unknown")
	} else {
		switch v := cardText(c); v {
		case "CIRC", "CIRCULAR":
			d.FeedType = FeedCircular
		case "LIN", "LINEAR":
			d.FeedType = FeedLinear
		default:
			in.log.Warn("FD_POLN not recognised", "value", v)
		}
	}
	hand, ok := in.optionalFloat("FD_HAND")
	switch {
	case !ok:
		in.log.Warn("FD_HAND keyword missing")
	case hand == -1:
		d.FeedType = -d.FeedType
	case hand != 1:
		in.log.Warn("FD_HAND not recognised", "value", hand)
	}
}

func (in *inference) axisRange(minKey, maxKey string) *Range {
	lo, okLo := in.optionalFloat(minKey)
	hi, okHi := in.optionalFloat(maxKey)
	if !okLo || !okHi {
		return nil
	}
	return &Range{Min: lo, Max: hi}
}
