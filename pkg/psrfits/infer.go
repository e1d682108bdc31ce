package psrfits

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/samcharles93/psrio/internal/logger"
	"github.com/samcharles93/psrio/pkg/table"
)

// resolver is one named source for a quantity. ok is false when the source
// does not apply to this file.
type resolver[T any] struct {
	name    string
	resolve func(*inference) (v T, ok bool, err error)
}

// resolveFirst tries rs in order and returns the first value found. Errors
// from all but the last resolver are logged and skipped; an error from the
// last one is returned. errUnresolved means no source applied.
func resolveFirst[T any](in *inference, quantity string, rs []resolver[T]) (T, string, error) {
	var zero T
	for i, r := range rs {
		v, ok, err := r.resolve(in)
		if err != nil {
			if i == len(rs)-1 {
				return zero, "", fmt.Errorf("psrfits: %s from %s: %w", quantity, r.name, err)
			}
			in.log.Debug("source failed", "quantity", quantity, "source", r.name, "err", err)
			continue
		}
		if ok {
			in.log.Debug("resolved", "quantity", quantity, "source", r.name, "value", v)
			return v, r.name, nil
		}
	}
	return zero, "", errUnresolved
}

// inference holds the state of one Open call.
type inference struct {
	ctx  context.Context
	b    table.Backend
	d    *Descriptor
	log  logger.Logger
	opts ReadOptions

	hasSubint, hasFeedpar, hasHistory bool

	search  bool
	obsFreq float64
	gtype   *GenType

	histFreq    float64
	hasHistFreq bool

	freqs *channelFreqs
}

// channelFreqs summarises row 0 of a DAT_FREQ column.
type channelFreqs struct {
	mean, first, last float64
}

func (in *inference) keyword(name string) (table.Card, bool) {
	c, err := in.b.ReadKeyword(name)
	if err != nil {
		return table.Card{}, false
	}
	return c, true
}

func cardText(c table.Card) string {
	return strings.TrimSpace(strings.Trim(c.String(), "'"))
}

func (in *inference) requiredText(name string) (string, error) {
	c, ok := in.keyword(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKeyword, name)
	}
	return cardText(c), nil
}

func (in *inference) requiredFloat(name string) (float64, error) {
	c, ok := in.keyword(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKeyword, name)
	}
	v, err := c.Float()
	if err != nil {
		return 0, fmt.Errorf("psrfits: %w", err)
	}
	return v, nil
}

func (in *inference) requiredInt(name string) (int, error) {
	c, ok := in.keyword(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKeyword, name)
	}
	v, err := c.Int()
	if err != nil {
		return 0, fmt.Errorf("psrfits: %w", err)
	}
	return int(v), nil
}

func (in *inference) optionalFloat(name string) (float64, bool) {
	c, ok := in.keyword(name)
	if !ok {
		return 0, false
	}
	v, err := c.Float()
	if err != nil {
		in.log.Warn("ignoring unreadable keyword", "keyword", name, "err", err)
		return 0, false
	}
	return v, true
}

// lastRowValue reads the first element of a column in the last row of the
// current table. ok is false when the column or the rows are missing.
func (in *inference) lastRowValue(name string) (float64, bool, error) {
	col, err := in.b.ColumnIndex(name)
	if err != nil {
		return 0, false, nil
	}
	rows, err := in.b.NumRows()
	if err != nil {
		return 0, false, err
	}
	if rows == 0 {
		return 0, false, nil
	}
	v, err := table.ReadFloat(in.b, col, rows-1, 0)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (in *inference) run() error {
	in.hasSubint = table.HasTable(in.b, "SUBINT")
	in.hasFeedpar = table.HasTable(in.b, "FEEDPAR")
	in.hasHistory = table.HasTable(in.b, "HISTORY")

	if err := in.primary(); err != nil {
		return err
	}
	if !in.hasSubint && !in.hasFeedpar {
		return fmt.Errorf("%w: nothing to read", ErrNoData)
	}
	if err := in.observingMode(); err != nil {
		return err
	}
	in.history()
	if in.hasSubint {
		return in.subint()
	}
	return in.receiver()
}

// Observing mode.

var modeResolvers = []resolver[bool]{
	{"OBS_MODE", (*inference).modeFromKeyword},
	{"table presence", (*inference).modeFromTables},
}

func (in *inference) modeFromKeyword() (bool, bool, error) {
	if err := in.b.MovePrimary(); err != nil {
		return false, false, err
	}
	c, ok := in.keyword("OBS_MODE")
	if !ok {
		in.log.Warn("OBS_MODE keyword does not exist")
		return false, false, nil
	}
	v := cardText(c)
	switch {
	case strings.Contains(v, "SEARCH"):
		return false, true, nil
	case strings.Contains(v, "PSR"), strings.Contains(v, "CAL"), strings.Contains(v, "PCM"):
		return true, true, nil
	default:
		in.log.Warn("OBS_MODE keyword is not valid", "value", v)
		return false, false, nil
	}
}

func (in *inference) modeFromTables() (bool, bool, error) {
	if in.hasSubint {
		if err := in.b.MoveTo("SUBINT"); err != nil {
			return false, false, err
		}
		nbin, err := in.requiredInt("NBIN")
		if err != nil {
			return false, false, err
		}
		return nbin != 1, true, nil
	}
	return true, in.hasFeedpar, nil
}

func (in *inference) observingMode() error {
	folded, _, err := resolveFirst(in, "observing mode", modeResolvers)
	if err != nil && !errors.Is(err, errUnresolved) {
		return err
	}
	if err != nil {
		folded = true
	}
	if folded {
		in.d.IsFolded = true
	} else {
		in.assumeSearch()
	}

	if err := in.b.MovePrimary(); err != nil {
		return err
	}
	if c, ok := in.keyword("PS_GTYPE"); ok {
		v, err := c.Int()
		g := GenType(v)
		switch {
		case err != nil || !g.valid():
			in.log.Warn("ignoring unrecognised PS_GTYPE", "value", c.String())
		default:
			in.gtype = &g
		}
	}
	return nil
}

func (in *inference) assumeSearch() {
	in.search = true
	in.d.IsFolded = false
	in.d.FoldMode = ModeUnknown
	in.d.FixedPeriod = -1
	in.d.GenType = SearchMode
}

// History table: correction flags and the historical centre frequency.

func (in *inference) history() {
	d := in.d
	if !in.hasHistory {
		in.log.Warn("no HISTORY table, dedispersion and Faraday rotation state unknown")
		return
	}
	if err := in.b.MoveTo("HISTORY"); err != nil {
		in.log.Warn("cannot move to HISTORY", "err", err)
		return
	}
	flags := []struct {
		col string
		dst *Correction
		msg string
	}{
		{"DEDISP", &d.DeDispersed, "cannot find dedispersion state"},
		{"RM_CORR", &d.DeFaraday, "cannot find Faraday rotation state"},
		{"PR_CORR", &d.DeParallactic, "cannot find parallactic angle state"},
	}
	for _, fl := range flags {
		v, ok, err := in.lastRowValue(fl.col)
		if err != nil || !ok {
			in.log.Warn(fl.msg, "column", fl.col)
			*fl.dst = Unknown
			continue
		}
		*fl.dst = correctionOf(int64(v))
	}

	v, ok, err := in.lastRowValue("CTR_FREQ")
	if err != nil || !ok {
		in.log.Warn("cannot find centre frequency in HISTORY table")
		return
	}
	in.histFreq, in.hasHistFreq = v, true
	switch {
	case !plausibleFrequency(d.RefFreq):
		d.RefFreq = v
	case math.Abs(d.RefFreq-v) > 0.001:
		in.log.Warn("OBSFREQ differs from HISTORY:CTR_FREQ, using the history value as reference frequency",
			"obsfreq", d.RefFreq, "ctr_freq", v)
		d.RefFreq = v
	}
}

// Period.

var periodResolvers = []resolver[float64]{
	{"SUBINT:PERIOD", (*inference).periodFromSubint},
	{"HISTORY:TBIN*NBIN_PRD", (*inference).periodFromHistory},
	{"predictor", (*inference).periodFromPredictor},
}

func (in *inference) periodFromSubint() (float64, bool, error) {
	if err := in.b.MoveTo("SUBINT"); err != nil {
		return 0, false, err
	}
	v, ok, err := in.lastRowValue("PERIOD")
	if err != nil || !ok {
		return 0, false, err
	}
	return v, v > 0, nil
}

func (in *inference) periodFromHistory() (float64, bool, error) {
	if !in.hasHistory {
		return 0, false, nil
	}
	if err := in.b.MoveTo("HISTORY"); err != nil {
		return 0, false, err
	}
	tbin, ok, err := in.lastRowValue("TBIN")
	if err != nil || !ok {
		return 0, false, err
	}
	nbin, ok, err := in.lastRowValue("NBIN_PRD")
	if err != nil || !ok {
		return 0, false, err
	}
	if nbin == 0 {
		in.log.Debug("HISTORY:NBIN_PRD is 0, data look like search mode")
		return 0, false, nil
	}
	p := tbin * nbin
	return p, p > 0, nil
}

func (in *inference) periodFromPredictor() (float64, bool, error) {
	if in.opts.Predictor == nil {
		return 0, false, errors.New("no ephemeris predictor configured")
	}
	p, err := in.opts.Predictor.PredictPeriod(in.ctx, in.opts.Filename)
	if err != nil {
		return 0, false, err
	}
	if !(p > 0) {
		return 0, false, fmt.Errorf("predicted period %v is not positive", p)
	}
	in.log.Info("period taken from ephemeris predictor", "period", p)
	return p, true, nil
}

func (in *inference) period() {
	if in.search {
		return
	}
	p, src, err := resolveFirst(in, "period", periodResolvers)
	if err != nil {
		in.log.Warn("cannot determine folding period, assuming search mode", "err", err)
		in.assumeSearch()
		in.gtype = nil
		return
	}
	in.log.Debug("folding period", "period", p, "source", src)
	in.d.IsFolded = true
	in.d.FoldMode = ModeFixed
	in.d.FixedPeriod = p
}

// Sampling time.

var tsampResolvers = []resolver[float64]{
	{"HISTORY:TBIN", (*inference).tsampFromHistory},
	{"SUBINT:TBIN", (*inference).tsampFromSubint},
	{"period/NBIN", (*inference).tsampFromPeriod},
}

func (in *inference) tsampFromHistory() (float64, bool, error) {
	if !in.d.IsFolded || !in.hasHistory {
		return 0, false, nil
	}
	if err := in.b.MoveTo("HISTORY"); err != nil {
		return 0, false, err
	}
	v, ok, err := in.lastRowValue("TBIN")
	if err != nil || !ok {
		return 0, false, err
	}
	return v, v > 0, nil
}

func (in *inference) tsampFromSubint() (float64, bool, error) {
	if err := in.b.MoveTo("SUBINT"); err != nil {
		return 0, false, err
	}
	c, ok := in.keyword("TBIN")
	if !ok {
		in.log.Warn("SUBINT:TBIN keyword does not exist, using the period to get the sampling time")
		return 0, false, nil
	}
	if cardText(c) == "*" {
		in.log.Warn("sampling time not set, using the period to get the sampling time")
		return 0, false, nil
	}
	v, err := c.Float()
	if err != nil {
		return 0, false, err
	}
	return v, v > 0, nil
}

func (in *inference) tsampFromPeriod() (float64, bool, error) {
	p, ok := in.d.Period()
	if !ok {
		in.log.Warn("period is not set, cannot use it to get the sampling time")
		return 0, false, nil
	}
	return p / float64(in.d.NrBins), true, nil
}

func (in *inference) tsamp() {
	v, _, err := resolveFirst(in, "sampling time", tsampResolvers)
	if err != nil {
		if !errors.Is(err, errUnresolved) {
			in.log.Warn("cannot determine sampling time", "err", err)
		}
		in.d.TsampMode = ModeUnknown
		return
	}
	in.d.TsampMode = ModeFixed
	in.d.FixedTsamp = v
}

// DM and RM.

func ephemerisResolvers(name string) []resolver[float64] {
	return []resolver[float64]{
		{"SUBINT:" + name, func(in *inference) (float64, bool, error) {
			if err := in.b.MoveTo("SUBINT"); err != nil {
				return 0, false, err
			}
			v, ok := in.optionalFloat(name)
			return v, ok, nil
		}},
		{"PSREPHEM:" + name, func(in *inference) (float64, bool, error) {
			if err := in.b.MoveTo("PSREPHEM"); err != nil {
				return 0, false, fmt.Errorf("%w: %s (no PSREPHEM table)", ErrMissingEphemeris, name)
			}
			v, err := table.ReadNamedFloat(in.b, name, 0, 0)
			if err != nil {
				return 0, false, fmt.Errorf("%w: %s: %v", ErrMissingEphemeris, name, err)
			}
			return v, true, nil
		}},
	}
}

// Centre frequency.

var freqResolvers = []resolver[float64]{
	{"OBSFREQ", func(in *inference) (float64, bool, error) {
		return in.obsFreq, plausibleFrequency(in.obsFreq), nil
	}},
	{"DAT_FREQ", func(in *inference) (float64, bool, error) {
		if in.freqs == nil {
			return 0, false, nil
		}
		return in.freqs.mean, true, nil
	}},
	{"HISTORY:CTR_FREQ", func(in *inference) (float64, bool, error) {
		return in.histFreq, in.hasHistFreq && plausibleFrequency(in.histFreq), nil
	}},
	{"POLYCO:REF_FREQ", (*inference).freqFromPolyco},
	{"T2PREDICT:FREQ_RANGE", (*inference).freqFromPredictor},
}

func (in *inference) freqFromPolyco() (float64, bool, error) {
	if err := in.b.MoveTo("POLYCO"); err != nil {
		return 0, false, nil
	}
	v, err := table.ReadNamedFloat(in.b, "REF_FREQ", 0, 0)
	if err != nil {
		return 0, false, err
	}
	if !plausibleFrequency(v) {
		return 0, false, nil
	}
	in.log.Warn("centre frequency taken from POLYCO table", "freq", v)
	return v, true, nil
}

func (in *inference) freqFromPredictor() (float64, bool, error) {
	if err := in.b.MoveTo("T2PREDICT"); err != nil {
		return 0, false, nil
	}
	col, err := in.b.ColumnIndex("PREDICT")
	if err != nil {
		return 0, false, err
	}
	rows, err := in.b.NumRows()
	if err != nil {
		return 0, false, err
	}
	for r := 0; r < rows; r++ {
		line, err := in.b.ReadString(col, r)
		if err != nil {
			return 0, false, err
		}
		var f1, f2 float64
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "FREQ_RANGE" {
			continue
		}
		if _, err := fmt.Sscan(fields[1]+" "+fields[2], &f1, &f2); err != nil {
			return 0, false, fmt.Errorf("bad FREQ_RANGE line %q: %w", line, err)
		}
		v := 0.5 * (f1 + f2)
		in.log.Warn("centre frequency taken from T2PREDICT table", "freq", v)
		return v, true, nil
	}
	return 0, false, nil
}

// readChannelFreqs reads row 0 of DAT_FREQ in the named table and warns once
// when the channels are not equally spaced.
func (in *inference) readChannelFreqs(tableName string) {
	n := in.d.NrFreqChan
	if n <= 0 {
		return
	}
	if err := in.b.MoveTo(tableName); err != nil {
		return
	}
	col, err := in.b.ColumnIndex("DAT_FREQ")
	if err != nil {
		in.log.Warn("cannot find DAT_FREQ to determine observing frequency", "table", tableName)
		return
	}
	rows, err := in.b.NumRows()
	if err != nil || rows == 0 {
		in.log.Warn("DAT_FREQ has no rows", "table", tableName)
		return
	}
	freqs := make([]float64, n)
	if err := in.b.ReadFloats(col, 0, 0, freqs); err != nil {
		in.log.Warn("cannot read DAT_FREQ to determine observing frequency", "err", err)
		return
	}
	if n > 2 {
		step := freqs[1] - freqs[0]
		for i := 2; i < n; i++ {
			if math.Abs(freqs[i]-freqs[i-1]-step) > 1e-6 {
				in.log.Warn("frequency channels do not appear to be equally spaced, expect problems (other channels not reported)",
					"channel", i, "spacing", freqs[i]-freqs[i-1], "expected", step)
				break
			}
		}
	}
	in.freqs = &channelFreqs{
		mean:  floats.Sum(freqs) / float64(n),
		first: freqs[0],
		last:  freqs[n-1],
	}
}

func (in *inference) frequency(tableName string) {
	d := in.d
	in.readChannelFreqs(tableName)
	v, src, err := resolveFirst(in, "centre frequency", freqResolvers)
	if err != nil {
		if !errors.Is(err, errUnresolved) {
			in.log.Warn("cannot determine centre frequency", "err", err)
		} else {
			in.log.Warn("centre frequency unknown")
		}
		d.FreqMode = ModeUnknown
	} else {
		d.FreqMode = ModeFixed
		d.CentreFreq = v
	}
	if in.freqs == nil {
		return
	}
	if src == "OBSFREQ" && math.Abs(in.freqs.mean-d.CentreFreq) > 1e-6 {
		if math.Abs(d.CentreFreq-in.freqs.mean-0.5*math.Abs(d.ChannelBW())) < 1e-6 {
			in.log.Debug("centre frequency updated from DAT_FREQ, offset matches a dropped DC channel",
				"from", d.CentreFreq, "to", in.freqs.mean)
		} else {
			in.log.Warn("updating centre frequency as suggested by DAT_FREQ",
				"from", d.CentreFreq, "to", in.freqs.mean)
		}
		d.CentreFreq = in.freqs.mean
	}
	if d.NrFreqChan > 1 {
		df := (in.freqs.last - in.freqs.first) / float64(d.NrFreqChan-1)
		if math.Abs(df-d.ChannelBW()) > 1e-6 {
			if d.Bandwidth != 0 {
				in.log.Warn("updating channel bandwidth as suggested by DAT_FREQ",
					"from", d.ChannelBW(), "to", df)
			}
			d.Bandwidth = df * float64(d.NrFreqChan)
		}
	}
}

// Subintegration durations and data category.

func (in *inference) durations() (total float64, ok bool) {
	d := in.d
	if in.search {
		ts, known := d.Tsamp()
		if !known {
			in.log.Warn("sampling time unknown, subintegration duration cannot be determined")
			return 0, false
		}
		d.TsubMode = ModeFixed
		d.TsubList = []float64{float64(d.NrBins) * ts}
		return d.TsubList[0] * float64(d.NrSubints), true
	}
	if err := in.b.MoveTo("SUBINT"); err != nil {
		return 0, false
	}
	col, err := in.b.ColumnIndex("TSUBINT")
	if err != nil {
		in.log.Warn("cannot find TSUBINT in SUBINT table, observation duration cannot be determined")
		return 0, false
	}
	list := make([]float64, d.NrSubints)
	for i := range list {
		v, err := table.ReadFloat(in.b, col, i, 0)
		if err != nil {
			in.log.Warn("cannot read TSUBINT, observation duration cannot be determined", "row", i, "err", err)
			return 0, false
		}
		list[i] = v
	}
	d.TsubList = list
	d.TsubMode = ModeList
	if d.NrSubints == 1 {
		d.TsubMode = ModeFixed
	}
	return floats.Sum(list), true
}

func genTypeResolvers(total float64, haveTotal bool) []resolver[GenType] {
	return []resolver[GenType]{
		{"PS_GTYPE", func(in *inference) (GenType, bool, error) {
			if in.gtype == nil {
				return Undefined, false, nil
			}
			return *in.gtype, true, nil
		}},
		{"OBS_MODE=SEARCH", func(in *inference) (GenType, bool, error) {
			return SearchMode, in.search, nil
		}},
		{"duration ratio", func(in *inference) (GenType, bool, error) {
			p, ok := in.d.Period()
			if !haveTotal || !ok {
				return Undefined, false, errors.New("observation duration or period unknown")
			}
			return classifyDuration(total, p, in.d.NrSubints)
		}},
	}
}

// classifyDuration compares the observed duration with period*nsub.
func classifyDuration(total, period float64, nsub int) (GenType, bool, error) {
	expected := period * float64(nsub)
	r := (total - expected) / expected
	switch {
	case math.Abs(r) < 0.01:
		return PulseStack, true, nil
	case r >= 0.01:
		if nsub == 1 {
			return Profile, true, nil
		}
		return SubIntegrations, true, nil
	default:
		return Undefined, false, fmt.Errorf("total duration %g s implies fewer periods than subintegrations", total)
	}
}

func (in *inference) genType(total float64, haveTotal bool) {
	g, src, err := resolveFirst(in, "gentype", genTypeResolvers(total, haveTotal))
	if err != nil {
		in.log.Warn("data category cannot be determined", "err", err)
		in.d.GenType = Undefined
		return
	}
	if src == "duration ratio" {
		in.log.Debug("gentype guessed from the observation duration", "gentype", g, "duration", total)
	}
	in.d.GenType = g
}

// subint fills the descriptor from a SUBINT table.
func (in *inference) subint() error {
	d := in.d
	in.period()

	if err := in.b.MoveTo("SUBINT"); err != nil {
		return err
	}
	var err error
	if d.NrPols, err = in.requiredInt("NPOL"); err != nil {
		return err
	}
	if c, ok := in.keyword("POL_TYPE"); !ok {
		in.log.Warn("POL_TYPE keyword does not exist")
	} else if pt, known := parsePolType(cardText(c)); known {
		d.PolType = pt
	} else {
		in.log.Warn("POL_TYPE not recognised", "value", cardText(c))
	}
	nbin, err := in.requiredInt("NBIN")
	if err != nil {
		return err
	}
	if nbin == 1 {
		if d.NrBins, err = in.requiredInt("NSBLK"); err != nil {
			return fmt.Errorf("%w (NBIN=1 suggests search mode)", err)
		}
		if d.NrBits, err = in.requiredInt("NBITS"); err != nil {
			return fmt.Errorf("%w (NBIN=1 suggests search mode)", err)
		}
	} else {
		d.NrBins = nbin
		d.NrBits = 16
	}
	if d.NrFreqChan, err = in.requiredInt("NCHAN"); err != nil {
		in.log.Warn("NCHAN keyword does not exist, trying NCH_FILE")
		if d.NrFreqChan, err = in.requiredInt("NCH_FILE"); err != nil {
			return err
		}
	}
	if d.NrSubints, err = in.requiredInt("NAXIS2"); err != nil {
		return err
	}
	chanBW, err := in.requiredFloat("CHAN_BW")
	if err != nil {
		return err
	}
	d.Bandwidth = chanBW * float64(d.NrFreqChan)
	if err := d.checkDims(); err != nil {
		return err
	}

	in.tsamp()

	if d.DM, _, err = resolveFirst(in, "DM", ephemerisResolvers("DM")); err != nil {
		return err
	}
	if d.RM, _, err = resolveFirst(in, "RM", ephemerisResolvers("RM")); err != nil {
		return err
	}

	in.frequency("SUBINT")
	total, ok := in.durations()
	in.genType(total, ok)
	return nil
}

// receiver fills the descriptor from a FEEDPAR table.
func (in *inference) receiver() error {
	d := in.d
	if err := in.b.MoveTo("FEEDPAR"); err != nil {
		return err
	}
	in.log.Debug("file contains a receiver model")
	var err error
	if d.NrPols, err = in.requiredInt("NCPAR"); err != nil {
		return err
	}
	if d.NrFreqChan, err = in.requiredInt("NCHAN"); err != nil {
		return err
	}
	if d.NrSubints, err = in.b.NumRows(); err != nil {
		return err
	}
	_, errChi := in.b.ColumnIndex("CHISQ")
	_, errFree := in.b.ColumnIndex("NFREE")
	d.GenType = ReceiverModel
	if errChi == nil && errFree == nil {
		d.GenType = ReceiverModel2
		d.NrPols += 2
	}
	d.NrBins = 2
	if _, err := in.b.ColumnIndex("DATAERR"); err != nil {
		d.NrBins = 1
	}
	if _, err := in.b.ColumnIndex("DATA"); err != nil {
		return fmt.Errorf("%w: FEEDPAR has no DATA column", ErrNoData)
	}
	d.NrBits = 32
	if err := d.checkDims(); err != nil {
		return err
	}
	in.frequency("FEEDPAR")
	return nil
}
