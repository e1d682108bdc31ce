package psrfits

import (
	"fmt"

	"github.com/samcharles93/psrio/internal/coord"
	"github.com/samcharles93/psrio/internal/logger"
	"github.com/samcharles93/psrio/pkg/quant"
	"github.com/samcharles93/psrio/pkg/table"
)

// Header revision written to HDRVER.
const headerVersion = "4.1"

// schemaWriter collects the first error of a sequence of header and cell
// writes.
type schemaWriter struct {
	b   table.Backend
	err error
}

func (w *schemaWriter) card(name string, v any, comment string) {
	if w.err != nil {
		return
	}
	if err := w.b.WriteKeyword(table.Card{Name: name, Value: v, Comment: comment}); err != nil {
		w.err = fmt.Errorf("psrfits: write %s: %w", name, err)
	}
}

func (w *schemaWriter) create(name string, rows int, cols []table.ColumnDef) {
	if w.err != nil {
		return
	}
	if err := w.b.CreateTable(name, rows, cols); err != nil {
		w.err = fmt.Errorf("psrfits: create %s: %w", name, err)
	}
}

func (w *schemaWriter) floats(col, row, first int, v []float64) {
	if w.err != nil {
		return
	}
	if err := w.b.WriteFloats(col, row, first, v); err != nil {
		w.err = fmt.Errorf("psrfits: write column %d row %d: %w", col, row, err)
	}
}

func (w *schemaWriter) float(col, row int, v float64) {
	w.floats(col, row, 0, []float64{v})
}

func (w *schemaWriter) text(col, row int, s string) {
	if w.err != nil {
		return
	}
	if err := w.b.WriteString(col, row, s); err != nil {
		w.err = fmt.Errorf("psrfits: write column %d row %d: %w", col, row, err)
	}
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

// obsFreq is the frequency stored in OBSFREQ and HISTORY:CTR_FREQ.
func (d *Descriptor) obsFreq() float64 {
	if plausibleFrequency(d.RefFreq) {
		return d.RefFreq
	}
	return d.CentreFreq
}

// tbin is the sampling time written to the headers, derived from the period
// when no sampling time is set.
func (d *Descriptor) tbin() float64 {
	if ts, ok := d.Tsamp(); ok {
		return ts
	}
	if p, ok := d.Period(); ok && d.NrBins > 0 {
		return p / float64(d.NrBins)
	}
	return 0
}

func (d *Descriptor) obsMode() string {
	switch {
	case d.GenType.Receiver():
		return "PCM"
	case d.folded() && d.GenType == PolnCal:
		return "CAL"
	case d.folded():
		return "PSR"
	default:
		return "SEARCH"
	}
}

// Create writes the primary header and the tables implied by d into b, which
// should be empty, and returns a File ready for sample writes. d is owned by
// the returned File.
func Create(b table.Backend, d *Descriptor, opts WriteOptions) (*File, error) {
	log := fileLogger(opts.Logger, opts.Filename)
	if err := d.checkDims(); err != nil {
		return nil, err
	}

	var calMthd string
	switch s := d.Shape().(type) {
	case SearchShape:
		switch s.NrBits {
		case 1, 2, 4, 8:
		default:
			log.Warn("unsupported number of bits for search-mode data, writing 8 bits", "nbits", s.NrBits)
			d.NrBits = 8
		}
	case FoldShape:
		d.NrBits = 16
	case ReceiverShape:
		m, err := calMethod(s.NrParams)
		if err != nil {
			return nil, err
		}
		calMthd = m
		d.NrBits = 32
		d.NrBins = 2
	}

	if err := b.CreatePrimary(); err != nil {
		return nil, fmt.Errorf("psrfits: create primary: %w", err)
	}
	w := &schemaWriter{b: b}
	writePrimary(w, d, log)
	writeHistoryTable(w, d)
	if d.GenType.Receiver() {
		writeFeedpar(w, d, calMthd)
	} else {
		writeSubintTable(w, d, log)
	}
	if w.err != nil {
		return nil, w.err
	}

	f := newFile(b, d, ReadOptions{Filename: opts.Filename, Logger: opts.Logger}, log)
	if !d.GenType.Receiver() {
		d.Scales = NewScaleTable(d.NrSubints, d.NrPols, d.NrFreqChan)
	}
	log.Debug("created file", "gentype", d.GenType, "nbits", d.NrBits)
	return f, nil
}

func writePrimary(w *schemaWriter, d *Descriptor, log logger.Logger) {
	w.card("HDRVER", headerVersion, "Header version")
	w.card("FITSTYPE", "PSRFITS", "FITS definition for pulsar data files")
	w.card("TELESCOP", d.Observatory, "Telescope name")
	w.card("ANT_X", d.TelescopeX, "[m] Antenna ITRF X-coordinate")
	w.card("ANT_Y", d.TelescopeY, "[m] Antenna ITRF Y-coordinate")
	w.card("ANT_Z", d.TelescopeZ, "[m] Antenna ITRF Z-coordinate")
	w.card("OBS_MODE", d.obsMode(), "(PSR, CAL, SEARCH, PCM)")
	w.card("SRC_NAME", d.Source, "Source or scan ID")
	w.card("BACKEND", d.Instrument, "Backend ID")
	w.card("DATE-OBS", coord.DateObs(d.MJDStart), "Date of observation (YYYY-MM-DDThh:mm:ss, UTC)")
	w.card("RA", coord.FormatRA(d.RA), "Right ascension (hh:mm:ss.ssss)")
	w.card("DEC", coord.FormatDec(d.Dec), "Declination (-dd:mm:ss.sss)")
	w.card("EQUINOX", 2000.0, "Equinox of coords (e.g. 2000.0)")
	w.card("COORD_MD", "J2000", "Coordinate mode (J2000, GAL, ECLIP, etc.)")
	w.card("OBSERVER", "", "Observer name(s)")
	w.card("FRONTEND", "", "Receiver ID")
	w.card("PROJID", "", "Project name")
	w.card("OBSNCHAN", d.NrFreqChan, "Number of frequency channels (original)")
	w.card("OBSBW", d.Bandwidth, "[MHz] Bandwidth for observation")
	w.card("CHAN_DM", 0.0, "[cm-3 pc] DM used for on-line dedispersion")
	w.card("TRK_MODE", "TRACK", "Track mode (TRACK, SCANGC, SCANLAT)")
	w.card("BMIN", 0.0, "[deg] Beam minor axis length")

	poln, hand := "", 1
	switch d.FeedType {
	case FeedLinear:
		poln = "LIN"
	case FeedInvLinear:
		poln, hand = "LIN", -1
	case FeedCircular:
		poln = "CIRC"
	case FeedInvCircular:
		poln, hand = "CIRC", -1
	default:
		log.Warn("feed type unknown")
	}
	if poln != "" {
		w.card("FD_POLN", poln, "LIN or CIRC")
		w.card("FD_HAND", hand, "+/- 1. +1 is LIN:A=X,B=Y, CIRC:A=L,B=R (I)")
	}
	w.card("OBSFREQ", d.obsFreq(), "[MHz] Centre frequency for observation")

	days, secs, offs := coord.SplitMJD(d.MJDStart)
	w.card("STT_IMJD", days, "Start MJD (UTC days) (J - long integer)")
	w.card("STT_SMJD", secs, "[s] Start time (sec past UTC 00h) (J)")
	w.card("STT_OFFS", offs, "[s] Start time offset (D)")

	w.card("PS_GTYPE", int(d.GenType), "Data category")
	if r := d.XRange; r != nil {
		w.card("PS_XMIN", r.Min, "Minimum of the x axis")
		w.card("PS_XMAX", r.Max, "Maximum of the x axis")
	}
	if r := d.YRange; r != nil {
		w.card("PS_YMIN", r.Min, "Minimum of the y axis")
		w.card("PS_YMAX", r.Max, "Maximum of the y axis")
	}
	if d.CableSwap != Unknown {
		w.card("PS_CSW", int(d.CableSwap), "Cables swapped during observation")
	}
	if d.CableSwapCorrected != Unknown {
		w.card("PS_CSWC", int(d.CableSwapCorrected), "Cable swap corrected")
	}
	w.card("PS_DBASE", int(d.Debased), "Baseline subtracted")
}

var historyColumns = []table.ColumnDef{
	{Name: "POL_TYPE", Format: "8A"},
	{Name: "NPOL", Format: "1I"},
	{Name: "NBIN", Format: "1I"},
	{Name: "TBIN", Format: "1D", Unit: "s"},
	{Name: "CTR_FREQ", Format: "1D", Unit: "MHz"},
	{Name: "NCHAN", Format: "1I"},
	{Name: "CHAN_BW", Format: "1D", Unit: "MHz"},
	{Name: "RM_CORR", Format: "1I"},
	{Name: "DEDISP", Format: "1I"},
	{Name: "PR_CORR", Format: "1I"},
}

var processingColumns = []table.ColumnDef{
	{Name: "DATE_PRO", Format: "24A"},
	{Name: "USER", Format: "24A"},
	{Name: "HOSTNAME", Format: "32A"},
	{Name: "PROC_CMD", Format: "1024A"},
}

const procCmdWidth = 1024

func writeHistoryTable(w *schemaWriter, d *Descriptor) {
	w.create("HISTORY", 1, historyColumns)
	w.text(0, 0, d.PolType.keyword())
	w.float(1, 0, float64(d.NrPols))
	w.float(2, 0, float64(d.NrBins))
	w.float(3, 0, d.tbin())
	w.float(4, 0, d.obsFreq())
	w.float(5, 0, float64(d.NrFreqChan))
	w.float(6, 0, d.ChannelBW())
	w.float(7, 0, float64(d.DeFaraday))
	w.float(8, 0, float64(d.DeDispersed))
	w.float(9, 0, float64(d.DeParallactic))

	w.create("HISTORY_NOT_PSRFITS", 0, processingColumns)
}

// SUBINT column positions.
const (
	colTsubint = 1
	colOffsSub = 2
	colDatFreq = 13
	colDatWts  = 14
	colPeriod  = 18
)

func subintColumnDefs(nchan, npol int, dataFormat string) []table.ColumnDef {
	cols := []table.ColumnDef{
		{Name: "INDEXVAL", Format: "1D"},
		{Name: "TSUBINT", Format: "1D", Unit: "s"},
		{Name: "OFFS_SUB", Format: "1D", Unit: "s"},
		{Name: "LST_SUB", Format: "1D", Unit: "s"},
		{Name: "RA_SUB", Format: "1D", Unit: "deg"},
		{Name: "DEC_SUB", Format: "1D", Unit: "deg"},
		{Name: "GLON_SUB", Format: "1D", Unit: "deg"},
		{Name: "GLAT_SUB", Format: "1D", Unit: "deg"},
		{Name: "FD_ANG", Format: "1E", Unit: "deg"},
		{Name: "POS_ANG", Format: "1E", Unit: "deg"},
		{Name: "PAR_ANG", Format: "1E", Unit: "deg"},
		{Name: "TEL_AZ", Format: "1E", Unit: "deg"},
		{Name: "TEL_ZEN", Format: "1E", Unit: "deg"},
		{Name: "DAT_FREQ", Format: fmt.Sprintf("%dD", nchan), Unit: "MHz"},
		{Name: "DAT_WTS", Format: fmt.Sprintf("%dD", nchan)},
		{Name: "DAT_OFFS", Format: fmt.Sprintf("%dE", nchan*npol)},
		{Name: "DAT_SCL", Format: fmt.Sprintf("%dE", nchan*npol)},
		{Name: "DATA", Format: dataFormat, Unit: "Jy"},
		{Name: "PERIOD", Format: "1D", Unit: "s"},
	}
	return cols
}

func writeSubintTable(w *schemaWriter, d *Descriptor, log logger.Logger) {
	nchan, npol, nbin := d.NrFreqChan, d.NrPols, d.NrBins
	folded := d.folded()
	dataFormat := fmt.Sprintf("%dI", nchan*npol*nbin)
	if !folded {
		dataFormat = fmt.Sprintf("%db", quant.PackedSize(nchan*npol*nbin, d.NrBits))
	}
	w.create("SUBINT", d.NrSubints, subintColumnDefs(nchan, npol, dataFormat))

	w.card("INT_TYPE", "TIME", "Time axis (TIME, BINPHSPERI, BINLNGASC, etc)")
	w.card("INT_UNIT", "SEC", "Unit of time axis (SEC, PHS (0-1), DEG)")
	if d.PolType == PolUnknown {
		log.Warn("polarization type unknown")
	}
	w.card("POL_TYPE", d.PolType.keyword(), "Polarisation identifier (e.g., AABBCRCI, AA+BB)")
	w.card("NPOL", npol, "Nr of polarisations")
	w.card("NCHNOFFS", 0, "Channel/sub-band offset for split files")
	w.card("NSUBOFFS", 0, "Subint offset (Contiguous SEARCH-mode files)")
	w.card("TBIN", d.tbin(), "[s] Time per bin or sample")
	if folded {
		w.card("NBIN", nbin, "Nr of bins (PSR/CAL mode; else 1)")
	} else {
		w.card("NBIN", 1, "Nr of bins (PSR/CAL mode; else 1)")
		w.card("NSBLK", nbin, "Samples/row (SEARCH mode, else 1)")
		w.card("NBITS", d.NrBits, "Nr of bits/datum (SEARCH mode data, else 1)")
	}
	w.card("NCHAN", nchan, "Number of channels/sub-bands in this file")
	w.card("CHAN_BW", d.ChannelBW(), "[MHz] Channel/sub-band width")
	w.card("DM", d.DM, "[cm-3 pc] DM for post-detection dedisperion")
	w.card("RM", d.RM, "[rad m-2] RM for post-detection deFaraday")

	freqs := make([]float64, nchan)
	for j := range freqs {
		freqs[j] = d.ChannelFreq(j)
	}
	weights := ones(nchan)
	period := d.FixedPeriod
	if p, ok := d.Period(); ok {
		period = p
	}
	for i := 0; i < d.NrSubints; i++ {
		w.float(colPeriod, i, period)
		w.float(colTsubint, i, d.Tsub(i))
		w.floats(colDatFreq, i, 0, freqs)
		w.floats(colDatWts, i, 0, weights)
	}
}

// receiverErrorFill is the DATAERR value written before any parameter is set.
const receiverErrorFill = 1e-5

func writeFeedpar(w *schemaWriter, d *Descriptor, calMthd string) {
	s := d.Shape().(ReceiverShape)
	nchan, ncpar := d.NrFreqChan, s.NrParams
	cols := []table.ColumnDef{
		{Name: "DAT_FREQ", Format: fmt.Sprintf("%dE", nchan), Unit: "MHz"},
		{Name: "DAT_WTS", Format: fmt.Sprintf("%dE", nchan)},
		{Name: "DATA", Format: fmt.Sprintf("%dE", nchan*ncpar)},
		{Name: "DATAERR", Format: fmt.Sprintf("%dE", nchan*ncpar)},
	}
	if s.WithFit {
		cols = append(cols,
			table.ColumnDef{Name: "CHISQ", Format: fmt.Sprintf("%dE", nchan)},
			table.ColumnDef{Name: "NFREE", Format: fmt.Sprintf("%dJ", nchan)},
		)
	}
	w.create("FEEDPAR", d.NrSubints, cols)
	w.card("CAL_MTHD", calMthd, "Cross-coupling method")
	w.card("NCPAR", ncpar, "Number of coupling parameters")
	w.card("NCHAN", nchan, "Nr of channels in Feed coupling data")
	for k := 0; k < ncpar; k++ {
		p := receiverParams[k]
		w.card(fmt.Sprintf("PAR_%04d", k), p.name, p.comment)
	}

	freqs := make([]float64, nchan)
	for j := range freqs {
		freqs[j] = d.ChannelFreq(j)
	}
	errs := make([]float64, nchan*ncpar)
	for i := range errs {
		errs[i] = receiverErrorFill
	}
	for i := 0; i < d.NrSubints; i++ {
		w.floats(0, i, 0, freqs)
		w.floats(1, i, 0, ones(nchan))
		w.floats(3, i, 0, errs)
	}
}
