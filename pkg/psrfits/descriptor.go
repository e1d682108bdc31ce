package psrfits

import (
	"fmt"
	"strings"
)

// GenType is the data category of a file. The numeric values are stored in
// the PS_GTYPE keyword and must not change.
type GenType int

const (
	Undefined       GenType = 0
	PulseStack      GenType = 1
	SubIntegrations GenType = 2
	Profile         GenType = 3
	SearchMode      GenType = 4
	PolnCal         GenType = 5
	ReceiverModel   GenType = 6
	ReceiverModel2  GenType = 7
)

var genTypeNames = map[GenType]string{
	Undefined:       "undefined",
	PulseStack:      "pulse stack",
	SubIntegrations: "subintegrations",
	Profile:         "profile",
	SearchMode:      "search mode",
	PolnCal:         "polarization calibration",
	ReceiverModel:   "receiver model",
	ReceiverModel2:  "receiver model (with fit quality)",
}

func (g GenType) String() string {
	if s, ok := genTypeNames[g]; ok {
		return s
	}
	return fmt.Sprintf("GenType(%d)", int(g))
}

func (g GenType) valid() bool {
	_, ok := genTypeNames[g]
	return ok
}

// MarshalText renders the category name.
func (g GenType) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// Receiver reports whether g describes a receiver coupling model.
func (g GenType) Receiver() bool {
	return g == ReceiverModel || g == ReceiverModel2
}

// PolType is the meaning of the polarization axis.
type PolType int

const (
	PolUnknown PolType = iota
	PolStokes
	PolCoherency
	PolILVPAdPA
	PolPAdPA
)

// keyword returns the POL_TYPE spelling written to files.
func (p PolType) keyword() string {
	switch p {
	case PolStokes:
		return "STOKES"
	case PolCoherency:
		return "AABBCRCI"
	case PolILVPAdPA:
		return "ILVPAdPA"
	case PolPAdPA:
		return "PAdPA"
	default:
		return "UNKNOWN"
	}
}

func (p PolType) String() string { return p.keyword() }

func (p PolType) MarshalText() ([]byte, error) { return []byte(p.keyword()), nil }

// parsePolType maps a POL_TYPE value, including legacy aliases. ok is false
// for unrecognised spellings.
func parsePolType(s string) (PolType, bool) {
	switch strings.TrimSpace(s) {
	case "STOKES", "STOKE", "INTEN", "IQUV":
		return PolStokes, true
	case "AABBCRCI":
		return PolCoherency, true
	case "ILVPAdPA", "ILVPADPA", "ILVPA":
		return PolILVPAdPA, true
	case "PAdPA", "PADPA", "PA":
		return PolPAdPA, true
	case "UNKNOWN":
		return PolUnknown, true
	default:
		return PolUnknown, false
	}
}

// FeedType combines FD_POLN and FD_HAND. Inverted handedness is the
// negative of the basis.
type FeedType int

const (
	FeedUnknown     FeedType = 0
	FeedLinear      FeedType = 1
	FeedCircular    FeedType = 2
	FeedInvLinear   FeedType = -1
	FeedInvCircular FeedType = -2
)

func (f FeedType) String() string {
	switch f {
	case FeedLinear:
		return "linear"
	case FeedCircular:
		return "circular"
	case FeedInvLinear:
		return "linear (inverted)"
	case FeedInvCircular:
		return "circular (inverted)"
	default:
		return "unknown"
	}
}

func (f FeedType) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// Mode says how a quantity is known.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeFixed
	ModeList
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeList:
		return "list"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Correction is a tri-state flag as stored in integer columns and keywords.
type Correction int

const (
	Unknown Correction = -1
	No      Correction = 0
	Yes     Correction = 1
)

func correctionOf(v int64) Correction {
	switch {
	case v > 0:
		return Yes
	case v == 0:
		return No
	default:
		return Unknown
	}
}

func (c Correction) String() string {
	switch c {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

func (c Correction) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Range is an optional axis range (PS_XMIN/PS_XMAX or PS_YMIN/PS_YMAX).
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Descriptor is the in-memory description of one observation file.
type Descriptor struct {
	Filename    string `json:"filename,omitempty"`
	Source      string `json:"source"`
	Observatory string `json:"observatory"`
	Instrument  string `json:"instrument"`

	// ITRF antenna position in metres.
	TelescopeX float64 `json:"telescope_x"`
	TelescopeY float64 `json:"telescope_y"`
	TelescopeZ float64 `json:"telescope_z"`

	// RA and Dec in radians.
	RA       float64 `json:"ra"`
	Dec      float64 `json:"dec"`
	MJDStart float64 `json:"mjd_start"`

	NrSubints  int `json:"nr_subints"`
	NrFreqChan int `json:"nr_freq_chan"`
	NrPols     int `json:"nr_pols"`
	NrBins     int `json:"nr_bins"`
	NrBits     int `json:"nr_bits"`

	GenType  GenType `json:"gentype"`
	IsFolded bool    `json:"is_folded"`

	FoldMode    Mode      `json:"fold_mode"`
	FixedPeriod float64   `json:"period"`
	TsampMode   Mode      `json:"tsamp_mode"`
	FixedTsamp  float64   `json:"tsamp"`
	TsubMode    Mode      `json:"tsub_mode"`
	TsubList    []float64 `json:"tsub,omitempty"`

	// CentreFreq and RefFreq in MHz; Bandwidth is the total bandwidth.
	FreqMode   Mode    `json:"freq_mode"`
	CentreFreq float64 `json:"centre_freq"`
	Bandwidth  float64 `json:"bandwidth"`
	RefFreq    float64 `json:"ref_freq"`

	PolType  PolType  `json:"pol_type"`
	FeedType FeedType `json:"feed_type"`

	DM float64 `json:"dm"`
	RM float64 `json:"rm"`

	DeDispersed   Correction `json:"dedispersed"`
	DeFaraday     Correction `json:"defaraday"`
	DeParallactic Correction `json:"deparallactic"`

	CableSwap          Correction `json:"cable_swap"`
	CableSwapCorrected Correction `json:"cable_swap_corrected"`
	Debased            Correction `json:"debased"`

	XRange *Range `json:"x_range,omitempty"`
	YRange *Range `json:"y_range,omitempty"`

	History History     `json:"history"`
	Scales  *ScaleTable `json:"-"`
}

// NewDescriptor returns a descriptor with every tri-state flag unknown.
func NewDescriptor() *Descriptor {
	return &Descriptor{
		FixedPeriod:        -1,
		DeDispersed:        Unknown,
		DeFaraday:          Unknown,
		DeParallactic:      Unknown,
		CableSwap:          Unknown,
		CableSwapCorrected: Unknown,
		Debased:            Unknown,
	}
}

// Period returns the folding period in seconds.
func (d *Descriptor) Period() (float64, bool) {
	if !d.IsFolded || d.FoldMode != ModeFixed || d.FixedPeriod <= 0 {
		return 0, false
	}
	return d.FixedPeriod, true
}

// Tsamp returns the sampling time in seconds.
func (d *Descriptor) Tsamp() (float64, bool) {
	if d.TsampMode != ModeFixed || d.FixedTsamp <= 0 {
		return 0, false
	}
	return d.FixedTsamp, true
}

// Tsub returns the duration of subintegration i, or 0 when unknown.
func (d *Descriptor) Tsub(i int) float64 {
	switch d.TsubMode {
	case ModeFixed:
		if len(d.TsubList) > 0 {
			return d.TsubList[0]
		}
	case ModeList:
		if i >= 0 && i < len(d.TsubList) {
			return d.TsubList[i]
		}
	}
	return 0
}

// ChannelBW returns the width of one channel in MHz.
func (d *Descriptor) ChannelBW() float64 {
	if d.NrFreqChan <= 0 {
		return 0
	}
	return d.Bandwidth / float64(d.NrFreqChan)
}

// ChannelFreq returns the centre frequency of channel ch.
func (d *Descriptor) ChannelFreq(ch int) float64 {
	return d.CentreFreq + (float64(ch)-0.5*float64(d.NrFreqChan-1))*d.ChannelBW()
}

// folded reports whether samples are stored as 16-bit folded profiles.
func (d *Descriptor) folded() bool {
	_, ok := d.Period()
	return d.GenType != SearchMode && ok
}

// plausibleFrequency rejects unset frequencies. -1 stands for infinite
// frequency.
func plausibleFrequency(f float64) bool {
	return f >= 1 || (f >= -1.1 && f <= -0.9)
}
