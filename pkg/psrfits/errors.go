package psrfits

import "errors"

var (
	ErrNotPSRFITS       = errors.New("psrfits: not a PSRFITS file")
	ErrMissingKeyword   = errors.New("psrfits: required keyword missing")
	ErrNoData           = errors.New("psrfits: no SUBINT or FEEDPAR table")
	ErrMissingEphemeris = errors.New("psrfits: value not in SUBINT header or PSREPHEM table")
	ErrShortTable       = errors.New("psrfits: SUBINT table has too few columns")
	ErrShape            = errors.New("psrfits: operation does not match the data shape")
	ErrPartialPulse     = errors.New("psrfits: only a full pulse can be written")
	ErrNoScales         = errors.New("psrfits: scale table not loaded")
	ErrScaleLayout      = errors.New("psrfits: unrecognised scale layout")
	ErrIndex            = errors.New("psrfits: index out of range")
	ErrNoHistory        = errors.New("psrfits: no history table")
	ErrDimensions       = errors.New("psrfits: invalid dimensions")
)

// errUnresolved is returned by resolveFirst when no resolver applied.
var errUnresolved = errors.New("psrfits: no source yielded a value")
