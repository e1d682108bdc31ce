// Package coord converts sexagesimal sky coordinates and MJD epochs to and
// from the string and integer forms stored in file headers.
package coord

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrSexagesimal = errors.New("coord: invalid sexagesimal value")

// ParseSexagesimal parses "[-]a:b:c.c" (or fewer fields) into a decimal
// value in the unit of the first field.
func ParseSexagesimal(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "'")
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrSexagesimal)
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrSexagesimal, s)
	}
	v := 0.0
	div := 1.0
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || f < 0 || (i > 0 && f >= 60) {
			return 0, fmt.Errorf("%w: %q", ErrSexagesimal, s)
		}
		v += f / div
		div *= 60
	}
	if neg {
		v = -v
	}
	return v, nil
}

// FormatSexagesimal renders v as "aa:bb:cc.ccc" with the given number of
// decimals on the last field. A leading sign is always written when sign is
// set.
func FormatSexagesimal(v float64, decimals int, sign bool) string {
	prefix := ""
	if v < 0 {
		prefix = "-"
		v = -v
	} else if sign {
		prefix = "+"
	}
	unit := math.Pow(10, float64(decimals))
	total := math.Round(v * 3600 * unit)
	a := math.Floor(total / (3600 * unit))
	total -= a * 3600 * unit
	b := math.Floor(total / (60 * unit))
	total -= b * 60 * unit
	c := total / unit
	width := 2
	if decimals > 0 {
		width = 3 + decimals
	}
	return fmt.Sprintf("%s%02d:%02d:%0*.*f", prefix, int(a), int(b), width, decimals, c)
}

// ParseRA parses "hh:mm:ss.s" into radians.
func ParseRA(s string) (float64, error) {
	h, err := ParseSexagesimal(s)
	if err != nil {
		return 0, err
	}
	return h * math.Pi / 12, nil
}

// FormatRA renders radians as "hh:mm:ss.ssss".
func FormatRA(rad float64) string {
	return FormatSexagesimal(rad*12/math.Pi, 4, false)
}

// ParseDec parses "[-]dd:mm:ss.s" into radians.
func ParseDec(s string) (float64, error) {
	d, err := ParseSexagesimal(s)
	if err != nil {
		return 0, err
	}
	return d * math.Pi / 180, nil
}

// FormatDec renders radians as "+dd:mm:ss.sss".
func FormatDec(rad float64) string {
	return FormatSexagesimal(rad*180/math.Pi, 3, true)
}

const (
	secondsPerDay = 86400.0
	mjdUnixEpoch  = 40587.0
)

// SplitMJD splits an MJD into the STT_IMJD, STT_SMJD and STT_OFFS header
// values. The offset may be slightly negative because the second count is
// rounded.
func SplitMJD(mjd float64) (days, secs int64, offs float64) {
	days = int64(math.Floor(mjd))
	frac := (mjd - float64(days)) * secondsPerDay
	secs = int64(frac + 0.5)
	return days, secs, frac - float64(secs)
}

// JoinMJD is the inverse of SplitMJD.
func JoinMJD(days, secs int64, offs float64) float64 {
	return float64(days) + (float64(secs)+offs)/secondsPerDay
}

// DateObs renders an MJD as a DATE-OBS value, "2006-01-02T15:04:05".
func DateObs(mjd float64) string {
	sec := (mjd - mjdUnixEpoch) * secondsPerDay
	whole := math.Floor(sec)
	t := time.Unix(int64(whole), int64((sec-whole)*1e9)).UTC()
	return t.Format("2006-01-02T15:04:05")
}
