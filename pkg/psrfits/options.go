package psrfits

import (
	"context"
	"fmt"
	"strings"

	"github.com/samcharles93/psrio/internal/logger"
)

// WeightMode selects how DAT_WTS is applied to dequantized samples.
type WeightMode int

const (
	// WeightsSigned multiplies by the stored weight.
	WeightsSigned WeightMode = iota
	// WeightsAbsolute multiplies by the magnitude of the weight.
	WeightsAbsolute
	// WeightsIgnore leaves samples unweighted.
	WeightsIgnore
)

// ParseWeightMode accepts "signed", "absolute" or "ignore".
func ParseWeightMode(s string) (WeightMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "signed":
		return WeightsSigned, nil
	case "absolute", "abs":
		return WeightsAbsolute, nil
	case "ignore", "none":
		return WeightsIgnore, nil
	default:
		return WeightsSigned, fmt.Errorf("psrfits: unknown weight mode %q", s)
	}
}

func (m WeightMode) String() string {
	switch m {
	case WeightsAbsolute:
		return "absolute"
	case WeightsIgnore:
		return "ignore"
	default:
		return "signed"
	}
}

func (m WeightMode) apply(v, w float64) float64 {
	switch m {
	case WeightsAbsolute:
		if w < 0 {
			w = -w
		}
		return v * w
	case WeightsIgnore:
		return v
	default:
		return v * w
	}
}

// PeriodPredictor supplies a folding period when the file itself does not
// carry one.
type PeriodPredictor interface {
	PredictPeriod(ctx context.Context, filename string) (float64, error)
}

// ReadOptions configures Open.
type ReadOptions struct {
	// Filename is used in log records and passed to the Predictor.
	Filename string
	Weights  WeightMode
	// NoScales skips loading DAT_SCL/DAT_OFFS/DAT_WTS. ReadPulse then fails.
	NoScales bool
	// SplitHistoryRows returns every history row as its own entry instead
	// of joining command continuations.
	SplitHistoryRows bool
	// WeightedFreq makes ReadPulse set the centre frequency from the
	// subintegration's DAT_FREQ before returning samples.
	WeightedFreq bool
	Predictor    PeriodPredictor
	Logger       logger.Logger
}

// WriteOptions configures Create.
type WriteOptions struct {
	Filename string
	Logger   logger.Logger
}

func fileLogger(l logger.Logger, filename string) logger.Logger {
	if l == nil {
		l = logger.Default()
	}
	if filename != "" {
		l = l.With("file", filename)
	}
	return l
}
