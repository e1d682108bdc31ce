package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/psrio/internal/ephem"
	"github.com/samcharles93/psrio/internal/logger"
	"github.com/samcharles93/psrio/pkg/psrfits"
	"github.com/samcharles93/psrio/pkg/table"
	"github.com/samcharles93/psrio/pkg/tablefile"
)

func newLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	return logger.ForFormat(os.Stderr, logFormat, level)
}

// observation is a loaded table file with its decoded descriptor.
type observation struct {
	path  string
	store *table.Store
	file  *psrfits.File
}

func readOptions(path string, log logger.Logger) (psrfits.ReadOptions, error) {
	mode, err := psrfits.ParseWeightMode(weights)
	if err != nil {
		return psrfits.ReadOptions{}, err
	}
	opts := psrfits.ReadOptions{
		Filename:         path,
		Weights:          mode,
		NoScales:         noScales,
		SplitHistoryRows: splitHistory,
		WeightedFreq:     weightedFreq,
		Logger:           log,
	}
	if ephemerisTmpl != "" {
		opts.Predictor = ephem.Command{Template: ephemerisTmpl}
	}
	return opts, nil
}

func openObservation(ctx context.Context, c *cli.Command, path string) (*observation, error) {
	cfg := LoadConfig()
	applyLogConfig(c, cfg)
	applyReadConfig(c, cfg)
	log := newLogger()

	opts, err := readOptions(path, log)
	if err != nil {
		return nil, err
	}
	s, err := tablefile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	f, err := psrfits.Open(ctx, s, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &observation{path: path, store: s, file: f}, nil
}

func requireArgs(c *cli.Command, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%s: expected at least %d FILE argument(s), got %d", c.Name, n, c.NArg())
	}
	return nil
}
