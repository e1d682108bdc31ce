package main

import "github.com/urfave/cli/v3"

var (
	logLevel      string
	logFormat     string
	debug         bool
	weights       string
	noScales      bool
	splitHistory  bool
	weightedFreq  bool
	ephemerisTmpl string
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func readFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "weights",
			Usage:       "how DAT_WTS is applied (signed, absolute, ignore)",
			Value:       "signed",
			Destination: &weights,
		},
		&cli.BoolFlag{
			Name:        "no-scales",
			Usage:       "do not load scales, offsets and weights",
			Destination: &noScales,
		},
		&cli.BoolFlag{
			Name:        "split-history",
			Usage:       "list every history row instead of joining continued commands",
			Destination: &splitHistory,
		},
		&cli.BoolFlag{
			Name:        "weighted-freq",
			Usage:       "take the centre frequency from each subintegration's DAT_FREQ when reading samples",
			Destination: &weightedFreq,
		},
		&cli.StringFlag{
			Name:        "ephemeris-command",
			Aliases:     []string{"ephem"},
			Usage:       "command printing the folding period when the file has none; {file} is replaced by the path",
			Destination: &ephemerisTmpl,
		},
	}
}
