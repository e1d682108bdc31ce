package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/psrio/internal/coord"
	"github.com/samcharles93/psrio/pkg/psrfits"
)

func headerCmd() *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:      "header",
		Usage:     "Print the observation parameters inferred from one or more files",
		ArgsUsage: "FILE...",
		Flags: append(readFlags(),
			&cli.BoolFlag{Name: "json", Usage: "print descriptors as JSON", Destination: &asJSON},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			var all []*psrfits.Descriptor
			for _, path := range c.Args().Slice() {
				obs, err := openObservation(ctx, c, path)
				if err != nil {
					return err
				}
				d := obs.file.Descriptor()
				if err := obs.file.ReadHistory(); err != nil {
					newLogger().Debug("no history", "file", path, "err", err)
				}
				if asJSON {
					all = append(all, d)
					continue
				}
				if err := printHeader(os.Stdout, d); err != nil {
					return err
				}
			}
			if !asJSON {
				return nil
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if len(all) == 1 {
				return enc.Encode(all[0])
			}
			return enc.Encode(all)
		},
	}
}

func printHeader(w io.Writer, d *psrfits.Descriptor) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(k string, v any) { _, _ = fmt.Fprintf(tw, "%s\t%v\n", k, v) }

	row("file", d.Filename)
	row("source", d.Source)
	row("telescope", d.Observatory)
	row("backend", d.Instrument)
	row("ra", coord.FormatRA(d.RA))
	row("dec", coord.FormatDec(d.Dec))
	row("mjd", fmt.Sprintf("%.9f", d.MJDStart))
	row("gentype", d.GenType)
	row("dims (sub x chan x pol x bin)", fmt.Sprintf("%d x %d x %d x %d", d.NrSubints, d.NrFreqChan, d.NrPols, d.NrBins))
	row("bits", d.NrBits)
	if p, ok := d.Period(); ok {
		row("period (s)", p)
	} else {
		row("period (s)", "unknown")
	}
	if ts, ok := d.Tsamp(); ok {
		row("tsamp (s)", ts)
	}
	row("centre freq (MHz)", d.CentreFreq)
	row("bandwidth (MHz)", d.Bandwidth)
	row("pol type", d.PolType)
	row("feed", d.FeedType)
	row("dm", d.DM)
	row("rm", d.RM)
	row("dedispersed", d.DeDispersed)
	row("defaraday", d.DeFaraday)
	row("history entries", d.History.Len())
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}
