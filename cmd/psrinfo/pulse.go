package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func pulseCmd() *cli.Command {
	var sub, pol, ch, start, count int64
	return &cli.Command{
		Name:      "pulse",
		Usage:     "Print the samples of one (subint, pol, channel)",
		ArgsUsage: "FILE",
		Flags: append(readFlags(),
			&cli.Int64Flag{Name: "subint", Aliases: []string{"s"}, Usage: "subintegration index", Destination: &sub},
			&cli.Int64Flag{Name: "pol", Aliases: []string{"p"}, Usage: "polarization index", Destination: &pol},
			&cli.Int64Flag{Name: "chan", Aliases: []string{"c"}, Usage: "frequency channel index", Destination: &ch},
			&cli.Int64Flag{Name: "start", Usage: "first bin", Destination: &start},
			&cli.Int64Flag{Name: "count", Aliases: []string{"n"}, Usage: "number of bins (0 for the rest of the pulse)", Destination: &count},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			obs, err := openObservation(ctx, c, c.Args().First())
			if err != nil {
				return err
			}
			n := int(count)
			if n == 0 {
				n = obs.file.Descriptor().NrBins - int(start)
			}
			samples, err := obs.file.ReadPulse(int(sub), int(pol), int(ch), int(start), n)
			if err != nil {
				return err
			}
			for i, v := range samples {
				_, _ = fmt.Fprintf(os.Stdout, "%d\t%g\n", int(start)+i, v)
			}
			return nil
		},
	}
}
