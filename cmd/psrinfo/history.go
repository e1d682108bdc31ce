package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/psrio/pkg/tablefile"
)

func historyCmd() *cli.Command {
	var (
		appendCmd string
		compress  bool
	)
	return &cli.Command{
		Name:      "history",
		Usage:     "Print the processing history of a file, optionally recording a new step",
		ArgsUsage: "FILE",
		Flags: append(readFlags(),
			&cli.StringFlag{Name: "append", Usage: "record this command as a new history entry and rewrite the file", Destination: &appendCmd},
			&cli.BoolFlag{Name: "compress", Usage: "compress the rewritten file", Destination: &compress},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			obs, err := openObservation(ctx, c, c.Args().First())
			if err != nil {
				return err
			}
			if err := obs.file.ReadHistory(); err != nil {
				return err
			}
			if appendCmd != "" {
				if !c.IsSet("compress") {
					if cfg := LoadConfig(); cfg.Compress != nil {
						compress = *cfg.Compress
					}
				}
				if err := obs.file.AddHistory(appendCmd); err != nil {
					return err
				}
				if err := tablefile.Save(obs.path, obs.store, tablefile.SaveOptions{Compress: compress}); err != nil {
					return fmt.Errorf("save %s: %w", obs.path, err)
				}
			}
			for i, e := range obs.file.Descriptor().History.Entries() {
				who := strings.TrimSuffix(e.User+"@"+e.Hostname, "@")
				_, _ = fmt.Fprintf(os.Stdout, "%3d  %-19s  %-24s  %s\n", i, e.Timestamp, who, e.Command)
			}
			return nil
		},
	}
}
