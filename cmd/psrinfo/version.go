package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/psrio/internal/version"
	"github.com/samcharles93/psrio/pkg/tablefile"
)

type versionReport struct {
	version.Info
	Format string `json:"table_format"`
}

func formatVersion() string {
	return fmt.Sprintf("%d.%d", tablefile.CurrentMajor, tablefile.CurrentMinor)
}

func versionCmd() *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:  "version",
		Usage: "Print version and table file format information",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print as JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return printVersion(os.Stdout, versionReport{Info: version.Resolve(), Format: formatVersion()}, asJSON)
		},
	}
}

func printVersion(w io.Writer, r versionReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, _ = fmt.Fprintf(w, "psrinfo %s\n", r.Version)
	if r.Commit != "" {
		_, _ = fmt.Fprintf(w, "  commit       %s\n", r.Commit)
	}
	if r.BuildTime != "" {
		_, _ = fmt.Fprintf(w, "  built        %s\n", r.BuildTime)
	}
	_, _ = fmt.Fprintf(w, "  go           %s\n", r.GoVersion)
	_, err := fmt.Fprintf(w, "  table format %s (reads major %d)\n", r.Format, tablefile.CurrentMajor)
	return err
}
