package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/psrio/pkg/psrfits"
)

// The flag destinations are package globals, so these tests do not run in
// parallel.

func resetGlobals() {
	logLevel, logFormat, debug = "", "", false
	weights, noScales, splitHistory, weightedFreq, ephemerisTmpl = "", false, false, false, ""
}

func writeConfig(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "psrio", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadConfigFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "weights: absolute\nno_scales: false\nephemeris_command: \"echo {file} 1\"\ncompress: true\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadConfigFrom(path)
	if err != nil {
		t.Fatalf("loadConfigFrom: %v", err)
	}
	if cfg.Weights != "absolute" || cfg.EphemerisCommand != "echo {file} 1" || cfg.LogLevel != "debug" {
		t.Fatalf("config mismatch: got %+v", cfg)
	}
	if cfg.NoScales == nil || *cfg.NoScales {
		t.Fatalf("no_scales mismatch: got %v", cfg.NoScales)
	}
	if cfg.Compress == nil || !*cfg.Compress {
		t.Fatalf("compress mismatch: got %v", cfg.Compress)
	}
	if cfg.SplitHistoryRows != nil {
		t.Fatalf("split_history_rows should be unset")
	}

	if _, err := loadConfigFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestApplyReadConfig(t *testing.T) {
	no := true
	cfg := Config{Weights: "ignore", NoScales: &no, EphemerisCommand: "vap {file}", LogFormat: "json"}

	t.Run("config fills unset flags", func(t *testing.T) {
		resetGlobals()
		cmd := &cli.Command{
			Name:  "x",
			Flags: append(loggingFlags(), readFlags()...),
			Action: func(ctx context.Context, c *cli.Command) error {
				applyLogConfig(c, cfg)
				applyReadConfig(c, cfg)
				return nil
			},
		}
		if err := cmd.Run(context.Background(), []string{"x"}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if weights != "ignore" || !noScales || ephemerisTmpl != "vap {file}" || logFormat != "json" {
			t.Fatalf("globals mismatch: weights=%q noScales=%v ephem=%q format=%q", weights, noScales, ephemerisTmpl, logFormat)
		}
	})

	t.Run("flags win over config", func(t *testing.T) {
		resetGlobals()
		cmd := &cli.Command{
			Name:  "x",
			Flags: append(loggingFlags(), readFlags()...),
			Action: func(ctx context.Context, c *cli.Command) error {
				applyLogConfig(c, cfg)
				applyReadConfig(c, cfg)
				return nil
			},
		}
		args := []string{"x", "--weights", "absolute", "--no-scales=false", "--log-format", "text"}
		if err := cmd.Run(context.Background(), args); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if weights != "absolute" || noScales || logFormat != "text" {
			t.Fatalf("globals mismatch: weights=%q noScales=%v format=%q", weights, noScales, logFormat)
		}
		if ephemerisTmpl != "vap {file}" {
			t.Fatalf("ephemeris mismatch: got %q", ephemerisTmpl)
		}
	})
}

func TestSimulateThenOpen(t *testing.T) {
	resetGlobals()
	writeConfig(t, "compress: true\nsplit_history_rows: true\n")
	out := filepath.Join(t.TempDir(), "sim.sf")

	sim := simulateCmd()
	args := []string{"simulate", "--out", out, "--mode", "search", "--nsub", "2", "--nchan", "4", "--nbin", "16", "--nbits", "4"}
	if err := sim.Run(context.Background(), args); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	var got *observation
	open := &cli.Command{
		Name:  "open",
		Flags: append(loggingFlags(), readFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			obs, err := openObservation(ctx, c, out)
			got = obs
			return err
		},
	}
	if err := open.Run(context.Background(), []string{"open", "--log-level", "error"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if !splitHistory {
		t.Fatalf("split_history_rows from config not applied")
	}
	d := got.file.Descriptor()
	if d.GenType != psrfits.SearchMode || d.NrSubints != 2 || d.NrFreqChan != 4 || d.NrBins != 16 || d.NrBits != 4 {
		t.Fatalf("descriptor mismatch: %+v", d)
	}
	samples, err := got.file.ReadPulse(1, 0, 2, 0, 16)
	if err != nil {
		t.Fatalf("ReadPulse: %v", err)
	}
	if len(samples) != 16 {
		t.Fatalf("samples mismatch: got %d want 16", len(samples))
	}
	if err := got.file.ReadHistory(); err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if n := d.History.Len(); n < 1 {
		t.Fatalf("history mismatch: got %d entries want at least 1", n)
	}
}

func TestSimulateRejectsMode(t *testing.T) {
	resetGlobals()
	if _, err := (simParams{mode: "baseband"}).descriptor(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
