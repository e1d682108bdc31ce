package psrfits

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestHistoryRoundTrip(t *testing.T) {
	t.Parallel()
	s, f := createFile(t, newFoldDescriptor())
	long := "psradd " + strings.Repeat("obs.ar,", 400)
	if err := f.AddHistory("psradd -o sum.ar *.ar"); err != nil {
		t.Fatalf("AddHistory: %v", err)
	}
	if err := f.AddHistory(long); err != nil {
		t.Fatalf("AddHistory: %v", err)
	}
	if err := f.WriteHistory(); err != nil {
		t.Fatalf("second WriteHistory: %v", err)
	}

	if err := s.MoveTo("HISTORY_NOT_PSRFITS"); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}
	rows, _ := s.NumRows()
	wantRows := 1 + (len(long)+procCmdWidth-1)/procCmdWidth
	if rows != wantRows {
		t.Fatalf("rows mismatch: got %d want %d", rows, wantRows)
	}

	g := openFile(t, s, ReadOptions{})
	if err := g.ReadHistory(); err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	entries := g.Descriptor().History.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries mismatch: got %d want 2", len(entries))
	}
	if entries[0].Command != "psradd -o sum.ar *.ar" {
		t.Fatalf("command mismatch: got %q", entries[0].Command)
	}
	if entries[1].Command != long {
		t.Fatalf("joined command mismatch: got %d bytes want %d", len(entries[1].Command), len(long))
	}
	if entries[1].Timestamp == "" || entries[1].User == "" || entries[1].Hostname == "" {
		t.Fatalf("entry stamp missing: %+v", entries[1])
	}

	split := openFile(t, s, ReadOptions{SplitHistoryRows: true})
	if err := split.ReadHistory(); err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if n := split.Descriptor().History.Len(); n != wantRows {
		t.Fatalf("split entries mismatch: got %d want %d", n, wantRows)
	}
}

func TestHistoryAppendAfterRead(t *testing.T) {
	t.Parallel()
	s, f := createFile(t, newFoldDescriptor())
	if err := f.AddHistory("first"); err != nil {
		t.Fatalf("AddHistory: %v", err)
	}
	g := openFile(t, s, ReadOptions{})
	g.Descriptor().History.Append(NewHistoryEntry("pending"))
	if err := g.ReadHistory(); err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	entries := g.Descriptor().History.Entries()
	if len(entries) != 2 || entries[0].Command != "first" || entries[1].Command != "pending" {
		t.Fatalf("entries mismatch: got %+v", entries)
	}
	if err := g.WriteHistory(); err != nil {
		t.Fatalf("WriteHistory: %v", err)
	}
	_ = s.MoveTo("HISTORY_NOT_PSRFITS")
	if rows, _ := s.NumRows(); rows != 2 {
		t.Fatalf("rows mismatch: got %d want 2", rows)
	}
}

func TestHistoryEmptyAndMissing(t *testing.T) {
	t.Parallel()
	s, _ := createFile(t, newFoldDescriptor())
	f := openFile(t, s, ReadOptions{})
	if err := f.ReadHistory(); err != nil {
		t.Fatalf("empty history: %v", err)
	}
	if f.Descriptor().History.Len() != 0 {
		t.Fatalf("empty history has %d entries", f.Descriptor().History.Len())
	}

	b := hidingBackend{Backend: s, tables: map[string]bool{"HISTORY_NOT_PSRFITS": true}}
	g := openFile(t, b, ReadOptions{})
	if err := g.ReadHistory(); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("missing history error mismatch: got %v", err)
	}
}

func TestHistorySpaceAtRowBoundary(t *testing.T) {
	t.Parallel()
	s, f := createFile(t, newFoldDescriptor())
	cmd := strings.Repeat("a", procCmdWidth-1) + " tail"
	if err := f.AddHistory(cmd); err != nil {
		t.Fatalf("AddHistory: %v", err)
	}
	g := openFile(t, s, ReadOptions{})
	if err := g.ReadHistory(); err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	entries := g.Descriptor().History.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries mismatch: got %d want 1", len(entries))
	}
	if got := entries[0].Command; got != cmd {
		t.Fatalf("command mismatch: got %d bytes ending %q want %d bytes", len(got), got[len(got)-6:], len(cmd))
	}
}

func TestHistoryEmptyCommand(t *testing.T) {
	t.Parallel()
	s, f := createFile(t, newFoldDescriptor())
	if err := f.AddHistory(""); err != nil {
		t.Fatalf("AddHistory: %v", err)
	}
	g := openFile(t, s, ReadOptions{})
	if err := g.ReadHistory(); err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	entries := g.Descriptor().History.Entries()
	if len(entries) != 1 || entries[0].Command != "?" {
		t.Fatalf("empty command mismatch: got %+v", entries)
	}
}

func TestHistoryJSON(t *testing.T) {
	t.Parallel()
	var h History
	h.Append(HistoryEntry{Timestamp: "2024-01-02T03:04:05", Command: "pdv -h"})
	b, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back History
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Len() != 1 || back.Entries()[0].Command != "pdv -h" {
		t.Fatalf("history JSON mismatch: %s", b)
	}
}

func TestChunks(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		n    int
		want []string
	}{
		{"", 4, []string{""}},
		{"abcd", 4, []string{"abcd"}},
		{"abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"ab cdefg", 3, []string{"ab", " cd", "efg"}},
		{"a  bcdef", 3, []string{"a", "  b", "cde", "f"}},
	}
	for _, tc := range cases {
		got := chunks(tc.in, tc.n)
		if strings.Join(got, "|") != strings.Join(tc.want, "|") {
			t.Fatalf("chunks(%q) mismatch: got %q want %q", tc.in, got, tc.want)
		}
	}
}
