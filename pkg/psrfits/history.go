package psrfits

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"
)

// HistoryEntry is one processing step recorded in the file.
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	User      string `json:"user,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
	Command   string `json:"command"`
}

// History is an ordered list of processing steps.
type History struct {
	entries []HistoryEntry
}

// Append adds an entry at the end.
func (h *History) Append(e HistoryEntry) { h.entries = append(h.entries, e) }

// Entries returns a copy of the entries.
func (h *History) Entries() []HistoryEntry {
	return append([]HistoryEntry(nil), h.entries...)
}

func (h *History) Len() int { return len(h.entries) }

func (h History) MarshalJSON() ([]byte, error) {
	if h.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.entries)
}

func (h *History) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &h.entries)
}

const historyTimeLayout = "2006-01-02T15:04:05"

// NewHistoryEntry stamps cmd with the current UTC time, user and host.
func NewHistoryEntry(cmd string) HistoryEntry {
	e := HistoryEntry{
		Timestamp: time.Now().UTC().Format(historyTimeLayout),
		Command:   cmd,
	}
	if u, err := user.Current(); err == nil {
		e.User = u.Username
	}
	if h, err := os.Hostname(); err == nil {
		e.Hostname = h
	}
	return e
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// chunks splits s into pieces of at most n bytes. An empty s gives one empty
// piece. A piece never ends in a space unless it is all spaces, since the
// backend trims trailing blanks from text cells.
func chunks(s string, n int) []string {
	if len(s) <= n {
		return []string{s}
	}
	var out []string
	for len(s) > n {
		cut := n
		for cut > 0 && s[cut-1] == ' ' {
			cut--
		}
		if cut == 0 {
			cut = n
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// WriteHistory appends the entries added since the file was opened or last
// written to HISTORY_NOT_PSRFITS. Commands longer than a row are continued
// on following rows that leave date, user and host empty.
func (f *File) WriteHistory() error {
	if f.d == nil {
		return fmt.Errorf("psrfits: file is closed")
	}
	pending := f.d.History.entries[f.persisted:]
	if len(pending) == 0 {
		return nil
	}
	if err := f.moveTo("HISTORY_NOT_PSRFITS"); err != nil {
		return fmt.Errorf("%w: %v", ErrNoHistory, err)
	}
	var cols [4]int
	for i, name := range []string{"DATE_PRO", "USER", "HOSTNAME", "PROC_CMD"} {
		c, err := f.col(name)
		if err != nil {
			return err
		}
		cols[i] = c
	}
	for _, e := range pending {
		parts := chunks(e.Command, procCmdWidth)
		row, err := f.b.NumRows()
		if err != nil {
			return err
		}
		if err := f.b.InsertRows(row, len(parts)); err != nil {
			return fmt.Errorf("psrfits: extend history: %w", err)
		}
		for i, part := range parts {
			if i == 0 {
				for j, v := range []string{orUnknown(e.Timestamp), orUnknown(e.User), orUnknown(e.Hostname)} {
					if err := f.b.WriteString(cols[j], row, v); err != nil {
						return fmt.Errorf("psrfits: write history: %w", err)
					}
				}
			}
			if i == 0 {
				part = orUnknown(part)
			}
			if err := f.b.WriteString(cols[3], row+i, part); err != nil {
				return fmt.Errorf("psrfits: write history: %w", err)
			}
		}
		f.persisted++
	}
	return nil
}

var errHistoryColumns = errors.New("required columns missing")

// readHistoryTable returns the text of cols for every row of one history
// table. A table lacking one of cols is reported like a missing table.
func (f *File) readHistoryTable(name string, cols []string) (rows [][]string, err error) {
	if err := f.moveTo(name); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	idx := make([]int, len(cols))
	for i, c := range cols {
		col, err := f.b.ColumnIndex(c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %s", name, errHistoryColumns, c)
		}
		idx[i] = col
	}
	n, err := f.b.NumRows()
	if err != nil {
		return nil, err
	}
	rows = make([][]string, n)
	for r := range rows {
		rows[r] = make([]string, len(idx))
		for i, col := range idx {
			if rows[r][i], err = f.b.ReadString(col, r); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", name, r, err)
			}
		}
	}
	return rows, nil
}

// ReadHistory loads the processing history from HISTORY and
// HISTORY_NOT_PSRFITS. Entries appended but not yet written are kept after
// the stored ones.
func (f *File) ReadHistory() error {
	if f.d == nil {
		return fmt.Errorf("psrfits: file is closed")
	}
	var stored []HistoryEntry
	var causes error
	found := false

	if rows, err := f.readHistoryTable("HISTORY", []string{"DATE_PRO", "PROC_CMD"}); err != nil {
		causes = multierr.Append(causes, err)
	} else {
		found = true
		for _, r := range rows {
			stored = append(stored, HistoryEntry{Timestamp: r[0], Command: r[1]})
		}
	}

	if rows, err := f.readHistoryTable("HISTORY_NOT_PSRFITS", []string{"DATE_PRO", "USER", "HOSTNAME", "PROC_CMD"}); err != nil {
		causes = multierr.Append(causes, err)
	} else {
		found = true
		for _, r := range rows {
			e := HistoryEntry{Timestamp: r[0], User: r[1], Hostname: r[2], Command: r[3]}
			continuation := e.Timestamp == "" && e.User == "" && e.Hostname == ""
			if continuation && !f.opts.SplitHistoryRows && len(stored) > 0 {
				stored[len(stored)-1].Command += e.Command
				continue
			}
			stored = append(stored, e)
		}
	}

	if !found {
		return fmt.Errorf("%w: %v", ErrNoHistory, causes)
	}
	pending := f.d.History.entries[f.persisted:]
	f.d.History.entries = append(stored, pending...)
	f.persisted = len(stored)
	return nil
}

// AddHistory appends a processing step and writes it to the file.
func (f *File) AddHistory(cmd string) error {
	if f.d == nil {
		return fmt.Errorf("psrfits: file is closed")
	}
	f.d.History.Append(NewHistoryEntry(cmd))
	return f.WriteHistory()
}
