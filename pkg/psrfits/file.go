// Package psrfits reads and writes PSRFITS-style pulsar observations on top
// of a table.Backend.
//
// Open infers an observation Descriptor from whatever keywords and columns a
// file carries; Create lays out the tables a descriptor implies. Samples are
// then moved through a File one pulse or one subintegration at a time.
package psrfits

import (
	"fmt"

	"github.com/samcharles93/psrio/internal/logger"
	"github.com/samcharles93/psrio/pkg/quant"
	"github.com/samcharles93/psrio/pkg/table"
)

// subintColumns is the number of columns of a complete SUBINT table.
const subintColumns = 19

// File is an open observation. It is not safe for concurrent use.
type File struct {
	b    table.Backend
	d    *Descriptor
	log  logger.Logger
	opts ReadOptions
	once logger.Once

	cols      map[string]int
	colsTable string
	checked   bool

	// last packed search-mode row read
	row    []byte
	rowSub int

	// persisted counts history entries already stored in the file.
	persisted int
}

func newFile(b table.Backend, d *Descriptor, opts ReadOptions, log logger.Logger) *File {
	return &File{b: b, d: d, opts: opts, log: log}
}

// Descriptor returns the descriptor owned by f.
func (f *File) Descriptor() *Descriptor { return f.d }

// Backend returns the underlying table backend.
func (f *File) Backend() table.Backend { return f.b }

// Close releases the descriptor's tables. The backend itself is owned by
// the caller.
func (f *File) Close() error {
	if f.d != nil {
		f.d.Scales = nil
	}
	f.d = nil
	f.cols = nil
	f.row = nil
	return nil
}

// moveTo selects a table and resets the column cache when it changes.
func (f *File) moveTo(name string) error {
	if f.d == nil {
		return fmt.Errorf("psrfits: file is closed")
	}
	if err := f.b.MoveTo(name); err != nil {
		return err
	}
	if f.colsTable != name {
		f.cols = make(map[string]int)
		f.colsTable = name
	}
	return nil
}

// col looks up a column of the current table.
func (f *File) col(name string) (int, error) {
	if c, ok := f.cols[name]; ok {
		return c, nil
	}
	c, err := f.b.ColumnIndex(name)
	if err != nil {
		return 0, fmt.Errorf("psrfits: %s table: %w", f.colsTable, err)
	}
	f.cols[name] = c
	return c, nil
}

// subint selects SUBINT and checks it is complete enough for sample writes.
func (f *File) subint() error {
	if err := f.moveTo("SUBINT"); err != nil {
		return fmt.Errorf("psrfits: cannot move to SUBINT: %w", err)
	}
	if f.checked {
		return nil
	}
	n, err := f.b.NumCols()
	if err != nil {
		return err
	}
	if n < subintColumns {
		return fmt.Errorf("%w: %d columns, need %d", ErrShortTable, n, subintColumns)
	}
	f.checked = true
	return nil
}

// trapNonFinite replaces non-finite scale/offset pairs by zero and warns
// once per file.
func (f *File) trapNonFinite(scale, offset float64) (float64, float64) {
	if quant.Finite(scale, offset) {
		return scale, offset
	}
	f.once.Warn(f.log, "nonfinite", "caught a non-finite scale or offset, replaced by zero (further occurrences are not reported)")
	return 0, 0
}
