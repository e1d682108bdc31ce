// Package tablefile persists a table.Store as a single sectioned file: a
// fixed header, one 8-byte aligned section per HDU and a trailing section
// directory.
package tablefile

import (
	"fmt"
	"os"

	"go.uber.org/multierr"

	"github.com/samcharles93/psrio/pkg/table"
)

// SaveOptions controls how a store is written.
type SaveOptions struct {
	// Compress stores each HDU snappy-compressed.
	Compress bool
}

// Save writes every HDU of s to path, replacing any existing file.
func Save(path string, s *table.Store, opts SaveOptions) (err error) {
	hdus := s.HDUs()
	if len(hdus) == 0 {
		return fmt.Errorf("tablefile: store has no primary HDU")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	w, err := NewWriter(f)
	if err != nil {
		return err
	}
	for i, h := range hdus {
		payload, flags, err := encodeHDU(h, opts.Compress)
		if err != nil {
			return fmt.Errorf("tablefile: HDU %d: %w", i, err)
		}
		typ := SectionTable
		if i == 0 {
			typ = SectionPrimary
		}
		if err := w.WriteSection(typ, flags, payload); err != nil {
			return err
		}
	}
	return w.Finalise()
}

// Decode copies every section of f into a new in-memory store. The store
// does not reference f's mapping afterwards.
func Decode(f *File) (*table.Store, error) {
	s := table.NewStore()
	for i := range f.Sections {
		sec := &f.Sections[i]
		h, err := decodeHDU(f.SectionData(sec), sec.Flags)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		if err := s.AppendHDU(h); err != nil {
			return nil, fmt.Errorf("%w: section %d: %v", ErrCorruptFile, i, err)
		}
	}
	if err := s.MovePrimary(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the file at path into memory.
func Load(path string) (s *table.Store, err error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	return Decode(f)
}
