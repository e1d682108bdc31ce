package tablefile

import (
	"errors"
	"io"
	"os"
)

const writerPadBufSize = 4096

// Writer builds a table file in a streaming fashion.
//
// The writer reserves space for the header up-front and patches it during
// Finalise. Sections are recorded in the order they are written.
type Writer struct {
	f        *os.File
	sections []Section
	closed   bool
	padBuf   []byte
}

// NewWriter truncates f and reserves space for the header.
func NewWriter(f *os.File) (*Writer, error) {
	if f == nil {
		return nil, errors.New("tablefile: nil file")
	}
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	w := &Writer{f: f, padBuf: make([]byte, writerPadBufSize)}
	if err := w.writeZeros(headerSize); err != nil {
		return nil, err
	}
	if err := w.alignTo(align); err != nil {
		return nil, err
	}
	return w, nil
}

// WriteSection writes a section payload and records it in the directory.
func (w *Writer) WriteSection(typ SectionType, flags uint32, data []byte) error {
	if w.closed {
		return errors.New("tablefile: writer already finalised")
	}
	if typ == SectionPrimary && len(w.sections) > 0 {
		return errors.New("tablefile: primary HDU must be the first section")
	}
	if typ != SectionPrimary && len(w.sections) == 0 {
		return errors.New("tablefile: first section must be the primary HDU")
	}
	if err := w.alignTo(align); err != nil {
		return err
	}
	offset, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := writeFull(w.f, data); err != nil {
		return err
	}
	w.sections = append(w.sections, Section{
		Type:   uint32(typ),
		Flags:  flags,
		Offset: uint64(offset),
		Size:   uint64(len(data)),
	})
	return nil
}

// Finalise writes the section directory and patches the header.
// After Finalise, the writer must not be used again.
func (w *Writer) Finalise() error {
	if w.closed {
		return errors.New("tablefile: writer already finalised")
	}
	w.closed = true
	if len(w.sections) == 0 {
		return errors.New("tablefile: no sections written")
	}

	if err := w.alignTo(align); err != nil {
		return err
	}
	dirOffset, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	var secBuf [sectionSize]byte
	for i := range w.sections {
		if !encodeSection(secBuf[:], w.sections[i]) {
			return errors.New("tablefile: encode section failed")
		}
		if err := writeFull(w.f, secBuf[:]); err != nil {
			return err
		}
	}

	fileSize, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := w.f.Truncate(fileSize); err != nil {
		return err
	}

	var header Header
	copy(header.Magic[:], Magic)
	header.Major = CurrentMajor
	header.Minor = CurrentMinor
	header.HeaderSize = headerSize
	header.SectionCount = uint32(len(w.sections))
	header.SectionDirOffset = uint64(dirOffset)
	header.FileSize = uint64(fileSize)

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	var hdrBuf [headerSize]byte
	if !encodeHeader(hdrBuf[:], header) {
		return errors.New("tablefile: encode header failed")
	}
	if err := writeFull(w.f, hdrBuf[:]); err != nil {
		return err
	}
	return w.f.Sync()
}

func (w *Writer) alignTo(n int64) error {
	pos, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if mod := pos % n; mod != 0 {
		return w.writeZeros(int(n - mod))
	}
	return nil
}

func (w *Writer) writeZeros(n int) error {
	for n > 0 {
		toWrite := min(n, len(w.padBuf))
		if err := writeFull(w.f, w.padBuf[:toWrite]); err != nil {
			return err
		}
		n -= toWrite
	}
	return nil
}

func writeFull(f *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
