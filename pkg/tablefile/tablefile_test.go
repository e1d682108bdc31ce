package tablefile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/psrio/pkg/table"
)

func sampleStore(t *testing.T) *table.Store {
	t.Helper()
	s := table.NewStore()
	if err := s.CreatePrimary(); err != nil {
		t.Fatalf("create primary: %v", err)
	}
	for _, c := range []table.Card{
		{Name: "FITSTYPE", Value: "PSRFITS"},
		{Name: "PS_GTYPE", Value: int64(3), Comment: "data category"},
		{Name: "OBSFREQ", Value: 1369.5},
		{Name: "PS_CSW", Value: true},
	} {
		if err := s.WriteKeyword(c); err != nil {
			t.Fatalf("write keyword: %v", err)
		}
	}
	cols := []table.ColumnDef{
		{Name: "PERIOD", Format: "1D", Unit: "s"},
		{Name: "DAT_SCL", Format: "2E"},
		{Name: "DATA", Format: "3I"},
		{Name: "RAW", Format: "2b"},
		{Name: "CMD", Format: "12A"},
	}
	if err := s.CreateTable("SUBINT", 2, cols); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := s.WriteKeyword(table.Card{Name: "NBIN", Value: int64(3)}); err != nil {
		t.Fatalf("write keyword: %v", err)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("write cell: %v", err)
		}
	}
	must(s.WriteFloats(0, 1, 0, []float64{0.714519699726}))
	must(s.WriteFloats(1, 0, 0, []float64{0.5, -1.25}))
	must(s.WriteFloats(2, 1, 0, []float64{-32768, 0, 32767}))
	must(s.WriteBytes(3, 0, 0, []byte{0xab, 0x01}))
	must(s.WriteString(4, 1, "pam -m x.ar"))
	return s
}

func checkStore(t *testing.T, s *table.Store) {
	t.Helper()
	if err := s.MovePrimary(); err != nil {
		t.Fatalf("move primary: %v", err)
	}
	c, err := s.ReadKeyword("PS_GTYPE")
	if err != nil {
		t.Fatalf("read PS_GTYPE: %v", err)
	}
	if v, ok := c.Value.(int64); !ok || v != 3 || c.Comment != "data category" {
		t.Fatalf("PS_GTYPE mismatch: got %#v", c)
	}
	c, _ = s.ReadKeyword("OBSFREQ")
	if v, ok := c.Value.(float64); !ok || v != 1369.5 {
		t.Fatalf("OBSFREQ mismatch: got %#v", c.Value)
	}
	c, _ = s.ReadKeyword("PS_CSW")
	if v, ok := c.Value.(bool); !ok || !v {
		t.Fatalf("PS_CSW mismatch: got %#v", c.Value)
	}

	if err := s.MoveTo("SUBINT"); err != nil {
		t.Fatalf("move to SUBINT: %v", err)
	}
	if n, _ := s.NumRows(); n != 2 {
		t.Fatalf("rows mismatch: got %d want 2", n)
	}
	if v, _ := table.ReadFloat(s, 0, 1, 0); v != 0.714519699726 {
		t.Fatalf("PERIOD mismatch: got %v", v)
	}
	if v, _ := table.ReadFloat(s, 1, 0, 1); v != -1.25 {
		t.Fatalf("DAT_SCL mismatch: got %v", v)
	}
	data := make([]float64, 3)
	if err := s.ReadFloats(2, 1, 0, data); err != nil {
		t.Fatalf("read DATA: %v", err)
	}
	if data[0] != -32768 || data[2] != 32767 {
		t.Fatalf("DATA mismatch: got %v", data)
	}
	raw := make([]byte, 2)
	if err := s.ReadBytes(3, 0, 0, raw); err != nil || raw[0] != 0xab {
		t.Fatalf("RAW mismatch: got %v (%v)", raw, err)
	}
	if cmd, _ := s.ReadString(4, 1); cmd != "pam -m x.ar" {
		t.Fatalf("CMD mismatch: got %q", cmd)
	}
	if c, _ := s.ReadKeyword("NBIN"); c.String() != "3" {
		t.Fatalf("NBIN mismatch: got %q", c.String())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	for _, compress := range []bool{false, true} {
		path := filepath.Join(t.TempDir(), "obs.ptb")
		if err := Save(path, sampleStore(t), SaveOptions{Compress: compress}); err != nil {
			t.Fatalf("save (compress=%v): %v", compress, err)
		}
		s, err := Load(path)
		if err != nil {
			t.Fatalf("load (compress=%v): %v", compress, err)
		}
		checkStore(t, s)
	}
}

func TestOpenReaderAtRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "obs.ptb")
	if err := Save(path, sampleStore(t), SaveOptions{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	rf, err := os.Open(path)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	defer func() { _ = rf.Close() }()
	st, err := rf.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	tf, err := OpenReaderAt(rf, st.Size())
	if err != nil {
		t.Fatalf("open readerat: %v", err)
	}
	if tf.mmapped {
		t.Fatalf("OpenReaderAt should not mmap")
	}
	if len(tf.Sections) != 2 {
		t.Fatalf("section count mismatch: got %d want 2", len(tf.Sections))
	}
	for i, sec := range tf.Sections {
		if sec.Offset%align != 0 {
			t.Fatalf("section %d offset %d not aligned", i, sec.Offset)
		}
	}
	s, err := Decode(tf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := tf.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	checkStore(t, s)
}

func TestOpenRejectsCorruptFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "obs.ptb")
	if err := Save(path, sampleStore(t), SaveOptions{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	good, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 'X'
	if _, err := parseFileData(badMagic, false); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("bad magic error mismatch: got %v", err)
	}

	badMajor := append([]byte(nil), good...)
	badMajor[4] = 9
	if _, err := parseFileData(badMajor, false); !errors.Is(err, ErrUnsupportedMajor) {
		t.Fatalf("bad major error mismatch: got %v", err)
	}

	if _, err := parseFileData(good[:len(good)-1], false); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("truncated file error mismatch: got %v", err)
	}

	short := filepath.Join(dir, "short.ptb")
	if err := os.WriteFile(short, []byte("PTB"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(short); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("short file error mismatch: got %v", err)
	}
}

func TestHeaderEncodingLittleEndian(t *testing.T) {
	t.Parallel()
	h := Header{
		Magic:            [4]byte{'P', 'T', 'B', 0},
		Major:            1,
		Minor:            2,
		HeaderSize:       headerSize,
		SectionCount:     3,
		SectionDirOffset: 0x0102030405060708,
		FileSize:         4096,
	}
	var buf [headerSize]byte
	if !encodeHeader(buf[:], h) {
		t.Fatalf("encode header failed")
	}
	if buf[16] != 0x08 || buf[23] != 0x01 {
		t.Fatalf("section dir offset not little-endian: % x", buf[16:24])
	}
	got, ok := decodeHeader(buf[:])
	if !ok || got != h {
		t.Fatalf("header mismatch: got %+v want %+v", got, h)
	}

	sec := Section{Type: uint32(SectionTable), Flags: FlagSnappy, Offset: 48, Size: 7}
	var sb [sectionSize]byte
	if !encodeSection(sb[:], sec) {
		t.Fatalf("encode section failed")
	}
	if back, ok := decodeSection(sb[:]); !ok || back != sec {
		t.Fatalf("section mismatch: got %+v want %+v", back, sec)
	}
}
