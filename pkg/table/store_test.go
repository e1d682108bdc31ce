package table

import (
	"errors"
	"testing"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want Format
	}{
		{"E", Format{1, Float32}},
		{"16E", Format{16, Float32}},
		{"1024A", Format{1024, Text}},
		{"128b", Format{128, Unsigned}},
		{"3d", Format{3, Float64}},
		{" 1J ", Format{1, Int32}},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseFormat(%q) mismatch: got %+v want %+v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "12", "4Q"} {
		if _, err := ParseFormat(bad); !errors.Is(err, ErrFormat) {
			t.Fatalf("ParseFormat(%q) error mismatch: got %v want ErrFormat", bad, err)
		}
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	if err := s.CreatePrimary(); err != nil {
		t.Fatalf("CreatePrimary: %v", err)
	}
	if err := s.WriteKeyword(Card{Name: "obs_mode", Value: "PSR"}); err != nil {
		t.Fatalf("WriteKeyword: %v", err)
	}
	cols := []ColumnDef{
		{Name: "TSUBINT", Format: "1D", Unit: "s"},
		{Name: "DAT_SCL", Format: "4E"},
		{Name: "CODES", Format: "2I"},
		{Name: "RAW", Format: "3b"},
		{Name: "CMD", Format: "8A"},
	}
	if err := s.CreateTable("SUBINT", 2, cols); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	return s
}

func TestStoreKeywords(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	if err := s.MovePrimary(); err != nil {
		t.Fatalf("MovePrimary: %v", err)
	}
	c, err := s.ReadKeyword("OBS_MODE")
	if err != nil {
		t.Fatalf("ReadKeyword: %v", err)
	}
	if c.String() != "PSR" {
		t.Fatalf("OBS_MODE mismatch: got %q want %q", c.String(), "PSR")
	}
	if _, err := s.ReadKeyword("MISSING"); !errors.Is(err, ErrNoKeyword) {
		t.Fatalf("missing keyword error mismatch: got %v", err)
	}

	if err := s.MoveTo("subint"); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}
	for key, want := range map[string]string{
		"NAXIS2":  "2",
		"TFIELDS": "5",
		"TTYPE2":  "DAT_SCL",
		"TFORM2":  "4E",
		"TUNIT1":  "s",
		"EXTNAME": "SUBINT",
	} {
		c, err := s.ReadKeyword(key)
		if err != nil {
			t.Fatalf("ReadKeyword(%s): %v", key, err)
		}
		if c.String() != want {
			t.Fatalf("%s mismatch: got %q want %q", key, c.String(), want)
		}
	}
	if err := s.MoveTo("FEEDPAR"); !errors.Is(err, ErrNoTable) {
		t.Fatalf("MoveTo missing table error mismatch: got %v", err)
	}
}

func TestStoreNumericConversion(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	col, err := s.ColumnIndex("dat_scl")
	if err != nil {
		t.Fatalf("ColumnIndex: %v", err)
	}
	if err := s.WriteFloats(col, 1, 1, []float64{0.1, 2}); err != nil {
		t.Fatalf("WriteFloats: %v", err)
	}
	dst := make([]float64, 4)
	if err := s.ReadFloats(col, 1, 0, dst); err != nil {
		t.Fatalf("ReadFloats: %v", err)
	}
	if dst[1] != float64(float32(0.1)) || dst[2] != 2 || dst[0] != 0 {
		t.Fatalf("float32 cells mismatch: got %v", dst)
	}
	if err := s.ReadFloats(col, 1, 2, make([]float64, 3)); !errors.Is(err, ErrRange) {
		t.Fatalf("out of range read error mismatch: got %v", err)
	}

	codes, _ := s.ColumnIndex("CODES")
	if err := s.WriteFloats(codes, 0, 0, []float64{1.6, -2.4}); err != nil {
		t.Fatalf("WriteFloats int16: %v", err)
	}
	v, err := ReadFloat(s, codes, 0, 0)
	if err != nil || v != 2 {
		t.Fatalf("int16 rounding mismatch: got %v (%v) want 2", v, err)
	}
	if err := s.WriteFloats(codes, 0, 0, []float64{40000}); !errors.Is(err, ErrOverflow) {
		t.Fatalf("int16 overflow error mismatch: got %v", err)
	}

	raw, _ := s.ColumnIndex("RAW")
	if err := s.WriteBytes(raw, 1, 0, []byte{0xff, 0x01, 0x80}); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	b := make([]byte, 3)
	if err := s.ReadBytes(raw, 1, 0, b); err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if b[0] != 0xff || b[2] != 0x80 {
		t.Fatalf("bytes mismatch: got %v", b)
	}
	if err := s.ReadBytes(codes, 0, 0, b[:1]); !errors.Is(err, ErrType) {
		t.Fatalf("ReadBytes on int16 error mismatch: got %v", err)
	}
}

func TestStoreStringsAndInsert(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	cmd, _ := s.ColumnIndex("CMD")
	if err := s.WriteString(cmd, 1, "psrinfo header"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	got, err := s.ReadString(cmd, 1)
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != "psrinfo" {
		t.Fatalf("truncated string mismatch: got %q want %q", got, "psrinfo")
	}

	if err := s.InsertRows(1, 2); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	n, _ := s.NumRows()
	if n != 4 {
		t.Fatalf("rows mismatch: got %d want 4", n)
	}
	moved, _ := s.ReadString(cmd, 3)
	if moved != "psrinfo" {
		t.Fatalf("moved row mismatch: got %q want %q", moved, "psrinfo")
	}
	inserted, _ := s.ReadString(cmd, 1)
	if inserted != "" {
		t.Fatalf("inserted row mismatch: got %q want empty", inserted)
	}
}

func TestCardConversions(t *testing.T) {
	t.Parallel()
	c := Card{Name: "NBIN", Value: "1024"}
	n, err := c.Int()
	if err != nil || n != 1024 {
		t.Fatalf("Int mismatch: got %d (%v) want 1024", n, err)
	}
	f, err := Card{Name: "OBSFREQ", Value: int64(1400)}.Float()
	if err != nil || f != 1400 {
		t.Fatalf("Float mismatch: got %v (%v) want 1400", f, err)
	}
	if _, err := (Card{Name: "X", Value: 1.5}).Int(); !errors.Is(err, ErrType) {
		t.Fatalf("non-integral Int error mismatch: got %v", err)
	}
	if _, err := (Card{Name: "TBIN", Value: "*"}).Float(); !errors.Is(err, ErrType) {
		t.Fatalf("non-numeric Float error mismatch: got %v", err)
	}
}
