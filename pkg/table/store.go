package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Store is an in-memory Backend. HDU 0 is the primary HDU and carries no
// columns. A Store is not safe for concurrent use.
type Store struct {
	hdus []*HDU
	cur  int
}

// HDU is one header/data unit of a Store.
type HDU struct {
	Name    string
	Cards   []Card
	Columns []*Column
	Rows    int
}

// Column holds the cells of one table column. Numeric cells are kept as
// float64 already converted to the column type; text cells as strings.
type Column struct {
	Def    ColumnDef
	Format Format
	values []float64
	text   []string
}

// NewStore returns an empty store with no HDUs.
func NewStore() *Store {
	return &Store{cur: -1}
}

// NewColumn allocates a zeroed column for rows rows.
func NewColumn(def ColumnDef, rows int) (*Column, error) {
	f, err := ParseFormat(def.Format)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", def.Name, err)
	}
	c := &Column{Def: def, Format: f}
	c.resize(rows)
	return c, nil
}

func (c *Column) resize(rows int) {
	if c.Format.Type == Text {
		c.text = make([]string, rows)
		return
	}
	c.values = make([]float64, rows*c.Format.Repeat)
}

// Values exposes the flat row-major numeric cells.
func (c *Column) Values() []float64 { return c.values }

// Strings exposes the text cells, one per row.
func (c *Column) Strings() []string { return c.text }

// HDUs returns the units in file order.
func (s *Store) HDUs() []*HDU { return s.hdus }

// AppendHDU adds a fully formed unit and makes it current. Column lengths
// must match h.Rows.
func (s *Store) AppendHDU(h *HDU) error {
	for _, c := range h.Columns {
		want := h.Rows * c.Format.Repeat
		got := len(c.values)
		if c.Format.Type == Text {
			want, got = h.Rows, len(c.text)
		}
		if got != want {
			return fmt.Errorf("%w: column %s has %d cells, want %d", ErrRange, c.Def.Name, got, want)
		}
	}
	if len(s.hdus) == 0 && len(h.Columns) > 0 {
		return fmt.Errorf("%w: primary HDU cannot hold columns", ErrType)
	}
	s.hdus = append(s.hdus, h)
	s.cur = len(s.hdus) - 1
	return nil
}

// SetColumnData replaces the cells of c. Used by loaders.
func (c *Column) SetColumnData(values []float64, text []string) {
	if c.Format.Type == Text {
		c.text = text
		return
	}
	c.values = values
}

func (s *Store) current() (*HDU, error) {
	if s.cur < 0 || s.cur >= len(s.hdus) {
		return nil, ErrNoHDU
	}
	return s.hdus[s.cur], nil
}

// MovePrimary selects HDU 0.
func (s *Store) MovePrimary() error {
	if len(s.hdus) == 0 {
		return ErrNoHDU
	}
	s.cur = 0
	return nil
}

// MoveTo selects the first extension whose EXTNAME matches name,
// ignoring case.
func (s *Store) MoveTo(name string) error {
	for i := 1; i < len(s.hdus); i++ {
		if strings.EqualFold(s.hdus[i].Name, name) {
			s.cur = i
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoTable, name)
}

// CreatePrimary adds the primary HDU. It fails if one exists.
func (s *Store) CreatePrimary() error {
	if len(s.hdus) > 0 {
		return fmt.Errorf("%w: primary HDU already exists", ErrRange)
	}
	s.hdus = append(s.hdus, &HDU{})
	s.cur = 0
	return nil
}

// CreateTable appends a binary table extension and makes it current.
func (s *Store) CreateTable(name string, rows int, cols []ColumnDef) error {
	if len(s.hdus) == 0 {
		return fmt.Errorf("%w: create the primary HDU first", ErrNoHDU)
	}
	if rows < 0 {
		return fmt.Errorf("%w: negative row count %d", ErrRange, rows)
	}
	h := &HDU{Name: name, Rows: rows}
	for _, def := range cols {
		c, err := NewColumn(def, rows)
		if err != nil {
			return err
		}
		h.Columns = append(h.Columns, c)
	}
	s.hdus = append(s.hdus, h)
	s.cur = len(s.hdus) - 1
	return nil
}

// ReadKeyword looks up a keyword in the current header. Structural keywords
// describing the table layout are derived from the columns.
func (s *Store) ReadKeyword(name string) (Card, error) {
	h, err := s.current()
	if err != nil {
		return Card{}, err
	}
	key := strings.ToUpper(strings.TrimSpace(name))
	if c, ok := h.structural(key); ok {
		return c, nil
	}
	for _, c := range h.Cards {
		if strings.EqualFold(c.Name, key) {
			return c, nil
		}
	}
	return Card{}, fmt.Errorf("%w: %s", ErrNoKeyword, key)
}

func (h *HDU) structural(key string) (Card, bool) {
	switch key {
	case "EXTNAME":
		if h.Name == "" {
			return Card{}, false
		}
		return Card{Name: key, Value: h.Name}, true
	case "NAXIS2":
		return Card{Name: key, Value: int64(h.Rows)}, true
	case "TFIELDS":
		return Card{Name: key, Value: int64(len(h.Columns))}, true
	}
	for _, prefix := range []string{"TTYPE", "TFORM", "TUNIT"} {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 || n > len(h.Columns) {
			return Card{}, false
		}
		c := h.Columns[n-1]
		switch prefix {
		case "TTYPE":
			return Card{Name: key, Value: c.Def.Name}, true
		case "TFORM":
			return Card{Name: key, Value: c.Format.String()}, true
		default:
			if c.Def.Unit == "" {
				return Card{}, false
			}
			return Card{Name: key, Value: c.Def.Unit}, true
		}
	}
	return Card{}, false
}

// WriteKeyword sets or replaces a keyword in the current header.
func (s *Store) WriteKeyword(c Card) error {
	h, err := s.current()
	if err != nil {
		return err
	}
	c.Name = strings.ToUpper(strings.TrimSpace(c.Name))
	if c.Name == "" {
		return fmt.Errorf("%w: empty keyword name", ErrNoKeyword)
	}
	switch v := c.Value.(type) {
	case int:
		c.Value = int64(v)
	case int32:
		c.Value = int64(v)
	case float32:
		c.Value = float64(v)
	case string, int64, float64, bool:
	default:
		return fmt.Errorf("%w: keyword %s has unsupported value type %T", ErrType, c.Name, v)
	}
	if c.Name == "EXTNAME" {
		if s.cur == 0 {
			return fmt.Errorf("%w: primary HDU has no EXTNAME", ErrType)
		}
		h.Name = c.String()
		return nil
	}
	for i := range h.Cards {
		if h.Cards[i].Name == c.Name {
			h.Cards[i] = c
			return nil
		}
	}
	h.Cards = append(h.Cards, c)
	return nil
}

// NumRows returns NAXIS2 of the current table.
func (s *Store) NumRows() (int, error) {
	h, err := s.current()
	if err != nil {
		return 0, err
	}
	return h.Rows, nil
}

// NumCols returns TFIELDS of the current table.
func (s *Store) NumCols() (int, error) {
	h, err := s.current()
	if err != nil {
		return 0, err
	}
	return len(h.Columns), nil
}

// ColumnIndex finds a column by name, ignoring case.
func (s *Store) ColumnIndex(name string) (int, error) {
	h, err := s.current()
	if err != nil {
		return 0, err
	}
	for i, c := range h.Columns {
		if strings.EqualFold(c.Def.Name, name) {
			return i, nil
		}
	}
	if h.Name != "" {
		return 0, fmt.Errorf("%w: %s in %s", ErrNoColumn, name, h.Name)
	}
	return 0, fmt.Errorf("%w: %s", ErrNoColumn, name)
}

// ColumnFormat returns the parsed TFORM of col.
func (s *Store) ColumnFormat(col int) (Format, error) {
	c, _, err := s.column(col)
	if err != nil {
		return Format{}, err
	}
	return c.Format, nil
}

func (s *Store) column(col int) (*Column, *HDU, error) {
	h, err := s.current()
	if err != nil {
		return nil, nil, err
	}
	if col < 0 || col >= len(h.Columns) {
		return nil, nil, fmt.Errorf("%w: column %d of %d", ErrNoColumn, col, len(h.Columns))
	}
	return h.Columns[col], h, nil
}

func (s *Store) cells(col, row, first, n int) (*Column, []float64, error) {
	c, h, err := s.column(col)
	if err != nil {
		return nil, nil, err
	}
	if !c.Format.Type.Numeric() {
		return nil, nil, fmt.Errorf("%w: column %s is text", ErrType, c.Def.Name)
	}
	if row < 0 || row >= h.Rows {
		return nil, nil, fmt.Errorf("%w: row %d of %d in %s", ErrRange, row, h.Rows, c.Def.Name)
	}
	if first < 0 || first+n > c.Format.Repeat {
		return nil, nil, fmt.Errorf("%w: elements [%d,%d) of %d in %s", ErrRange, first, first+n, c.Format.Repeat, c.Def.Name)
	}
	base := row*c.Format.Repeat + first
	return c, c.values[base : base+n], nil
}

// ReadFloats reads len(dst) elements starting at element first.
func (s *Store) ReadFloats(col, row, first int, dst []float64) error {
	_, cells, err := s.cells(col, row, first, len(dst))
	if err != nil {
		return err
	}
	copy(dst, cells)
	return nil
}

// WriteFloats converts src to the column type and stores it. Integer types
// round to nearest; values outside the type range fail with ErrOverflow and
// leave the cells untouched.
func (s *Store) WriteFloats(col, row, first int, src []float64) error {
	c, cells, err := s.cells(col, row, first, len(src))
	if err != nil {
		return err
	}
	conv := make([]float64, len(src))
	for i, v := range src {
		cv, err := Convert(c.Format.Type, v)
		if err != nil {
			return fmt.Errorf("%s element %d: %w", c.Def.Name, first+i, err)
		}
		conv[i] = cv
	}
	copy(cells, conv)
	return nil
}

// Convert maps v onto the value set of type t.
func Convert(t Type, v float64) (float64, error) {
	var lo, hi float64
	switch t {
	case Float64:
		return v, nil
	case Float32:
		return float64(float32(v)), nil
	case Logical, Bit:
		if v != 0 {
			return 1, nil
		}
		return 0, nil
	case Byte, Unsigned:
		lo, hi = 0, math.MaxUint8
	case Int16:
		lo, hi = math.MinInt16, math.MaxInt16
	case Int32:
		lo, hi = math.MinInt32, math.MaxInt32
	case Int64:
		lo, hi = math.MinInt64, math.MaxInt64
	default:
		return 0, fmt.Errorf("%w: type %q is not numeric", ErrType, t)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: NaN", ErrOverflow)
	}
	r := math.Round(v)
	if r < lo || r > hi {
		return 0, fmt.Errorf("%w: %v not in [%v,%v]", ErrOverflow, v, lo, hi)
	}
	return r, nil
}

// ReadBytes reads elements of a byte column.
func (s *Store) ReadBytes(col, row, first int, dst []byte) error {
	c, cells, err := s.cells(col, row, first, len(dst))
	if err != nil {
		return err
	}
	if c.Format.Type.Size() != 1 {
		return fmt.Errorf("%w: column %s has type %q", ErrType, c.Def.Name, c.Format.Type)
	}
	for i, v := range cells {
		dst[i] = byte(v)
	}
	return nil
}

// WriteBytes stores raw bytes into a byte column.
func (s *Store) WriteBytes(col, row, first int, src []byte) error {
	c, cells, err := s.cells(col, row, first, len(src))
	if err != nil {
		return err
	}
	if c.Format.Type.Size() != 1 {
		return fmt.Errorf("%w: column %s has type %q", ErrType, c.Def.Name, c.Format.Type)
	}
	for i, v := range src {
		cells[i] = float64(v)
	}
	return nil
}

func (s *Store) textCell(col, row int) (*Column, error) {
	c, h, err := s.column(col)
	if err != nil {
		return nil, err
	}
	if c.Format.Type != Text {
		return nil, fmt.Errorf("%w: column %s is not text", ErrType, c.Def.Name)
	}
	if row < 0 || row >= h.Rows {
		return nil, fmt.Errorf("%w: row %d of %d in %s", ErrRange, row, h.Rows, c.Def.Name)
	}
	return c, nil
}

// ReadString returns a text cell with trailing blanks removed.
func (s *Store) ReadString(col, row int) (string, error) {
	c, err := s.textCell(col, row)
	if err != nil {
		return "", err
	}
	return c.text[row], nil
}

// WriteString stores s, truncated to the column width.
func (s *Store) WriteString(col, row int, v string) error {
	c, err := s.textCell(col, row)
	if err != nil {
		return err
	}
	if len(v) > c.Format.Repeat {
		v = v[:c.Format.Repeat]
	}
	c.text[row] = strings.TrimRight(v, " ")
	return nil
}

// InsertRows inserts n zeroed rows before row at. at may equal NumRows.
func (s *Store) InsertRows(at, n int) error {
	h, err := s.current()
	if err != nil {
		return err
	}
	if s.cur == 0 {
		return fmt.Errorf("%w: primary HDU has no rows", ErrType)
	}
	if at < 0 || at > h.Rows || n < 0 {
		return fmt.Errorf("%w: insert %d rows at %d of %d", ErrRange, n, at, h.Rows)
	}
	for _, c := range h.Columns {
		if c.Format.Type == Text {
			grown := make([]string, 0, len(c.text)+n)
			grown = append(grown, c.text[:at]...)
			grown = append(grown, make([]string, n)...)
			c.text = append(grown, c.text[at:]...)
			continue
		}
		r := c.Format.Repeat
		grown := make([]float64, 0, len(c.values)+n*r)
		grown = append(grown, c.values[:at*r]...)
		grown = append(grown, make([]float64, n*r)...)
		c.values = append(grown, c.values[at*r:]...)
	}
	h.Rows += n
	return nil
}

var _ Backend = (*Store)(nil)
