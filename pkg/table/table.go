// Package table defines the keyword/column binary-table backend the PSRFITS
// codec is written against, plus an in-memory implementation.
//
// Indices are 0-based throughout: columns, rows and the first element of a
// vector cell.
package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNoHDU     = errors.New("table: no current HDU")
	ErrNoTable   = errors.New("table: no such table")
	ErrNoColumn  = errors.New("table: no such column")
	ErrNoKeyword = errors.New("table: no such keyword")
	ErrRange     = errors.New("table: index out of range")
	ErrOverflow  = errors.New("table: value out of range for column type")
	ErrType      = errors.New("table: column type mismatch")
	ErrFormat    = errors.New("table: invalid column format")
)

// Type is a binary-table column type letter.
type Type byte

const (
	Logical  Type = 'L'
	Bit      Type = 'X'
	Byte     Type = 'B'
	Int16    Type = 'I'
	Int32    Type = 'J'
	Int64    Type = 'K'
	Float32  Type = 'E'
	Float64  Type = 'D'
	Text     Type = 'A'
	Unsigned Type = 'b'
)

// Size returns the storage width of one element in bytes.
func (t Type) Size() int {
	switch t {
	case Logical, Byte, Unsigned, Text, Bit:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

// Numeric reports whether values of this type are read as numbers.
func (t Type) Numeric() bool {
	return t != Text && t.Size() > 0
}

// Format is a parsed TFORM value such as "16E".
type Format struct {
	Repeat int
	Type   Type
}

// ParseFormat parses a TFORM string. A missing repeat count means 1. The type
// letter is matched case-insensitively except for 'b', which is kept distinct
// from 'B' only in its spelling.
func ParseFormat(s string) (Format, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Format{}, fmt.Errorf("%w: empty", ErrFormat)
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	repeat := 1
	if i > 0 {
		n, err := strconv.Atoi(s[:i])
		if err != nil {
			return Format{}, fmt.Errorf("%w: %q", ErrFormat, s)
		}
		repeat = n
	}
	if i >= len(s) {
		return Format{}, fmt.Errorf("%w: %q has no type", ErrFormat, s)
	}
	letter := s[i]
	t := Type(letter)
	if letter != 'b' {
		t = Type(strings.ToUpper(string(letter))[0])
	}
	if t.Size() == 0 {
		return Format{}, fmt.Errorf("%w: unknown type %q in %q", ErrFormat, letter, s)
	}
	return Format{Repeat: repeat, Type: t}, nil
}

func (f Format) String() string {
	return strconv.Itoa(f.Repeat) + string(rune(f.Type))
}

// ColumnDef describes a column to be created.
type ColumnDef struct {
	Name   string
	Format string
	Unit   string
}

// Card is a single header keyword. Value holds string, int64, float64 or bool.
type Card struct {
	Name    string
	Value   any
	Comment string
}

// String returns the value as a string. Numeric values are formatted.
func (c Card) String() string {
	switch v := c.Value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		if v {
			return "T"
		}
		return "F"
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the value as float64, parsing strings when needed.
func (c Card) Float() (float64, error) {
	switch v := c.Value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: keyword %s=%q is not numeric", ErrType, c.Name, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: keyword %s has no value", ErrType, c.Name)
	}
}

// Int returns the value as int64. Float values must be integral.
func (c Card) Int() (int64, error) {
	switch v := c.Value.(type) {
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err == nil {
			return n, nil
		}
	}
	f, err := c.Float()
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("%w: keyword %s=%v is not an integer", ErrType, c.Name, f)
	}
	return int64(f), nil
}

// Backend is the narrow table interface the codec needs. Operations apply to
// the current HDU, selected with MovePrimary, MoveTo or a Create call.
type Backend interface {
	MovePrimary() error
	MoveTo(name string) error
	CreatePrimary() error
	CreateTable(name string, rows int, cols []ColumnDef) error

	ReadKeyword(name string) (Card, error)
	WriteKeyword(c Card) error

	NumRows() (int, error)
	NumCols() (int, error)
	ColumnIndex(name string) (int, error)
	ColumnFormat(col int) (Format, error)

	ReadFloats(col, row, first int, dst []float64) error
	WriteFloats(col, row, first int, src []float64) error
	ReadBytes(col, row, first int, dst []byte) error
	WriteBytes(col, row, first int, src []byte) error
	ReadString(col, row int) (string, error)
	WriteString(col, row int, s string) error

	InsertRows(at, n int) error
}

// ReadFloat reads a single numeric element.
func ReadFloat(b Backend, col, row, elem int) (float64, error) {
	var v [1]float64
	if err := b.ReadFloats(col, row, elem, v[:]); err != nil {
		return 0, err
	}
	return v[0], nil
}

// WriteFloat writes a single numeric element.
func WriteFloat(b Backend, col, row, elem int, v float64) error {
	return b.WriteFloats(col, row, elem, []float64{v})
}

// ReadNamedFloat reads element elem of the named column.
func ReadNamedFloat(b Backend, name string, row, elem int) (float64, error) {
	col, err := b.ColumnIndex(name)
	if err != nil {
		return 0, err
	}
	return ReadFloat(b, col, row, elem)
}

// ReadNamedString reads the named text column.
func ReadNamedString(b Backend, name string, row int) (string, error) {
	col, err := b.ColumnIndex(name)
	if err != nil {
		return "", err
	}
	return b.ReadString(col, row)
}

// HasTable reports whether name exists, leaving it current if so.
func HasTable(b Backend, name string) bool {
	return b.MoveTo(name) == nil
}
