package tablefile

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/golang/snappy"

	"github.com/samcharles93/psrio/pkg/table"
)

// hduDir is the JSON directory at the start of every HDU section. Column
// data follows it, one column after another, big-endian.
type hduDir struct {
	Name    string      `json:"name,omitempty"`
	Rows    int         `json:"rows"`
	Cards   []cardDir   `json:"cards,omitempty"`
	Columns []columnDir `json:"columns,omitempty"`
}

type cardDir struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Value   string `json:"value"`
	Comment string `json:"comment,omitempty"`
}

type columnDir struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Unit   string `json:"unit,omitempty"`
}

const (
	kindString = "string"
	kindInt    = "int"
	kindFloat  = "float"
	kindBool   = "bool"
)

func encodeCard(c table.Card) (cardDir, error) {
	d := cardDir{Name: c.Name, Comment: c.Comment}
	switch v := c.Value.(type) {
	case string:
		d.Kind, d.Value = kindString, v
	case int64:
		d.Kind, d.Value = kindInt, strconv.FormatInt(v, 10)
	case float64:
		d.Kind, d.Value = kindFloat, strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		d.Kind, d.Value = kindBool, strconv.FormatBool(v)
	default:
		return d, fmt.Errorf("tablefile: keyword %s has unsupported value %T", c.Name, v)
	}
	return d, nil
}

func decodeCard(d cardDir) (table.Card, error) {
	c := table.Card{Name: d.Name, Comment: d.Comment}
	var err error
	switch d.Kind {
	case kindString:
		c.Value = d.Value
	case kindInt:
		c.Value, err = strconv.ParseInt(d.Value, 10, 64)
	case kindFloat:
		c.Value, err = strconv.ParseFloat(d.Value, 64)
	case kindBool:
		c.Value, err = strconv.ParseBool(d.Value)
	default:
		err = fmt.Errorf("unknown kind %q", d.Kind)
	}
	if err != nil {
		return c, fmt.Errorf("%w: keyword %s: %v", ErrCorruptFile, d.Name, err)
	}
	return c, nil
}

func columnBytes(c *table.Column, rows int) int {
	return rows * c.Format.Repeat * c.Format.Type.Size()
}

// encodeHDU serialises one HDU, optionally snappy-compressed.
func encodeHDU(h *table.HDU, compress bool) ([]byte, uint32, error) {
	dir := hduDir{Name: h.Name, Rows: h.Rows}
	for _, c := range h.Cards {
		cd, err := encodeCard(c)
		if err != nil {
			return nil, 0, err
		}
		dir.Cards = append(dir.Cards, cd)
	}
	dataSize := 0
	for _, c := range h.Columns {
		dir.Columns = append(dir.Columns, columnDir{Name: c.Def.Name, Format: c.Format.String(), Unit: c.Def.Unit})
		dataSize += columnBytes(c, h.Rows)
	}
	js, err := json.Marshal(dir)
	if err != nil {
		return nil, 0, err
	}

	buf := make([]byte, 4, 4+len(js)+dataSize)
	binary.LittleEndian.PutUint32(buf, uint32(len(js)))
	buf = append(buf, js...)
	for _, c := range h.Columns {
		buf = appendColumn(buf, c)
	}

	if !compress {
		return buf, 0, nil
	}
	return snappy.Encode(nil, buf), FlagSnappy, nil
}

func appendColumn(buf []byte, c *table.Column) []byte {
	if c.Format.Type == table.Text {
		for _, s := range c.Strings() {
			if len(s) > c.Format.Repeat {
				s = s[:c.Format.Repeat]
			}
			buf = append(buf, s...)
			buf = append(buf, strings.Repeat(" ", c.Format.Repeat-len(s))...)
		}
		return buf
	}
	for _, v := range c.Values() {
		switch c.Format.Type {
		case table.Float64:
			buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v))
		case table.Float32:
			buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(v)))
		case table.Int16:
			buf = binary.BigEndian.AppendUint16(buf, uint16(int16(v)))
		case table.Int32:
			buf = binary.BigEndian.AppendUint32(buf, uint32(int32(v)))
		case table.Int64:
			buf = binary.BigEndian.AppendUint64(buf, uint64(int64(v)))
		default:
			buf = append(buf, byte(v))
		}
	}
	return buf
}

// decodeHDU parses a section payload back into an HDU.
func decodeHDU(payload []byte, flags uint32) (*table.HDU, error) {
	if flags&FlagSnappy != 0 {
		raw, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
		}
		payload = raw
	}
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: short HDU", ErrCorruptFile)
	}
	n := int(binary.LittleEndian.Uint32(payload))
	if n > len(payload)-4 {
		return nil, fmt.Errorf("%w: HDU directory out of bounds", ErrCorruptFile)
	}
	var dir hduDir
	if err := json.Unmarshal(payload[4:4+n], &dir); err != nil {
		return nil, fmt.Errorf("%w: HDU directory: %v", ErrCorruptFile, err)
	}
	if dir.Rows < 0 {
		return nil, fmt.Errorf("%w: negative row count", ErrCorruptFile)
	}

	h := &table.HDU{Name: dir.Name, Rows: dir.Rows}
	for _, cd := range dir.Cards {
		c, err := decodeCard(cd)
		if err != nil {
			return nil, err
		}
		h.Cards = append(h.Cards, c)
	}

	data := payload[4+n:]
	for _, cd := range dir.Columns {
		c, err := table.NewColumn(table.ColumnDef{Name: cd.Name, Format: cd.Format, Unit: cd.Unit}, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
		}
		size := columnBytes(c, dir.Rows)
		if size > len(data) {
			return nil, fmt.Errorf("%w: column %s truncated", ErrCorruptFile, cd.Name)
		}
		readColumn(c, data[:size], dir.Rows)
		data = data[size:]
		h.Columns = append(h.Columns, c)
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes in HDU %q", ErrCorruptFile, len(data), dir.Name)
	}
	return h, nil
}

func readColumn(c *table.Column, src []byte, rows int) {
	r := c.Format.Repeat
	if c.Format.Type == table.Text {
		text := make([]string, rows)
		for i := range text {
			text[i] = strings.TrimRight(string(src[i*r:(i+1)*r]), " ")
		}
		c.SetColumnData(nil, text)
		return
	}
	w := c.Format.Type.Size()
	values := make([]float64, rows*r)
	for i := range values {
		p := src[i*w:]
		switch c.Format.Type {
		case table.Float64:
			values[i] = math.Float64frombits(binary.BigEndian.Uint64(p))
		case table.Float32:
			values[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(p)))
		case table.Int16:
			values[i] = float64(int16(binary.BigEndian.Uint16(p)))
		case table.Int32:
			values[i] = float64(int32(binary.BigEndian.Uint32(p)))
		case table.Int64:
			values[i] = float64(int64(binary.BigEndian.Uint64(p)))
		default:
			values[i] = float64(p[0])
		}
	}
	c.SetColumnData(values, nil)
}
