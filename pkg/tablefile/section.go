package tablefile

import "encoding/binary"

// SectionType tells primary HDUs from table extensions.
type SectionType uint32

const (
	SectionPrimary SectionType = 0x0001
	SectionTable   SectionType = 0x0002
)

// Section flags.
const (
	FlagSnappy uint32 = 1 << 0
)

// Section is one directory entry. Each HDU is stored as one section, in file
// order.
type Section struct {
	Type   uint32
	Flags  uint32
	Offset uint64
	Size   uint64
}

func (s *Section) End() uint64 {
	return s.Offset + s.Size
}

func encodeSection(dst []byte, s Section) bool {
	if len(dst) < sectionSize {
		return false
	}
	binary.LittleEndian.PutUint32(dst[0:], s.Type)
	binary.LittleEndian.PutUint32(dst[4:], s.Flags)
	binary.LittleEndian.PutUint64(dst[8:], s.Offset)
	binary.LittleEndian.PutUint64(dst[16:], s.Size)
	return true
}

func decodeSection(src []byte) (Section, bool) {
	if len(src) < sectionSize {
		return Section{}, false
	}
	return Section{
		Type:   binary.LittleEndian.Uint32(src[0:]),
		Flags:  binary.LittleEndian.Uint32(src[4:]),
		Offset: binary.LittleEndian.Uint64(src[8:]),
		Size:   binary.LittleEndian.Uint64(src[16:]),
	}, true
}

func rangesOverlap(a0, a1, b0, b1 uint64) bool {
	// half-open ranges [a0,a1) and [b0,b1)
	return a0 < b1 && b0 < a1
}
