package tablefile

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid table file magic")
	ErrUnsupportedMajor = errors.New("unsupported table file major version")
	ErrCorruptFile      = errors.New("corrupt table file")
)
