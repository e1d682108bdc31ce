package logger

import (
	"io"
	"os"
	"strings"
)

// colorEnabled reports whether pretty output to w should use ANSI colours.
// PSRIO_COLOR=always|never overrides detection; NO_COLOR and TERM=dumb
// disable it.
func colorEnabled(w io.Writer) bool {
	switch strings.ToLower(os.Getenv("PSRIO_COLOR")) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return st.Mode()&os.ModeCharDevice != 0
}
