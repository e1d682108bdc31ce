// Package ephem asks an external ephemeris tool for the folding period of a
// file that does not record one.
package ephem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	shlex "github.com/flynn-archive/go-shlex"
)

// DefaultTemplate queries PSRCHIVE's vap. {file} is replaced by the path.
const DefaultTemplate = "vap -n -c period {file}"

var ErrPredict = errors.New("ephem: period prediction failed")

// Command runs a shell-style command template and parses the period from the
// last field of the first non-empty output line.
type Command struct {
	Template string
}

// PredictPeriod implements psrfits.PeriodPredictor.
func (c Command) PredictPeriod(ctx context.Context, filename string) (float64, error) {
	tmpl := c.Template
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	args, err := shlex.Split(tmpl)
	if err != nil {
		return 0, fmt.Errorf("%w: bad command %q: %v", ErrPredict, tmpl, err)
	}
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: empty command", ErrPredict)
	}
	for i, a := range args {
		args[i] = strings.ReplaceAll(a, "{file}", filename)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return 0, fmt.Errorf("%w: %s: %v: %s", ErrPredict, args[0], err, msg)
		}
		return 0, fmt.Errorf("%w: %s: %v", ErrPredict, args[0], err)
	}
	return parsePeriod(stdout.String())
}

func parsePeriod(out string) (float64, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		p, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: cannot parse %q", ErrPredict, line)
		}
		if !(p > 0) {
			return 0, fmt.Errorf("%w: period %v is not positive", ErrPredict, p)
		}
		return p, nil
	}
	return 0, fmt.Errorf("%w: no output", ErrPredict)
}
