package quant

import (
	"errors"
	"math"
	"testing"
)

func TestScaleOffsetRoundTrip(t *testing.T) {
	t.Parallel()
	samples := []float32{-3.5, 0, 1.25, 7.75, 2, -1}
	for _, bits := range []int{2, 4, 8} {
		maxCode, err := MaxCode(bits)
		if err != nil {
			t.Fatalf("MaxCode(%d): %v", bits, err)
		}
		b := QuantizeBlock(samples, maxCode)
		if b.Offset != -3.5 {
			t.Fatalf("offset mismatch for %d bits: got %v want -3.5", bits, b.Offset)
		}
		got := make([]float64, len(samples))
		b.Values(got)
		for i, s := range samples {
			if diff := math.Abs(got[i] - float64(s)); diff > b.Scale/2+1e-9 {
				t.Fatalf("%d-bit round trip of %v: got %v (diff %v > half step %v)", bits, s, got[i], diff, b.Scale/2)
			}
		}
	}
}

func TestScaleOffsetFoldMode(t *testing.T) {
	t.Parallel()
	samples := []float64{10, 20, 30}
	scale, offset := ScaleOffset(samples, FoldMaxCode)
	if offset != 10 {
		t.Fatalf("offset mismatch: got %v want 10", offset)
	}
	if want := 20.0 / FoldMaxCode; scale != want {
		t.Fatalf("scale mismatch: got %v want %v", scale, want)
	}
	if c := Quantize(30, scale, offset, FoldMaxCode); c != FoldMaxCode {
		t.Fatalf("max sample code mismatch: got %d want %d", c, FoldMaxCode)
	}
}

func TestScaleOffsetConstant(t *testing.T) {
	t.Parallel()
	samples := []float32{4.5, 4.5, 4.5}
	scale, offset := ScaleOffset(samples, 15)
	if scale != 1 || offset != 4.5 {
		t.Fatalf("constant block mismatch: got scale=%v offset=%v want 1, 4.5", scale, offset)
	}
	for _, s := range samples {
		if c := Quantize(float64(s), scale, offset, 15); c != 0 {
			t.Fatalf("constant block code mismatch: got %d want 0", c)
		}
	}
}

func TestQuantizeClampsAndNonFinite(t *testing.T) {
	t.Parallel()
	if c := Quantize(100, 1, 0, 15); c != 15 {
		t.Fatalf("upper clamp mismatch: got %d want 15", c)
	}
	if c := Quantize(-5, 1, 0, 15); c != 0 {
		t.Fatalf("lower clamp mismatch: got %d want 0", c)
	}
	if c := Quantize(math.NaN(), 1, 0, 15); c != 0 {
		t.Fatalf("NaN code mismatch: got %d want 0", c)
	}
	if Finite(math.Inf(1), 0) || Finite(1, math.NaN()) || !Finite(1, 0) {
		t.Fatal("Finite mismatch")
	}
}

func TestPackUnpackInverse(t *testing.T) {
	t.Parallel()
	const nchan, npol, nbins = 5, 2, 3
	for _, bits := range []int{1, 2, 4, 8, 16} {
		maxCode, _ := MaxCode(bits)
		n := nchan * npol * nbins
		buf := make([]byte, PackedSize(n, bits))
		codes := make([]int, n)
		for bin := range nbins {
			for pol := range npol {
				for ch := range nchan {
					i := SampleIndex(bin, pol, ch, npol, nchan)
					codes[i] = (i*7 + 3) % (maxCode + 1)
					if err := Pack(buf, i, codes[i], bits); err != nil {
						t.Fatalf("Pack %d bits index %d: %v", bits, i, err)
					}
				}
			}
		}
		for i, want := range codes {
			got, err := Unpack(buf, i, bits)
			if err != nil {
				t.Fatalf("Unpack %d bits index %d: %v", bits, i, err)
			}
			if got != want {
				t.Fatalf("%d-bit code %d mismatch: got %d want %d", bits, i, got, want)
			}
		}
	}
}

func TestPackLayout(t *testing.T) {
	t.Parallel()
	buf := make([]byte, 1)
	if err := Pack(buf, 0, 0xA, 4); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if err := Pack(buf, 1, 0x3, 4); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if buf[0] != 0xA3 {
		t.Fatalf("4-bit layout mismatch: got %#x want 0xa3", buf[0])
	}

	buf = make([]byte, 1)
	for i, c := range []int{3, 0, 1, 2} {
		if err := Pack(buf, i, c, 2); err != nil {
			t.Fatalf("Pack: %v", err)
		}
	}
	if buf[0] != 0xC6 {
		t.Fatalf("2-bit layout mismatch: got %#x want 0xc6", buf[0])
	}

	buf = make([]byte, 2)
	if err := Pack(buf, 0, 0x1234, 16); err != nil {
		t.Fatalf("Pack 16: %v", err)
	}
	if buf[0] != 0x12 || buf[1] != 0x34 {
		t.Fatalf("16-bit byte order mismatch: got %#x %#x", buf[0], buf[1])
	}
}

func TestPackErrors(t *testing.T) {
	t.Parallel()
	buf := make([]byte, 1)
	if err := Pack(buf, 0, 16, 4); !errors.Is(err, ErrPackOverflow) {
		t.Fatalf("oversized code error mismatch: got %v", err)
	}
	if err := Pack(buf, 0, 1, 3); !errors.Is(err, ErrUnsupportedBits) {
		t.Fatalf("3-bit error mismatch: got %v", err)
	}
	if _, err := ShiftFactor(4, 2); !errors.Is(err, ErrShift) {
		t.Fatalf("misaligned shift error mismatch: got %v", err)
	}
	if _, err := MaxCode(12); !errors.Is(err, ErrUnsupportedBits) {
		t.Fatalf("MaxCode error mismatch: got %v", err)
	}
}

func TestConstantRowPacksToZero(t *testing.T) {
	t.Parallel()
	const nchan, npol, nbins, bits = 4, 1, 8, 4
	samples := make([]float32, nchan*npol*nbins)
	for i := range samples {
		samples[i] = 2.5
	}
	maxCode, _ := MaxCode(bits)
	buf := make([]byte, PackedSize(len(samples), bits))
	if len(buf) != 16 {
		t.Fatalf("packed size mismatch: got %d want 16", len(buf))
	}
	for ch := range nchan {
		chanSamples := make([]float32, 0, nbins)
		for bin := range nbins {
			chanSamples = append(chanSamples, samples[SampleIndex(bin, 0, ch, npol, nchan)])
		}
		scale, offset := ScaleOffset(chanSamples, maxCode)
		if scale != 1 || offset != 2.5 {
			t.Fatalf("channel %d params mismatch: got %v, %v want 1, 2.5", ch, scale, offset)
		}
		for bin := range nbins {
			code := Quantize(float64(chanSamples[bin]), scale, offset, maxCode)
			if err := Pack(buf, SampleIndex(bin, 0, ch, npol, nchan), code, bits); err != nil {
				t.Fatalf("Pack: %v", err)
			}
		}
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d mismatch: got %#x want 0", i, b)
		}
	}
}
