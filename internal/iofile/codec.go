package iofile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/dutkit/internal/ir"
)

// EncodeSamples writes a sample buffer in the digital exchange format.
// Values that cannot be written exactly under spec.Type are rejected.
func EncodeSamples(w io.Writer, spec Spec, data ir.Samples) error {
	if err := data.Check(spec.Type); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fields := make([]string, 0, len(spec.Signals))
	for n, row := range data {
		fields = fields[:0]
		for k, v := range row {
			enc, err := encodeValue(spec.Type, v)
			if err != nil {
				return fmt.Errorf("sample %d column %d: %w", n, k, err)
			}
			fields = append(fields, enc...)
		}
		bw.WriteString(strings.Join(fields, "\t"))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func encodeValue(t ir.DataType, v complex128) ([]string, error) {
	re, im := real(v), imag(v)
	switch t {
	case ir.DataBool, ir.DataInt:
		return []string{strconv.FormatInt(int64(re), 10)}, nil
	case ir.DataSComplex:
		return []string{strconv.FormatInt(int64(re), 10), strconv.FormatInt(int64(im), 10)}, nil
	case ir.DataReal:
		return []string{strconv.FormatFloat(re, 'g', -1, 64)}, nil
	}
	return nil, fmt.Errorf("unknown data type %q", t)
}

// EncodeEvents writes a waveform in the analog exchange format.
func EncodeEvents(w io.Writer, data ir.Events) error {
	bw := bufio.NewWriter(w)
	for _, ev := range data {
		bw.WriteString(strconv.FormatFloat(ev.Time, 'g', -1, 64))
		for _, v := range ev.Values {
			bw.WriteByte('\t')
			bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func newReader(r io.Reader, fields int) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = fields
	cr.ReuseRecord = true
	return cr
}

var errBlankLine = errors.New("blank line")

// lineError carries the line at which decoding failed.
type lineError struct {
	line int
	err  error
}

func (e *lineError) Error() string { return fmt.Sprintf("line %d: %v", e.line, e.err) }
func (e *lineError) Unwrap() error { return e.err }

func readErr(cr *csv.Reader, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &lineError{line: pe.Line, err: pe.Err}
	}
	line, _ := cr.FieldPos(0)
	return &lineError{line: line, err: err}
}

// DecodeSamples parses the digital exchange format.
// A row with the wrong number of columns, an unparsable value or a blank
// line is an error.
func DecodeSamples(r io.Reader, spec Spec) (ir.Samples, error) {
	lanes := spec.Type.Lanes()
	cr := newReader(r, len(spec.Signals))
	var out ir.Samples
	var end int64
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			// csv.Reader skips blank lines but still consumes them.
			if cr.InputOffset() > end {
				return nil, &lineError{line: len(out) + 1, err: errBlankLine}
			}
			return out, nil
		}
		if err != nil {
			return nil, readErr(cr, err)
		}
		if line, _ := cr.FieldPos(0); line != len(out)+1 {
			return nil, &lineError{line: len(out) + 1, err: errBlankLine}
		}
		end = cr.InputOffset()
		row := make([]complex128, len(rec)/lanes)
		for k := range row {
			v, err := decodeValue(spec.Type, rec[k*lanes:(k+1)*lanes])
			if err != nil {
				return nil, readErr(cr, fmt.Errorf("signal %s: %w", spec.Signals[k*lanes], err))
			}
			row[k] = v
		}
		out = append(out, row)
	}
}

func decodeValue(t ir.DataType, fields []string) (complex128, error) {
	switch t {
	case ir.DataBool:
		switch strings.TrimSpace(fields[0]) {
		case "0":
			return 0, nil
		case "1":
			return 1, nil
		}
		return 0, fmt.Errorf("invalid bool %q", fields[0])
	case ir.DataInt:
		n, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return 0, err
		}
		return complex(float64(n), 0), nil
	case ir.DataSComplex:
		re, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return 0, err
		}
		im, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return 0, err
		}
		return complex(float64(re), float64(im)), nil
	case ir.DataReal:
		f, err := parseFinite(fields[0])
		if err != nil {
			return 0, err
		}
		return complex(f, 0), nil
	}
	return 0, fmt.Errorf("unknown data type %q", t)
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return f, nil
}

// DecodeEvents parses the analog exchange format.
// Timestamps must be non-decreasing.
func DecodeEvents(r io.Reader, spec Spec) (ir.Events, error) {
	cr := newReader(r, 1+len(spec.Signals))
	var out ir.Events
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, readErr(cr, err)
		}
		ev := ir.Event{Values: make([]float64, len(spec.Signals))}
		if ev.Time, err = parseFinite(rec[0]); err != nil {
			return nil, readErr(cr, fmt.Errorf("time: %w", err))
		}
		for k := range ev.Values {
			if ev.Values[k], err = parseFinite(rec[k+1]); err != nil {
				return nil, readErr(cr, fmt.Errorf("signal %s: %w", spec.Signals[k], err))
			}
		}
		if n := len(out); n > 0 && ev.Time < out[n-1].Time {
			return nil, readErr(cr, fmt.Errorf("time %g precedes %g", ev.Time, out[n-1].Time))
		}
		out = append(out, ev)
	}
}

func writeSamples(f *File, data ir.Samples) error {
	return writeFile(f, func(w io.Writer) error { return EncodeSamples(w, f.Spec, data) })
}

func writeEvents(f *File, data ir.Events) error {
	return writeFile(f, func(w io.Writer) error { return EncodeEvents(w, data) })
}

func writeFile(f *File, encode func(io.Writer) error) error {
	out, err := os.Create(f.Path)
	if err != nil {
		return &FileError{Code: ErrCodeWrite, Port: f.Name, Path: f.Path, Err: err}
	}
	if err := encode(out); err != nil {
		out.Close()
		return &FileError{Code: ErrCodeWrite, Port: f.Name, Path: f.Path, Err: err}
	}
	if err := out.Close(); err != nil {
		return &FileError{Code: ErrCodeWrite, Port: f.Name, Path: f.Path, Err: err}
	}
	return nil
}

// WriteSamples writes data to the file's path in the digital format.
// Backends use it to produce output files.
func (f *File) WriteSamples(data ir.Samples) error {
	if f.Analog() {
		return fmt.Errorf("exchange file %s: not a sample file", f.Name)
	}
	return writeSamples(f, data)
}

// WriteEvents writes data to the file's path in the analog format.
func (f *File) WriteEvents(data ir.Events) error {
	if !f.Analog() {
		return fmt.Errorf("exchange file %s: not an event file", f.Name)
	}
	return writeEvents(f, data)
}

// ReadSamples reads and validates a digital exchange file.
// An output file with no rows is malformed.
func (f *File) ReadSamples() (ir.Samples, error) {
	if f.Analog() {
		return nil, fmt.Errorf("exchange file %s: not a sample file", f.Name)
	}
	var data ir.Samples
	err := f.read(func(r io.Reader) (n int, err error) {
		data, err = DecodeSamples(r, f.Spec)
		return len(data), err
	})
	return data, err
}

// ReadEvents reads and validates an analog exchange file.
func (f *File) ReadEvents() (ir.Events, error) {
	if !f.Analog() {
		return nil, fmt.Errorf("exchange file %s: not an event file", f.Name)
	}
	var data ir.Events
	err := f.read(func(r io.Reader) (n int, err error) {
		data, err = DecodeEvents(r, f.Spec)
		return len(data), err
	})
	return data, err
}

func (f *File) read(decode func(io.Reader) (int, error)) error {
	in, err := os.Open(f.Path)
	if err != nil {
		code := ErrCodeUnreadable
		if errors.Is(err, os.ErrNotExist) {
			code = ErrCodeMissing
		}
		return &FileError{Code: code, Port: f.Name, Path: f.Path, Err: err}
	}
	defer in.Close()

	n, err := decode(in)
	if err != nil {
		fe := &FileError{Code: ErrCodeMalformed, Port: f.Name, Path: f.Path, Err: err}
		var le *lineError
		if errors.As(err, &le) {
			fe.Line = le.line
			fe.Err = le.err
		}
		return fe
	}
	if n == 0 && f.Dir == ir.Out {
		return &FileError{Code: ErrCodeMalformed, Port: f.Name, Path: f.Path, Err: errors.New("no data rows")}
	}
	return nil
}
