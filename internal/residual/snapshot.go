package residual

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Snapshot is a detached copy of tracker state, safe to hand to another
// goroutine for rendering or to write to disk.
type Snapshot struct {
	Times  []float64
	Fields []string
	Series map[string][]Value
	Colors map[string]Color
}

// Len is the number of time axis entries.
func (s *Snapshot) Len() int { return len(s.Times) }

// Aligned returns a field's values as a dense slice of length Len(), with
// NaN for absent entries. Extra entries beyond the time axis are dropped.
func (s *Snapshot) Aligned(field string) []float64 {
	out := make([]float64, len(s.Times))
	vals := s.Series[field]
	for i := range out {
		if i < len(vals) && vals[i].Present {
			out[i] = vals[i].V
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Latest returns the last present value of a field.
func (s *Snapshot) Latest(field string) (float64, bool) {
	vals := s.Series[field]
	for i := len(vals) - 1; i >= 0; i-- {
		if vals[i].Present {
			return vals[i].V, true
		}
	}
	return 0, false
}

// WriteCSV writes the table form: a "Time,<field>..." header and one row
// per time axis index, with empty cells for absent values.
func (s *Snapshot) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{"Time"}, s.Fields...)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, t := range s.Times {
		row[0] = formatFloat(t)
		for j, f := range s.Fields {
			row[j+1] = ""
			if vals := s.Series[f]; i < len(vals) && vals[i].Present {
				row[j+1] = formatFloat(vals[i].V)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSV exports the tracker's current state.
func (t *Tracker) WriteCSV(w io.Writer) error {
	return t.Snapshot().WriteCSV(w)
}

// ReadCSV parses a table written by WriteCSV. Colors are reassigned from
// the palette in column order.
func ReadCSV(r io.Reader) (*Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrBadHeader
	}
	if err != nil {
		return nil, err
	}
	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(header[0]), "time") {
		return nil, ErrBadHeader
	}

	snap := &Snapshot{
		Fields: append([]string{}, header[1:]...),
		Series: make(map[string][]Value, len(header)-1),
		Colors: make(map[string]Color, len(header)-1),
	}
	for i, f := range snap.Fields {
		snap.Colors[f] = PaletteColor(i)
		snap.Series[f] = []Value{}
	}

	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("residual: row %d time: %w", line, err)
		}
		snap.Times = append(snap.Times, t)
		for j, f := range snap.Fields {
			v := Absent
			if j+1 < len(rec) {
				if cell := strings.TrimSpace(rec[j+1]); cell != "" {
					x, err := strconv.ParseFloat(cell, 64)
					if err != nil {
						return nil, fmt.Errorf("residual: row %d column %s: %w", line, f, err)
					}
					v = Present(x)
				}
			}
			snap.Series[f] = append(snap.Series[f], v)
		}
	}
	return snap, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
