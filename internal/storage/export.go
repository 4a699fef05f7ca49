package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/foamrun/internal/residual"
)

type ExportData struct {
	Run    RunMetadata           `json:"run"`
	Times  []float64             `json:"times"`
	Series map[string][]*float64 `json:"series"`
}

// ExportJSON writes a run with its residual table. Absent values are null.
func ExportJSON(w io.Writer, meta RunMetadata, snap *residual.Snapshot) error {
	data := ExportData{
		Run:    meta,
		Times:  snap.Times,
		Series: make(map[string][]*float64, len(snap.Fields)),
	}
	for _, f := range snap.Fields {
		vals := snap.Series[f]
		col := make([]*float64, len(snap.Times))
		for i := range col {
			if i < len(vals) && vals[i].Present {
				v := vals[i].V
				col[i] = &v
			}
		}
		data.Series[f] = col
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
