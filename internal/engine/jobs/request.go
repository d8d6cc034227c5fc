package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/kectap/internal/model"
)

// PlaceTypes is the fixed category filter: the job targets primary schools.
var PlaceTypes = []string{"primary_school", "school"}

// BuildRequest snapshots p into the create-job body. It performs no I/O and
// copies every slice, so later edits to p do not leak into the request.
func BuildRequest(p model.ParameterSet) model.JobRequest {
	var query *string
	if kw := strings.TrimSpace(p.Keyword); kw != "" {
		query = &kw
	}

	return model.JobRequest{
		Kabkota:   p.RegionName,
		Kecamatan: p.Subdistricts(),
		Query:     query,
		Types:     append([]string(nil), PlaceTypes...),
		Filters: model.RequestFilters{
			MinRating: model.ClampRating(p.MinRating),
		},
		Strategy: model.RequestStrategy{
			Mode:              p.Strategy.Mode,
			GridSizeMeters:    p.Strategy.CellSizeMeters,
			GridOverlapMeters: p.Strategy.OverlapMeters,
			DedupeMeters:      p.Strategy.DedupeRadiusMeters,
		},
		Columns: append([]string{}, p.Columns...),
		Excel: model.RequestExcel{
			SheetPerKecamatan: p.Export.SheetPerSubdistrict,
			WithMetadataSheet: p.Export.IncludeMetadataSheet,
			AutoFit:           p.Export.AutoFitColumns,
			FreezeHeader:      p.Export.FreezeHeaderRow,
		},
	}
}

// EncodeRequest serializes req. Identical requests give identical bytes.
func EncodeRequest(req model.JobRequest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(req); err != nil {
		return nil, fmt.Errorf("encoding job request: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
