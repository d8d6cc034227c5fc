package model

// Column is one selectable output field of the export.
type Column struct {
	Value   string // machine name sent to the backend
	Label   string
	Group   string
	Default bool
	Hint    string
}

// Catalog lists every column the backend can fill, in display order.
var Catalog = []Column{
	{Value: "name", Label: "nama", Group: "Identitas", Default: true},
	{Value: "place_id", Label: "place_id", Group: "Identitas"},

	{Value: "formatted_address", Label: "alamat", Group: "Alamat", Default: true},
	{Value: "kelurahan", Label: "kelurahan", Group: "Alamat"},
	{Value: "kecamatan", Label: "kecamatan", Group: "Alamat"},
	{Value: "kabkota", Label: "kab/kota", Group: "Alamat"},
	{Value: "provinsi", Label: "provinsi", Group: "Alamat"},
	{Value: "kode_pos", Label: "kode_pos", Group: "Alamat"},

	{Value: "phone", Label: "telepon/WA", Group: "Kontak", Default: true, Hint: "Google; WA can be derived by the backend"},
	{Value: "email", Label: "email", Group: "Kontak", Default: true},
	{Value: "website", Label: "website", Group: "Kontak", Default: true},

	{Value: "latitude", Label: "latitude", Group: "Koordinat"},
	{Value: "longitude", Label: "longitude", Group: "Koordinat"},

	{Value: "google_maps_url", Label: "google_maps_url", Group: "Maps Meta"},
	{Value: "rating", Label: "rating", Group: "Maps Meta"},
	{Value: "user_ratings_total", Label: "user_ratings_total", Group: "Maps Meta"},
	{Value: "types", Label: "types", Group: "Maps Meta"},
	{Value: "open_now", Label: "open_now", Group: "Maps Meta"},
	{Value: "business_status", Label: "business_status", Group: "Maps Meta"},

	// Enrichment needs a non-Maps source on the backend.
	{Value: "male_students", Label: "peserta didik laki-laki", Group: "Enrichment", Default: true, Hint: "needs Dapodik/Referensi"},
	{Value: "female_students", Label: "peserta didik perempuan", Group: "Enrichment"},
	{Value: "total_students", Label: "total peserta didik", Group: "Enrichment"},
	{Value: "npsn", Label: "npsn", Group: "Enrichment"},
	{Value: "status_sekolah", Label: "status_sekolah", Group: "Enrichment"},
	{Value: "jenjang", Label: "jenjang", Group: "Enrichment"},
	{Value: "kepala_sekolah", Label: "kepala_sekolah", Group: "Enrichment"},
}

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(Catalog))
	for i, c := range Catalog {
		idx[c.Value] = i
	}
	return idx
}()

// LookupColumn finds a catalog entry by machine name.
func LookupColumn(value string) (Column, bool) {
	i, ok := catalogIndex[value]
	if !ok {
		return Column{}, false
	}
	return Catalog[i], true
}

// ColumnGroup is a named run of catalog columns.
type ColumnGroup struct {
	Name    string
	Columns []Column
}

// GroupedColumns returns the catalog grouped in first-seen order.
func GroupedColumns() []ColumnGroup {
	var groups []ColumnGroup
	pos := make(map[string]int)
	for _, c := range Catalog {
		i, ok := pos[c.Group]
		if !ok {
			i = len(groups)
			pos[c.Group] = i
			groups = append(groups, ColumnGroup{Name: c.Group})
		}
		groups[i].Columns = append(groups[i].Columns, c)
	}
	return groups
}

// DefaultColumns is the "Minimal" preset.
func DefaultColumns() []string {
	var out []string
	for _, c := range Catalog {
		if c.Default {
			out = append(out, c.Value)
		}
	}
	return out
}

// AllColumns selects the whole catalog.
func AllColumns() []string {
	out := make([]string, len(Catalog))
	for i, c := range Catalog {
		out[i] = c.Value
	}
	return out
}

// PlacesBasicColumns is the preset covering the plain Places fields.
func PlacesBasicColumns() []string {
	return []string{
		"name",
		"formatted_address",
		"phone",
		"website",
		"rating",
		"user_ratings_total",
		"google_maps_url",
		"latitude",
		"longitude",
		"types",
	}
}

// Presets maps the preset names accepted by the CLI and TUI.
var Presets = map[string]func() []string{
	"minimal":      DefaultColumns,
	"places-basic": PlacesBasicColumns,
	"all":          AllColumns,
	"none":         func() []string { return nil },
}

// ToggleColumn removes v if selected, otherwise appends it at the end.
func ToggleColumn(selected []string, v string) []string {
	out := make([]string, 0, len(selected)+1)
	found := false
	for _, s := range selected {
		if s == v {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, v)
	}
	return out
}

// ContainsColumn reports whether v is in selected.
func ContainsColumn(selected []string, v string) bool {
	for _, s := range selected {
		if s == v {
			return true
		}
	}
	return false
}
