package mockbackend

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/rendis/kectap/internal/engine/geo"
	"github.com/rendis/kectap/internal/model"
)

// regionCenter is roughly the middle of Kabupaten Semarang.
var regionCenter = orb.Point{110.42, -7.20}

const (
	areaRadiusMeters = 2500.0
	regionSpreadDeg  = 0.12
)

// job is one simulated scrape. Results are generated up front; status calls
// only reveal them step by step.
type job struct {
	id      string
	req     model.JobRequest
	created time.Time
	polls   int
	rows    []map[string]any
	// found[i] is the number of rows gathered after kecamatan i.
	found []int
}

func newJob(req model.JobRequest, placesPerCell int) *job {
	j := &job{
		id:      uuid.NewString(),
		req:     req,
		created: time.Now().UTC(),
	}
	for _, kec := range req.Kecamatan {
		j.rows = append(j.rows, simulateKecamatan(req, kec, placesPerCell)...)
		j.found = append(j.found, len(j.rows))
	}
	return j
}

func seedFor(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(s)))
	return h.Sum64()
}

func simulateKecamatan(req model.JobRequest, kec string, placesPerCell int) []map[string]any {
	seed := seedFor(kec)
	rng := rand.New(rand.NewPCG(seed, seed>>7|1))

	center := orb.Point{
		regionCenter.Lon() + (rng.Float64()*2-1)*regionSpreadDeg,
		regionCenter.Lat() + (rng.Float64()*2-1)*regionSpreadDeg,
	}
	strategy := model.Strategy{
		Mode:               req.Strategy.Mode,
		CellSizeMeters:     req.Strategy.GridSizeMeters,
		OverlapMeters:      req.Strategy.GridOverlapMeters,
		DedupeRadiusMeters: req.Strategy.DedupeMeters,
	}

	var candidates []orb.Point
	for _, c := range geo.SearchCenters(center, areaRadiusMeters, strategy) {
		jitterLat, jitterLng := geo.MetersToDegrees(float64(max(strategy.CellSizeMeters, model.MinCellSize))/2, c.Lat())
		for range placesPerCell {
			candidates = append(candidates, orb.Point{
				c.Lon() + (rng.Float64()*2-1)*jitterLng,
				c.Lat() + (rng.Float64()*2-1)*jitterLat,
			})
		}
	}

	var rows []map[string]any
	n := 0
	for _, i := range geo.Dedupe(candidates, float64(strategy.DedupeRadiusMeters)) {
		rating := 3.0 + float64(rng.IntN(21))/10
		if rating < req.Filters.MinRating {
			continue
		}
		n++
		rows = append(rows, place(rng, req, kec, n, candidates[i], rating))
	}
	return rows
}

func place(rng *rand.Rand, req model.JobRequest, kec string, n int, p orb.Point, rating float64) map[string]any {
	negeri := rng.IntN(3) > 0
	status := "SWASTA"
	name := fmt.Sprintf("SD %s %d", kec, n)
	if negeri {
		status = "NEGERI"
		name = fmt.Sprintf("SD Negeri %s %d", kec, n)
	}
	if req.Query != nil {
		name = fmt.Sprintf("%s %d %s", *req.Query, n, kec)
	}

	slug := strings.ToLower(strings.ReplaceAll(kec, " ", ""))
	placeID := "ChIJ" + strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String(), "-", "")[:23]
	male := 40 + rng.IntN(160)
	female := 40 + rng.IntN(160)
	kelurahan := fmt.Sprintf("Kelurahan %s %d", kec, 1+rng.IntN(6))

	return map[string]any{
		"name":               name,
		"place_id":           placeID,
		"formatted_address":  fmt.Sprintf("Jl. Pendidikan No.%d, %s, Kec. %s, %s, Jawa Tengah", 1+rng.IntN(120), kelurahan, kec, req.Kabkota),
		"kelurahan":          kelurahan,
		"kecamatan":          kec,
		"kabkota":            req.Kabkota,
		"provinsi":           "Jawa Tengah",
		"kode_pos":           fmt.Sprintf("50%03d", 500+rng.IntN(300)),
		"phone":              fmt.Sprintf("+62 298 %06d", rng.IntN(1_000_000)),
		"email":              fmt.Sprintf("sd%d.%s@sekolah.id", n, slug),
		"website":            fmt.Sprintf("https://sd%d-%s.sch.id", n, slug),
		"latitude":           p.Lat(),
		"longitude":          p.Lon(),
		"google_maps_url":    "https://www.google.com/maps/place/?q=place_id:" + placeID,
		"rating":             rating,
		"user_ratings_total": rng.IntN(400),
		"types":              strings.Join(req.Types, ","),
		"open_now":           rng.IntN(2) == 0,
		"business_status":    "OPERATIONAL",
		"male_students":      male,
		"female_students":    female,
		"total_students":     male + female,
		"npsn":               fmt.Sprintf("2031%04d", rng.IntN(10_000)),
		"status_sekolah":     status,
		"jenjang":            "SD",
		"kepala_sekolah":     fmt.Sprintf("Kepala SD %d %s", n, kec),
	}
}

// project keeps only the requested columns of a row.
func project(row map[string]any, columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		out[c] = row[c]
	}
	return out
}
