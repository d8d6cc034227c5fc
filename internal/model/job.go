package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// JobRequest is the create-job body. Optional fields are pointers without
// omitempty so an unset value is sent as null rather than dropped.
type JobRequest struct {
	Kabkota   string          `json:"kabkota"`
	Kecamatan []string        `json:"kecamatan"`
	Query     *string         `json:"query"`
	Types     []string        `json:"types"`
	Filters   RequestFilters  `json:"filters"`
	Strategy  RequestStrategy `json:"strategy"`
	Columns   []string        `json:"columns"`
	Excel     RequestExcel    `json:"excel"`
}

type RequestFilters struct {
	MinRating         float64 `json:"minRating"`
	OpenNow           *bool   `json:"openNow"`
	LimitPerKecamatan *int    `json:"limitPerKecamatan"`
}

type RequestStrategy struct {
	Mode              StrategyMode `json:"mode"`
	GridSizeMeters    int          `json:"gridSizeMeters"`
	GridOverlapMeters int          `json:"gridOverlapMeters"`
	DedupeMeters      int          `json:"dedupeMeters"`
}

type RequestExcel struct {
	SheetPerKecamatan bool `json:"sheetPerKecamatan"`
	WithMetadataSheet bool `json:"withMetadataSheet"`
	AutoFit           bool `json:"autoFit"`
	FreezeHeader      bool `json:"freezeHeader"`
}

// JobHandle identifies a submitted job on the server it was created on.
type JobHandle struct {
	ID      string
	BaseURL string
}

// State is the backend-reported job state.
type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateError   State = "error"
)

// JobStatus is one status snapshot. The concrete type is one of Queued,
// Running, Done or Failed; each carries only the fields its state allows.
type JobStatus interface {
	State() State
	isJobStatus()
}

// Progress is the optional progress payload of a non-failed snapshot.
type Progress struct {
	Phase         string
	Percent       *float64
	CurrentRegion string
	RegionIndex   *int // 0-based
	TotalRegions  *int
	Found         *int
}

type Queued struct{ Progress }
type Running struct{ Progress }
type Done struct{ Progress }

// Failed is a job the backend gave up on. Message may be empty.
type Failed struct {
	Message string
}

func (Queued) State() State  { return StateQueued }
func (Running) State() State { return StateRunning }
func (Done) State() State    { return StateDone }
func (Failed) State() State  { return StateError }

func (Queued) isJobStatus()  {}
func (Running) isJobStatus() {}
func (Done) isJobStatus()    {}
func (Failed) isJobStatus()  {}

// ProgressOf returns the progress payload, or false for Failed.
func ProgressOf(s JobStatus) (Progress, bool) {
	switch v := s.(type) {
	case Queued:
		return v.Progress, true
	case Running:
		return v.Progress, true
	case Done:
		return v.Progress, true
	}
	return Progress{}, false
}

// DisplayPercent clamps the reported percent to [0,100]; absent is 0.
func DisplayPercent(s JobStatus) int {
	p, ok := ProgressOf(s)
	if !ok || p.Percent == nil || math.IsNaN(*p.Percent) {
		return 0
	}
	v := math.Max(0, math.Min(100, *p.Percent))
	return int(math.Round(v))
}

// PhaseLabel is the phase text, falling back to the state name.
func PhaseLabel(s JobStatus) string {
	if p, ok := ProgressOf(s); ok && p.Phase != "" {
		return p.Phase
	}
	return string(s.State())
}

// wireStatus is the status body as the backend sends it.
type wireStatus struct {
	Status                string   `json:"status"`
	Phase                 *string  `json:"phase"`
	OverallProgress       *float64 `json:"overallProgress"`
	Progress              *float64 `json:"progress"`
	CurrentKecamatanName  *string  `json:"currentKecamatanName"`
	CurrentKecamatanIndex *float64 `json:"currentKecamatanIndex"`
	TotalKecamatan        *float64 `json:"totalKecamatan"`
	Found                 *float64 `json:"found"`
	Message               *string  `json:"message"`
}

// DecodeJobStatus parses a status body into its state-specific variant.
// Status values it does not recognise decode as Queued so polling continues.
func DecodeJobStatus(data []byte) (JobStatus, error) {
	var w wireStatus
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}

	prog := Progress{
		Phase:         deref(w.Phase),
		Percent:       w.OverallProgress,
		CurrentRegion: deref(w.CurrentKecamatanName),
		RegionIndex:   toInt(w.CurrentKecamatanIndex),
		TotalRegions:  toInt(w.TotalKecamatan),
		Found:         toInt(w.Found),
	}
	if prog.Percent == nil {
		prog.Percent = w.Progress
	}

	switch State(strings.ToLower(w.Status)) {
	case StateQueued:
		return Queued{prog}, nil
	case StateRunning:
		return Running{prog}, nil
	case StateDone:
		return Done{prog}, nil
	case StateError:
		return Failed{Message: deref(w.Message)}, nil
	}
	return Queued{prog}, nil
}

// toInt truncates a counter; the backend may send 12 or 12.0.
func toInt(f *float64) *int {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	n := int(math.Trunc(*f))
	return &n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Preview is the bounded sample of result rows fetched once a job is done.
type Preview struct {
	Rows  []map[string]any `json:"rows"`
	Total *int             `json:"total,omitempty"`
}

// Cell renders a preview value for display; nil is empty.
func Cell(row map[string]any, col string) string {
	v, ok := row[col]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return fmt.Sprintf("%.0f", t)
		}
		return fmt.Sprintf("%g", t)
	}
	return fmt.Sprint(v)
}
