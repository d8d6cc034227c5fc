package poller

import (
	"fmt"
	"strings"

	"github.com/rendis/kectap/internal/engine/jobs"
	"github.com/rendis/kectap/internal/model"
)

// fallbackBackendMessage is shown when a failed job carries no message.
const fallbackBackendMessage = "the backend reported an error while processing the job"

// BackendError reports a job the backend marked as failed.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fallbackBackendMessage
	}
	return e.Message
}

// View is a snapshot of the controller. Preview rows are shared and must
// not be modified.
type View struct {
	State   State
	Handle  *model.JobHandle
	Status  model.JobStatus
	Preview *model.Preview
	Err     error
}

// Percent is the display percent of the last status, 0 when none.
func (v View) Percent() int {
	if v.Status == nil {
		return 0
	}
	return model.DisplayPercent(v.Status)
}

// Phase is the phase label of the last status.
func (v View) Phase() string {
	if v.Status == nil {
		return v.State.String()
	}
	return model.PhaseLabel(v.Status)
}

// CanDownload reports whether the export is ready.
func (v View) CanDownload() bool {
	return v.State == StateSucceeded && v.Handle != nil
}

// DownloadURL returns the export URL once the job has succeeded.
func (v View) DownloadURL() (string, bool) {
	if !v.CanDownload() {
		return "", false
	}
	return jobs.DownloadURL(*v.Handle), true
}

// ErrorText is the message shown to the user, empty when there is none.
func (v View) ErrorText() string {
	if v.Err == nil {
		return ""
	}
	return v.Err.Error()
}

// Active reports whether a job is being submitted or polled.
func (v View) Active() bool {
	return v.State == StateSubmitting || v.State == StatePolling
}

// StatusLine summarizes the last status: phase, kecamatan position, current
// kecamatan, found count and percent.
func (v View) StatusLine() string {
	parts := []string{v.Phase()}
	if p, ok := model.ProgressOf(v.Status); ok {
		if p.RegionIndex != nil && p.TotalRegions != nil {
			parts = append(parts, fmt.Sprintf("Kecamatan %d/%d", *p.RegionIndex+1, *p.TotalRegions))
		}
		if p.CurrentRegion != "" {
			parts = append(parts, p.CurrentRegion)
		}
		if p.Found != nil {
			parts = append(parts, fmt.Sprintf("found %d", *p.Found))
		}
	}
	parts = append(parts, fmt.Sprintf("%d%%", v.Percent()))
	return strings.Join(parts, " · ")
}
