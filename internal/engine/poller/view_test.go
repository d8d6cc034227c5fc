package poller

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rendis/kectap/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestStatusLine(t *testing.T) {
	tests := []struct {
		name string
		view View
		want string
	}{
		{
			name: "idle",
			view: View{State: StateIdle},
			want: "idle · 0%",
		},
		{
			name: "running with position",
			view: View{State: StatePolling, Status: model.Running{Progress: model.Progress{
				Phase:         "scraping",
				Percent:       ptr(37.6),
				CurrentRegion: "Bergas",
				RegionIndex:   ptr(1),
				TotalRegions:  ptr(3),
				Found:         ptr(14),
			}}},
			want: "scraping · Kecamatan 2/3 · Bergas · found 14 · 38%",
		},
		{
			name: "queued without phase",
			view: View{State: StatePolling, Status: model.Queued{}},
			want: "queued · 0%",
		},
		{
			name: "failed",
			view: View{State: StateFailed, Status: model.Failed{Message: "boom"}},
			want: "error · 0%",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.StatusLine())
		})
	}
}

func TestViewHelpers(t *testing.T) {
	v := View{State: StatePolling, Handle: &model.JobHandle{ID: "J1", BaseURL: "http://b"}}
	assert.True(t, v.Active())
	assert.False(t, v.CanDownload())
	_, ok := v.DownloadURL()
	assert.False(t, ok)
	assert.Empty(t, v.ErrorText())

	v.State = StateSucceeded
	assert.False(t, v.Active())
	url, ok := v.DownloadURL()
	assert.True(t, ok)
	assert.Equal(t, "http://b/api/jobs/J1/download?format=xlsx", url)

	v = View{State: StateFailed, Err: errors.New("nope")}
	assert.Equal(t, "nope", v.ErrorText())
	assert.Equal(t, "failed", v.Phase())
}

func TestBackendErrorText(t *testing.T) {
	assert.Equal(t, "quota", (&BackendError{Message: "quota"}).Error())
	assert.Equal(t, fallbackBackendMessage, (&BackendError{}).Error())
}
