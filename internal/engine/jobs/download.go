package jobs

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/kectap/internal/model"
)

// Download saves the XLSX export of h into dir and returns the file path.
// The name comes from Content-Disposition when present.
func (c *Client) Download(ctx context.Context, h model.JobHandle, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, DownloadURL(h), nil)
	if err != nil {
		return "", &TransportError{Op: "download", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "download", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", &TransportError{Op: "download", StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, attachmentName(resp.Header.Get("Content-Disposition"), h.ID))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating output: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", &TransportError{Op: "download", Err: err}
	}

	c.logger.Info("jobs.download.ok", "job_id", h.ID, "path", path, "bytes", n)
	return path, nil
}

// attachmentName picks a safe local file name for the export.
func attachmentName(disposition, jobID string) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if name := filepath.Base(params["filename"]); name != "." && name != "/" && name != "" {
			return name
		}
	}
	id := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, jobID)
	return "kectap_" + id + ".xlsx"
}
