package jobs

import "fmt"

// SubmissionError means the backend refused to create the job or answered
// with something that is not a job id.
type SubmissionError struct {
	StatusCode int // 0 when no HTTP response was received
	Reason     string
	Err        error
}

func (e *SubmissionError) Error() string {
	msg := "failed to start job"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// TransportError is a failed status, preview or download call, either at the network
// level or because the backend answered with a non-2xx status.
type TransportError struct {
	Op         string // "status", "preview" or "download"
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
