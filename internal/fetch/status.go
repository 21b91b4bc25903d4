package fetch

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the normalized remote-side state of a video.
type State string

const (
	StateUnknown      State = "unknown"
	StateNotFound     State = "not_found"
	StateStarting     State = "starting"
	StateQueued       State = "queued"
	StateDownloading  State = "downloading"
	StateMerging      State = "merging"
	StateReady        State = "ready"
	StateTransferring State = "transferring"
	StateCached       State = "cached"
	StateBlocked      State = "blocked"
	StateFailed       State = "failed"
)

// RemoteStatus is the tagged, normalized form of the service's status
// payload. The raw JSON `status` field is sometimes a bare string
// ("not_found") and sometimes an object; normalization happens here so the
// orchestrator only ever sees this one shape.
type RemoteStatus struct {
	VideoID       string
	State         State
	Progress      float64 // remote-side percent, 0-100
	QueuePosition int
	RetryAfter    time.Duration // only set when State == StateBlocked
	FailCount     int
	Message       string
}

// InFlight reports whether the remote service currently owns this video:
// it is queued or being processed under some request.
func (r *RemoteStatus) InFlight() bool {
	switch r.State {
	case StateStarting, StateQueued, StateDownloading, StateMerging, StateTransferring:
		return true
	}
	return false
}

// statusEnvelope matches the service's /status response.
type statusEnvelope struct {
	Success bool            `json:"success"`
	VideoID string          `json:"video_id"`
	Status  json.RawMessage `json:"status"`
}

// statusDetail matches the object form of the status field.
type statusDetail struct {
	Status        string  `json:"status"`
	Phase         string  `json:"phase"`
	Progress      float64 `json:"progress"`
	ProgressText  string  `json:"progress_text"`
	QueuePosition int     `json:"queue_position"`
	RetryAfter    float64 `json:"retry_after"`
	FailCount     int     `json:"fail_count"`
	Error         string  `json:"error"`
}

// parseRemoteStatus normalizes a /status response body.
func parseRemoteStatus(data []byte) (*RemoteStatus, error) {
	var env statusEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}

	rs := &RemoteStatus{VideoID: env.VideoID, State: StateUnknown}
	if len(env.Status) == 0 {
		return rs, nil
	}

	// String form: "not_found", occasionally a bare state name.
	var s string
	if err := json.Unmarshal(env.Status, &s); err == nil {
		rs.State = mapState(s)
		return rs, nil
	}

	// Object form.
	var detail statusDetail
	if err := json.Unmarshal(env.Status, &detail); err != nil {
		return nil, fmt.Errorf("decode status detail: %w", err)
	}
	rs.State = mapState(detail.Status)
	rs.Progress = detail.Progress
	rs.QueuePosition = detail.QueuePosition
	rs.RetryAfter = time.Duration(detail.RetryAfter * float64(time.Second))
	rs.FailCount = detail.FailCount
	rs.Message = detail.ProgressText
	if detail.Error != "" {
		rs.Message = detail.Error
	}
	return rs, nil
}

// mapState maps a raw service status string to a normalized State.
func mapState(s string) State {
	switch s {
	case "not_found":
		return StateNotFound
	case "starting":
		return StateStarting
	case "queued":
		return StateQueued
	case "downloading":
		return StateDownloading
	case "merging":
		return StateMerging
	case "ready":
		return StateReady
	case "transferring":
		return StateTransferring
	case "cached":
		return StateCached
	case "blocked":
		return StateBlocked
	case "failed", "error":
		return StateFailed
	default:
		return StateUnknown
	}
}
