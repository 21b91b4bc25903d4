package events

// Event type constants
const (
	EventSyncStarted        = "sync.started"
	EventSyncCompleted      = "sync.completed"
	EventSyncFailed         = "sync.failed"
	EventDownloadStarted    = "download.started"
	EventDownloadProgressed = "download.progressed"
	EventDownloadQueued     = "download.queued"
	EventDownloadCompleted  = "download.completed"
	EventDownloadFailed     = "download.failed"
	EventDownloadCancelled  = "download.cancelled"
)

// SyncStarted is emitted when a reconciliation pass begins.
type SyncStarted struct {
	BaseEvent
	PlaylistID string `json:"playlist_id,omitempty"`
}

// SyncCompleted is emitted after a successful reconciliation pass.
type SyncCompleted struct {
	BaseEvent
	TotalVideos      int `json:"total_videos"`
	NewVideos        int `json:"new_videos"`
	PendingDownloads int `json:"pending_downloads"`
}

// SyncFailed is emitted when a reconciliation pass fails.
type SyncFailed struct {
	BaseEvent
	Error string `json:"error"`
}

// DownloadStarted is emitted when a download attempt begins.
type DownloadStarted struct {
	BaseEvent
	AttemptID string `json:"attempt_id"`
	Quality   string `json:"quality"`
}

// DownloadProgressed is emitted with throttled progress updates.
type DownloadProgressed struct {
	BaseEvent
	Progress float64 `json:"progress"` // 0.0 - 1.0
}

// DownloadQueued is emitted when the remote service holds the video in
// its queue and the client enters queue-wait.
type DownloadQueued struct {
	BaseEvent
	QueuePosition int `json:"queue_position,omitempty"`
}

// DownloadCompleted is emitted when a video finishes downloading.
type DownloadCompleted struct {
	BaseEvent
	FilePath string `json:"file_path"`
	Bytes    int64  `json:"bytes"`
}

// DownloadFailed is emitted when a download attempt exhausts its retries.
type DownloadFailed struct {
	BaseEvent
	Error string `json:"error"`
}

// DownloadCancelled is emitted when a download is cancelled by the caller.
type DownloadCancelled struct {
	BaseEvent
}
