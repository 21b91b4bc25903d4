// Package catalog persists the local video catalog and sync state.
package catalog

import (
	"time"
)

// Status tracks the download state of a video.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// validTransitions defines allowed state transitions.
// Key is the "from" status, value is list of valid "to" statuses.
// downloading -> pending covers stuck-download recovery during sync;
// completed -> pending covers a completed record whose file vanished.
var validTransitions = map[Status][]Status{
	StatusPending:     {StatusDownloading},
	StatusDownloading: {StatusCompleted, StatusFailed, StatusPending},
	StatusCompleted:   {StatusPending},
	StatusFailed:      {StatusPending, StatusDownloading},
}

// CanTransitionTo returns true if transitioning from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	valid, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, v := range valid {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this status ends an attempt
// (failed may still re-enter downloading via retry).
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Video is one entry in the local catalog, keyed by its remote video id.
type Video struct {
	VideoID            string
	Title              string
	Description        string
	ThumbnailURL       string
	ChannelName        string
	TotalDurationSecs  int
	AddedToPlaylistAt  time.Time
	FilePath           *string
	DownloadStatus     Status
	DownloadProgress   float64
	DownloadedAt       *time.Time
	Watched            bool
	LastPositionSecs   int
	IsDeleted          bool
	DeletedAt          *time.Time
}

// Downloadable reports whether the video is eligible for the batch
// download pass: pending or failed, not soft-deleted, not watched.
func (v *Video) Downloadable() bool {
	if v.IsDeleted || v.Watched {
		return false
	}
	return v.DownloadStatus == StatusPending || v.DownloadStatus == StatusFailed
}

// watchedThreshold is the fraction of total duration past which playback
// counts as having watched the video.
const watchedThreshold = 0.95

// Filter specifies criteria for listing videos.
type Filter struct {
	Status       *Status
	Deleted      *bool
	Watched      *bool
	Downloadable bool // pending/failed, not deleted, not watched
}
