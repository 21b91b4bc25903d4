// Package repair reconciles the catalog with what is actually on disk:
// completed records whose file vanished are reset to pending, and media
// files no record points at are reattached to their video by fuzzy
// title matching.
package repair

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/offtube/offtube/internal/catalog"
	"github.com/offtube/offtube/internal/download"
)

// matchThreshold is the minimum Jaro-Winkler similarity between a file
// stem and a sanitized title for reattachment.
const matchThreshold = 0.85

// Match records one file reattached to a catalog video.
type Match struct {
	VideoID  string
	FilePath string
	Score    float64
}

// Report summarizes one repair pass.
type Report struct {
	ResetMissing []string // completed videos whose file was gone
	Reattached   []Match  // orphan files matched back to a video
	Unmatched    []string // orphan files with no plausible owner
}

// Repairer walks the download directory against the catalog.
type Repairer struct {
	store       *catalog.Store
	downloadDir string
	log         *slog.Logger
}

func NewRepairer(store *catalog.Store, downloadDir string, log *slog.Logger) *Repairer {
	if log == nil {
		log = slog.Default()
	}
	return &Repairer{
		store:       store,
		downloadDir: downloadDir,
		log:         log.With("component", "repair"),
	}
}

// Run performs one repair pass. Mutations are applied as they are found;
// a failing store write aborts the pass with the partial report.
func (r *Repairer) Run(ctx context.Context) (*Report, error) {
	videos, err := r.store.List(catalog.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	report := &Report{}
	claimed := make(map[string]bool) // file paths referenced by completed records

	for _, v := range videos {
		if v.DownloadStatus != catalog.StatusCompleted || v.FilePath == nil {
			continue
		}
		if _, err := os.Stat(*v.FilePath); err == nil {
			claimed[*v.FilePath] = true
			continue
		}
		r.log.Warn("completed video lost its file, resetting",
			"video_id", v.VideoID, "path", *v.FilePath)
		if err := r.store.ResetPending(v); err != nil {
			return report, fmt.Errorf("reset %s: %w", v.VideoID, err)
		}
		report.ResetMissing = append(report.ResetMissing, v.VideoID)
	}

	orphans, err := r.findOrphans(claimed)
	if err != nil {
		return report, err
	}

	// Candidates for reattachment: anything not deleted and not already
	// completed with a live file.
	var candidates []*catalog.Video
	for _, v := range videos {
		if v.IsDeleted || v.DownloadStatus == catalog.StatusCompleted {
			continue
		}
		candidates = append(candidates, v)
	}

	for _, path := range orphans {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		v, score := bestMatch(path, candidates)
		if v == nil {
			report.Unmatched = append(report.Unmatched, path)
			continue
		}
		if err := r.reattach(v, path); err != nil {
			return report, err
		}
		report.Reattached = append(report.Reattached, Match{
			VideoID: v.VideoID, FilePath: path, Score: score,
		})
		candidates = remove(candidates, v)
	}

	r.log.Info("repair pass finished",
		"reset", len(report.ResetMissing),
		"reattached", len(report.Reattached),
		"unmatched", len(report.Unmatched))
	return report, nil
}

// findOrphans lists media files in the download directory that no
// completed record references.
func (r *Repairer) findOrphans(claimed map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(r.downloadDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read download dir: %w", err)
	}

	var orphans []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".mp4" {
			continue
		}
		path := filepath.Join(r.downloadDir, e.Name())
		if !claimed[path] {
			orphans = append(orphans, path)
		}
	}
	return orphans, nil
}

// bestMatch compares the file stem against each candidate's sanitized
// title and returns the best scorer above the threshold.
func bestMatch(path string, candidates []*catalog.Video) (*catalog.Video, float64) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var best *catalog.Video
	var bestScore float64
	for _, v := range candidates {
		title := download.SanitizeTitle(v.Title, v.VideoID)
		score := float64(edlib.JaroWinklerSimilarity(stem, title))
		if score > bestScore {
			best, bestScore = v, score
		}
	}
	if bestScore < matchThreshold {
		return nil, 0
	}
	return best, bestScore
}

// reattach marks the video completed with the orphan file as its media.
// The claim step keeps the status transition chain valid.
func (r *Repairer) reattach(v *catalog.Video, path string) error {
	if v.DownloadStatus != catalog.StatusDownloading {
		if err := r.store.Claim(v); err != nil {
			return fmt.Errorf("claim %s: %w", v.VideoID, err)
		}
	}
	if err := r.store.MarkCompleted(v, path); err != nil {
		return fmt.Errorf("complete %s: %w", v.VideoID, err)
	}
	r.log.Info("reattached orphan file", "video_id", v.VideoID, "path", path)
	return nil
}

func remove(vs []*catalog.Video, target *catalog.Video) []*catalog.Video {
	out := vs[:0]
	for _, v := range vs {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
