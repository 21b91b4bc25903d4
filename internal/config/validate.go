// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
	"os"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validQualities = map[string]bool{
	"max": true, "1080": true, "720": true, "360": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// Server validation
	if c.Server.URL == "" {
		errs = append(errs, "server.url: required")
	} else if _, err := url.Parse(c.Server.URL); err != nil {
		errs = append(errs, fmt.Sprintf("server.url: invalid url %q", c.Server.URL))
	}
	if !validQualities[c.Server.Quality] {
		errs = append(errs, fmt.Sprintf("server.quality: must be one of max, 1080, 720, 360; got %q", c.Server.Quality))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	// Storage validation
	if c.Storage.Database == "" {
		errs = append(errs, "storage.database: required")
	}
	if c.Storage.DownloadDir == "" {
		errs = append(errs, "storage.download_dir: required")
	}

	// Download validation
	if c.Download.MaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("download.max_retries: must not be negative, got %d", c.Download.MaxRetries))
	}
	if c.Download.MaxBackoff != 0 && c.Download.InitialBackoff > c.Download.MaxBackoff {
		errs = append(errs, "download.initial_backoff: must not exceed download.max_backoff")
	}

	// Snapshot path warning (non-fatal): serve mode needs it
	if c.Storage.PlaylistSnapshot != "" {
		if _, err := os.Stat(c.Storage.PlaylistSnapshot); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("storage.playlist_snapshot: warning: file %q does not exist", c.Storage.PlaylistSnapshot))
		}
	}

	return errs
}
