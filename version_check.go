package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/virtmix/virtmix/internal/types"
	"github.com/virtmix/virtmix/internal/util"
	"golang.org/x/mod/semver"
)

const (
	releaseRepo = "virtmix/virtmix"

	// Release polling cadence: one request per day, with the first one held
	// back so startup is never slowed by the network.
	releasePollEvery  = 24 * time.Hour
	releaseFirstDelay = 30 * time.Second
	releaseHTTPLimit  = 30 * time.Second
	releaseAttempts   = 3
	releaseRetryWait  = 1 * time.Minute
)

// VersionChecker polls GitHub for new releases and reports update
// availability. It is safe for concurrent use.
type VersionChecker struct {
	mu     sync.RWMutex
	latest string
	etag   string // conditional requests, 304 means nothing new
	stopCh chan struct{}
}

// NewVersionChecker returns a VersionChecker with its poll loop running.
func NewVersionChecker() *VersionChecker {
	vc := &VersionChecker{
		stopCh: make(chan struct{}),
	}
	go vc.run()
	return vc
}

// Stop stops the poll loop.
func (vc *VersionChecker) Stop() {
	close(vc.stopCh)
}

func (vc *VersionChecker) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in version checker", "panic", r)
		}
	}()

	select {
	case <-time.After(releaseFirstDelay):
		vc.poll()
	case <-vc.stopCh:
		return
	}

	ticker := time.NewTicker(releasePollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			vc.poll()
		case <-vc.stopCh:
			return
		}
	}
}

// poll runs one polling cycle, retrying transient failures a few times.
func (vc *VersionChecker) poll() {
	for attempt := range releaseAttempts {
		if vc.fetchLatest() {
			return
		}
		if attempt < releaseAttempts-1 {
			select {
			case <-time.After(releaseRetryWait):
			case <-vc.stopCh:
				return
			}
		}
	}
}

type releaseInfo struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// fetchLatest asks the GitHub API for the latest release. It reports false
// only for failures worth retrying: rate limits, server errors, timeouts.
func (vc *VersionChecker) fetchLatest() bool {
	ctx, cancel := context.WithTimeoutCause(
		context.Background(),
		releaseHTTPLimit,
		errors.New("github API request timeout"),
	)
	defer cancel()

	url := "https://api.github.com/repos/" + releaseRepo + "/releases/latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return false
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "virtmix/"+Version)

	vc.mu.RLock()
	etag := vc.etag
	vc.mu.RUnlock()
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		return true
	case http.StatusNotFound:
		// No releases published yet
		return true
	case http.StatusForbidden, http.StatusTooManyRequests:
		return false
	default:
		if resp.StatusCode >= 500 {
			return false
		}
		return true
	}

	var release releaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return false
	}

	if release.Draft || release.Prerelease {
		return true
	}
	if release.TagName == "" {
		return false
	}

	vc.mu.Lock()
	vc.latest = normalizeVersion(release.TagName)
	if newEtag := resp.Header.Get("ETag"); newEtag != "" {
		vc.etag = newEtag
	}
	vc.mu.Unlock()

	return true
}

// Info returns the current version info for the frontend.
func (vc *VersionChecker) Info() types.VersionInfo {
	vc.mu.RLock()
	defer vc.mu.RUnlock()

	current := normalizeVersion(Version)
	info := types.VersionInfo{
		Current:   current,
		Latest:    vc.latest,
		Commit:    Commit,
		BuildTime: util.FormatHumanTime(BuildTime),
	}

	// Dev and unknown builds never advertise an update.
	if vc.latest != "" && current != "dev" && current != "unknown" {
		info.UpdateAvail = isNewerVersion(vc.latest, current)
	}

	return info
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewerVersion reports whether latest is newer than current under semver
// ordering. Both sides are canonicalized to the leading-v form semver wants.
func isNewerVersion(latest, current string) bool {
	return semver.Compare(canonicalVersion(latest), canonicalVersion(current)) > 0
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
