// Package server publishes the follow-up calendar feed over HTTP on localhost.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-svcrecords/internal/config"
)

// RouteFeed is the canonical feed path; the root path serves the same document.
const RouteFeed = "/followups.ics"

// snapshot is one rendered feed with the metadata needed for HTTP caching.
type snapshot struct {
	data         []byte
	events       int
	etag         string
	lastModified string // http.TimeFormat
}

// FeedServer serves the latest follow-up feed. Reads are lock-free; the feed
// is replaced wholesale after every sync.
type FeedServer struct {
	feed atomic.Pointer[snapshot]
	Port string

	// now is swapped in tests.
	now func() time.Time
}

// New creates a server bound to 127.0.0.1:port once started.
func New(port string) *FeedServer {
	return &FeedServer{Port: port, now: time.Now}
}

// Handler returns the routing for the feed endpoints.
func (s *FeedServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.handleFeed)
	mux.HandleFunc(RouteFeed, s.handleFeed)
	return mux
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *FeedServer) Start(ctx context.Context) error {
	if err := config.ValidatePort(s.Port); err != nil {
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}

	srv := &http.Server{
		Addr:         net.JoinHostPort(config.LocalhostBindAddr, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)
	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// Update publishes a new feed. An unchanged document keeps its Last-Modified
// so conditional requests keep hitting 304.
func (s *FeedServer) Update(data []byte, events int) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	if prev := s.feed.Load(); prev != nil && prev.etag == etag {
		return
	}

	nowFn := s.now
	if nowFn == nil {
		nowFn = time.Now
	}
	s.feed.Store(&snapshot{
		data:         data,
		events:       events,
		etag:         etag,
		lastModified: nowFn().UTC().Format(http.TimeFormat),
	})

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyEvents, events,
		config.LogKeyETag, etag,
	)
}

// Events reports how many events the served feed holds, or -1 before the first sync.
func (s *FeedServer) Events() int {
	if snap := s.feed.Load(); snap != nil {
		return snap.events
	}
	return -1
}

func (s *FeedServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != config.RouteRoot && r.URL.Path != RouteFeed {
		http.NotFound(w, r)
		return
	}

	snap := s.feed.Load()
	if snap == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	h := w.Header()
	h.Set(config.HeaderContentType, config.MimeTextCalendar)
	h.Set(config.HeaderXContentType, config.MimeNoSniff)
	h.Set(config.HeaderCacheControl, config.CacheControlPrivate)
	h.Set(config.HeaderETag, snap.etag)
	h.Set(config.HeaderLastModified, snap.lastModified)

	if notModified(r, snap) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(snap.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}

// notModified evaluates If-None-Match first, then If-Modified-Since.
func notModified(r *http.Request, snap *snapshot) bool {
	if match := r.Header.Get(config.HeaderIfNoneMatch); match != "" {
		return match == snap.etag
	}
	since := r.Header.Get(config.HeaderIfModifiedSince)
	if since == "" {
		return false
	}
	clientTime, err := http.ParseTime(since)
	if err != nil {
		return false
	}
	serverTime, err := http.ParseTime(snap.lastModified)
	if err != nil {
		return false
	}
	return !serverTime.After(clientTime)
}
