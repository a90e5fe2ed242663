package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/yunseo-dev/tubedl/internal/metrics"
)

// Downloader materializes a remote resource into the storage directory
// and returns the produced file's base name.
type Downloader interface {
	Run(ctx context.Context, rawURL, format string) (string, error)
}

type Server struct {
	downloader Downloader
	dir        string

	// newBackOff builds the retry policy for one streaming attempt.
	newBackOff func() backoff.BackOff

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithStreamBackOff overrides the stream retry policy.
func WithStreamBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *Server) {
		s.newBackOff = newBackOff
	}
}

// NewServer builds the API server. dir is the storage directory served
// by the streaming endpoint.
func NewServer(downloader Downloader, dir string, opts ...Option) *Server {
	s := &Server{
		downloader: downloader,
		dir:        dir,
		newBackOff: defaultStreamBackOff,
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return withRequestID(withAccessLog(s.mux))
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/downloads", s.handleDownload)
	s.mux.HandleFunc("/api/stream/", s.handleStream)
	s.mux.Handle("/metrics", metrics.Handler())
}

// defaultStreamBackOff waits 1s then 2s between the three copy attempts.
func defaultStreamBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	return backoff.WithMaxRetries(bo, streamMaxRetries)
}
