// Package scansrv implements the HTTP interface of the document scanner:
// synchronous scans and the scan job spool.
package scansrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rusq/osenv/v2"

	"github.com/rusq/docscan"
	"github.com/rusq/docscan/scanjob"
)

// MaxDocumentSize is the maximum size of the uploaded image in bytes.
var MaxDocumentSize = int64(osenv.Value("DOCSCAN_MAX_DOCUMENT_SIZE", 32<<20))

var Debug = osenv.Value("DEBUG", false)

const (
	hdrContentType = "Content-Type"
	hdrLocation    = "Location"
	jpegMIMEType   = "image/jpeg"
	jsonMIMEType   = "application/json"
)

type Server struct {
	sp    *scanjob.Spool
	srv   *http.Server
	base  []docscan.Option // scanner options, request parameters are applied on top
	start time.Time
}

// Option is the server option.
type Option func(*Server)

// WithScanOptions sets the default scanner options for all requests.
func WithScanOptions(opt ...docscan.Option) Option {
	return func(s *Server) {
		s.base = append(s.base, opt...)
	}
}

// New returns a new scan server that submits jobs to sp.
func New(sp *scanjob.Spool, opt ...Option) (*Server, error) {
	if sp == nil {
		return nil, errors.New("spool must be provided")
	}
	s := &Server{
		sp:    sp,
		start: time.Now(),
	}
	for _, o := range opt {
		o(s)
	}

	m := http.NewServeMux()
	m.HandleFunc("POST /scan", s.handleScan)
	m.HandleFunc("POST /jobs", s.handleSubmit)
	m.HandleFunc("GET /jobs", s.handleList)
	m.HandleFunc("GET /jobs/{id}", s.handleJob)
	m.HandleFunc("GET /jobs/{id}/result", s.handleResult)
	m.HandleFunc("POST /jobs/{id}/cancel", s.handleCancel)
	m.HandleFunc("DELETE /jobs/{id}", s.handleRemove)
	m.HandleFunc("GET /methods", s.handleMethods)
	m.HandleFunc("GET /health", s.handleHealth)
	s.srv = &http.Server{
		Handler:           m,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) ListenAndServe(addr string) error {
	s.srv.Addr = addr
	slog.Info("listening", "addr", addr, "max_document_size", MaxDocumentSize)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.  The spool is owned by the
// caller and is not closed.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil // nothing to shutdown
	}
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func httpError(w http.ResponseWriter, code int) {
	http.Error(w, fmt.Sprintf("%d %s", code, http.StatusText(code)), code)
}

// httpErrorMsg writes the error status with the message.
func httpErrorMsg(w http.ResponseWriter, code int, err error) {
	http.Error(w, fmt.Sprintf("%d %s: %s", code, http.StatusText(code), err), code)
}
