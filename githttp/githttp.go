// Package githttp adapts the protocol engine to net/http: it sets the
// exact content types the Git Smart HTTP protocol requires and maps
// engine errors onto status codes. Resolving a request URL to an
// (org, repo, subpath) triple is the caller's job; see the gitservd
// example for a thin routing shim.
//
// Ref conflicts during a push are never HTTP errors - they are
// reported inline in the 200 report-status body, and clients treat an
// "ng" line as the authoritative rejection of that one ref.
package githttp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hairyhenderson/go-gitsmart/blobstore"
	"github.com/hairyhenderson/go-gitsmart/packstore"
	"github.com/hairyhenderson/go-gitsmart/pktline"
	"github.com/hairyhenderson/go-gitsmart/protocol"
	"github.com/hairyhenderson/go-gitsmart/refstore"
)

// A Server handles the three Smart HTTP endpoints for repositories
// held in a single blob store.
type Server struct {
	refs   *refstore.Store
	packs  *packstore.Store
	logger *slog.Logger
}

// NewServer returns a Server for repositories in blobs.
func NewServer(blobs blobstore.Store, opts ...Option) *Server {
	s := &Server{
		refs:   refstore.New(blobs),
		packs:  packstore.New(blobs),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// An Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request outcomes. The default is
// slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Serve dispatches a request already resolved to an org, repository
// and repository-relative subpath.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, org, repo, subpath string) {
	switch {
	case r.Method == http.MethodGet && subpath == "info/refs":
		s.InfoRefs(w, r, org, repo)
	case r.Method == http.MethodPost && subpath == "git-upload-pack":
		s.UploadPack(w, r, org, repo)
	case r.Method == http.MethodPost && subpath == "git-receive-pack":
		s.ReceivePack(w, r, org, repo)
	default:
		http.Error(w, "not a git request", http.StatusBadRequest)
	}
}

// InfoRefs handles GET <repo>/info/refs?service=<service>, the ref
// advertisement.
func (s *Server) InfoRefs(w http.ResponseWriter, r *http.Request, org, repo string) {
	svc := r.FormValue("service")
	if svc == "" {
		http.Error(w, "service query parameter is required", http.StatusBadRequest)

		return
	}

	service, ok := protocol.ParseService(svc)
	if !ok {
		http.Error(w, fmt.Sprintf("unsupported service %q", svc), http.StatusBadRequest)

		return
	}

	// buffer the advertisement so an engine error can still become a
	// clean non-200 response
	var buf bytes.Buffer

	if err := protocol.AdvertiseRefs(r.Context(), s.refs, service, org, repo, &buf); err != nil {
		s.fail(w, r, org, repo, string(service), err)

		return
	}

	s.logRequest(r, org, repo, string(service))

	w.Header().Set("Content-Type", fmt.Sprintf("application/x-%s-advertisement", service))
	w.Header().Set("Cache-Control", "no-cache")

	_, _ = io.Copy(w, &buf)
}

// UploadPack handles POST <repo>/git-upload-pack, the fetch exchange.
func (s *Server) UploadPack(w http.ResponseWriter, r *http.Request, org, repo string) {
	var buf bytes.Buffer

	if err := protocol.UploadPack(r.Context(), s.packs, org, repo, &buf); err != nil {
		s.fail(w, r, org, repo, "git-upload-pack", err)

		return
	}

	s.logRequest(r, org, repo, "git-upload-pack")

	w.Header().Set("Content-Type", "application/x-git-upload-pack-result")
	w.Header().Set("Cache-Control", "no-cache")

	_, _ = io.Copy(w, &buf)
}

// ReceivePack handles POST <repo>/git-receive-pack, the push exchange.
func (s *Server) ReceivePack(w http.ResponseWriter, r *http.Request, org, repo string) {
	var buf bytes.Buffer

	if err := protocol.ReceivePack(r.Context(), s.refs, s.packs, org, repo, r.Body, &buf); err != nil {
		s.fail(w, r, org, repo, "git-receive-pack", err)

		return
	}

	s.logRequest(r, org, repo, "git-receive-pack")

	w.Header().Set("Content-Type", "application/x-git-receive-pack-result")
	w.Header().Set("Cache-Control", "no-cache")

	_, _ = io.Copy(w, &buf)
}

func (s *Server) logRequest(r *http.Request, org, repo, service string) {
	s.logger.DebugContext(r.Context(), "git request",
		slog.String("service", service),
		slog.String("org", org),
		slog.String("repo", repo))
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, org, repo, service string, err error) {
	status := statusFor(err)

	s.logger.ErrorContext(r.Context(), "git request failed",
		slog.String("service", service),
		slog.String("org", org),
		slog.String("repo", repo),
		slog.Int("status", status),
		slog.Any("err", err))

	http.Error(w, err.Error(), status)
}

// statusFor maps engine errors to HTTP statuses: missing repository to
// 404, client-side protocol mistakes to 400, and storage failures to
// 500. Note that a 500 does not undo ref or pack writes that were
// already committed.
func statusFor(err error) int {
	switch {
	case errors.Is(err, protocol.ErrRepoNotFound):
		return http.StatusNotFound
	case errors.Is(err, protocol.ErrMalformedCommand),
		errors.Is(err, pktline.ErrInvalidLength),
		errors.Is(err, refstore.ErrInvalidRef),
		errors.Is(err, refstore.ErrInvalidOID),
		errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
