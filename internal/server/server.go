package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sw33tLie/partscope/internal/utils"
	"github.com/sw33tLie/partscope/pkg/recommend"
)

// Recommender is the part of recommend.Service the API needs.
type Recommender interface {
	Recommend(ctx context.Context, q recommend.Query) (*recommend.Result, error)
	InvalidateCache(ctx context.Context, pattern string) (int, error)
	Vendors() []string
}

type Server struct {
	Service  Recommender
	Username string
	Password string
	// Metrics is mounted unauthenticated at /metrics when set.
	Metrics http.Handler
	// DefaultTop applies when a request does not set "top".
	DefaultTop int
}

func New(svc Recommender, user, pass string) *Server {
	return &Server{
		Service:    svc,
		Username:   user,
		Password:   pass,
		DefaultTop: 5,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/recommend", s.basicAuth(s.handleRecommend))
	mux.HandleFunc("POST /api/cache/invalidate", s.basicAuth(s.handleInvalidate))
	mux.HandleFunc("GET /api/vendors", s.basicAuth(s.handleVendors))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}
	return mux
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	utils.Log.Infof("Starting server on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
