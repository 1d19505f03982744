package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/beststories/hackernews"
	appmw "github.com/briangreenhill/beststories/internal/http/middleware"
	"github.com/briangreenhill/beststories/internal/stories"
)

const msgInvalidN = "n must be greater than 0"

// statusClientClosedRequest is the nginx convention for a request whose
// client went away before the response was ready.
const statusClientClosedRequest = 499

// BestStoriesGetter is implemented by *stories.Service.
type BestStoriesGetter interface {
	BestStories(ctx context.Context, n int) ([]stories.BestStory, error)
}

type Server struct {
	Router  *chi.Mux
	Stories BestStoriesGetter
	MaxN    int // requests above this are clamped; 0 disables
}

type ServerOptions struct {
	Stories BestStoriesGetter
	Logger  zerolog.Logger
	MaxN    int
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(appmw.RequestID)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Stories: opts.Stories, MaxN: opts.MaxN}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("write health check response")
		}
	})

	r.Get("/api/stories/best", s.handleBestStories)

	return s
}

func (s *Server) handleBestStories(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, msgInvalidN)
		return
	}
	if s.MaxN > 0 && n > s.MaxN {
		n = s.MaxN
	}

	result, err := s.Stories.BestStories(r.Context(), n)
	if err != nil {
		log := hlog.FromRequest(r)
		switch {
		case errors.Is(err, stories.ErrInvalidCount):
			writeError(w, http.StatusBadRequest, msgInvalidN)
		case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
			log.Debug().Err(err).Int("n", n).Msg("client went away")
			writeError(w, statusClientClosedRequest, "request canceled")
		case hackernews.IsUpstream(err):
			log.Error().Err(err).Int("n", n).Msg("best stories upstream failure")
			writeError(w, http.StatusBadGateway, "upstream service unavailable")
		default:
			log.Error().Err(err).Int("n", n).Msg("best stories failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
