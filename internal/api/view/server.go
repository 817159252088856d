package viewapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ShakthiNandan/overlay-geotag/internal/overlay"
)

// Source is the display state served by the view endpoints.
type Source interface {
	View() overlay.View
	Refresh() bool
	Subscribe(fn func(overlay.View))
}

// Server exposes the rendered view over HTTP and websocket.
type Server struct {
	source Source
	hub    *Hub
	log    zerolog.Logger
	router chi.Router
}

func NewServer(source Source, log zerolog.Logger) *Server {
	log = log.With().Str("module", "view").Logger()
	s := &Server{
		source: source,
		hub:    NewHub(log),
		log:    log,
	}
	source.Subscribe(s.hub.Broadcast)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"service": "overlay-geotag-view",
			"clients": s.hub.Len(),
		})
	})
	r.Route("/view", func(r chi.Router) {
		r.Get("/", s.getView)
		r.Get("/map.png", s.getMap)
		r.Get("/ws", s.serveWS)
		r.Post("/refresh", s.refresh)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.source.View())
}

func (s *Server) getMap(w http.ResponseWriter, r *http.Request) {
	png := s.source.View().MapPNG()
	if png == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no map image yet"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, s.source.View())
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if !s.source.Refresh() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no position displayed yet"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("latency", time.Since(start)).
				Msg("request")
		})
	}
}
