package httpapi

import (
	"net/http"
	"time"

	"github.com/DoyleJ11/bingo-backend/internal/game"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func SetupRoutes(svc *game.Service, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handlers{svc: svc, log: log.Named("http")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Post("/sessions", h.createSession)
	r.Post("/sessions/join", h.joinSession)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.getSnapshot)
		r.Post("/start", h.startSession)
		r.Post("/draw", h.drawNumber)
		r.Post("/claims", h.submitClaim)
		r.Post("/reset", h.resetSession)
		r.Post("/leave", h.leaveSession)
	})
	return r
}

// requestLogger writes one line per request through zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Debug("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("took", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
