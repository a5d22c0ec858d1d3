package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/babelchat/server/internal/config"
	"github.com/babelchat/server/internal/database"
	"github.com/babelchat/server/internal/session"
)

// Server is the HTTP front end: the websocket endpoint plus a small set
// of read-only REST endpoints.
type Server struct {
	log            *zerolog.Logger
	db             database.ChatRepository
	core           *session.Server
	srv            *http.Server
	allowedOrigins []string
}

func NewServer(mux *http.ServeMux, log *zerolog.Logger, core *session.Server, db database.ChatRepository, cfg *config.Config) *Server {
	s := &Server{
		log:            log,
		db:             db,
		core:           core,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /ws", s.serveWs)
	mux.HandleFunc("GET /api/messages", s.getMessages)
	mux.HandleFunc("GET /api/presence", s.getPresence)
	mux.HandleFunc("GET /healthz", s.healthz)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
	)(mux)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("starting server")
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
