package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"crosspath/internal/config"
	"crosspath/internal/domain/engine"
	"crosspath/internal/domain/geo"
	"crosspath/internal/domain/post"
	"crosspath/internal/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	eng engine.Engine,
	location post.LocationSource,
	fallback geo.Coordinate,
	natsConn *nats.Conn,
	eventsTopic string,
	logger *zap.Logger,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	encounterHandler := handlers.NewEncounterHandler(eng, location, fallback, logger)
	chatHandler := handlers.NewChatHandler(eng)
	mapHandler := handlers.NewMapHandler(eng)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/v1", func(r chi.Router) {
			// Own posts
			r.Route("/posts", func(r chi.Router) {
				r.Get("/", encounterHandler.ListOwnPosts)
				r.Post("/", encounterHandler.PublishPost)
				r.Delete("/{id}", encounterHandler.DeletePost)
			})

			// Candidates and lifecycle actions
			r.Route("/candidates", func(r chi.Router) {
				r.Get("/", encounterHandler.ListVisible)
				r.Post("/refresh", encounterHandler.RefreshCandidates)
				r.Get("/counts", encounterHandler.GetNearbyCounts)
				r.Get("/{id}", encounterHandler.GetCandidate)
				r.Post("/{id}/connect", encounterHandler.Connect)
				r.Post("/{id}/reject", encounterHandler.Reject)
				r.Post("/{id}/unmatch", encounterHandler.Unmatch)
			})

			// Visibility toggles
			r.Put("/filters", encounterHandler.SetFilters)

			// Map projection
			r.Get("/map/markers", mapHandler.GetMarkers)

			// Chats
			r.Route("/chats", func(r chi.Router) {
				r.Get("/", chatHandler.ListSessions)
				r.Get("/{id}", chatHandler.GetSession)
				r.Post("/{id}/open", chatHandler.OpenChat)
				r.Post("/{id}/close", chatHandler.CloseChat)
				r.Post("/{id}/messages", chatHandler.SendMessage)
			})
		})
	})

	// WebSocket endpoint for real-time chat events
	if natsConn != nil {
		router.Get("/ws/chats/{id}", handlers.ChatWebSocketHandler(natsConn, eventsTopic, logger))
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
