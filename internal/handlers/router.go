package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appMiddleware "github.com/devradar/backend/internal/middleware"
)

type RouterConfig struct {
	Devs           *DevHandler
	Search         *SearchHandler
	Socket         *SocketHandler
	JWTSecret      string
	AllowedOrigins []string
	Logger         *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(appMiddleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/search", cfg.Search.Search)
	r.Get("/ws", cfg.Socket.Connect)

	r.Route("/devs", func(r chi.Router) {
		r.Get("/", cfg.Devs.ListDevs)
		r.Post("/", cfg.Devs.CreateDev)

		r.Route("/{githubUsername}", func(r chi.Router) {
			r.Get("/", cfg.Devs.GetDev)

			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.JWTAuth(cfg.JWTSecret))
				r.Put("/", cfg.Devs.UpdateDev)
				r.Delete("/", cfg.Devs.DeleteDev)
			})
		})
	})

	return r
}
