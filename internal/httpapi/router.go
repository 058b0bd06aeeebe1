// Package httpapi assembles the API router.
package httpapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"clipforge/internal/httpapi/handlers"
	"clipforge/internal/httpkit"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/pkg/middleware"
	"clipforge/internal/render"
)

type Deps struct {
	Orchestrator *render.Orchestrator
	Pool         *pgxpool.Pool
	RDB          *redis.Client
	Log          *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(d.Log))
	r.Use(middleware.Recovery(d.Log))

	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAgeSeconds:  600,
	}))

	h := handlers.New(handlers.Deps{
		Orchestrator: d.Orchestrator,
		Pool:         d.Pool,
		RDB:          d.RDB,
		Log:          d.Log,
	})

	r.Get("/health", h.Health)
	r.Post("/render", h.PostRender)

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
