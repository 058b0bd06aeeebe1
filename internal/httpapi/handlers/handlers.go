package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"clipforge/internal/pkg/logger"
	"clipforge/internal/render"
)

// Deps for the API handlers. Pool and RDB are optional and only consulted by
// the deep health check.
type Deps struct {
	Orchestrator *render.Orchestrator
	Pool         *pgxpool.Pool
	RDB          *redis.Client
	Log          *logger.Logger
}

type Handler struct {
	orchestrator *render.Orchestrator
	pool         *pgxpool.Pool
	rdb          *redis.Client
	log          *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		orchestrator: d.Orchestrator,
		pool:         d.Pool,
		rdb:          d.RDB,
		log:          log.WithComponent("handlers"),
	}
}
