// Package server exposes the numbers backend over HTTP: the record list,
// single-record upserts and batched status updates, all backed by SQLite.
package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"numtrack/internal/record"
)

// Repository is the persistence the handlers need.
type Repository interface {
	FetchNumbers(ctx context.Context) ([]record.Entry, error)
	GetNumber(ctx context.Context, n int) (record.Record, error)
	UpsertNumber(ctx context.Context, n int, r record.Record) error
	BulkSetStatus(ctx context.Context, numbers []int, status record.Status) error
}

type Options struct {
	AllowOrigins []string
	// Registry receives the write counters; a fresh one is created when nil.
	Registry *prometheus.Registry
}

// Setup builds the gin engine with every route mounted under /api.
func Setup(repo Repository, logger *zap.Logger, opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := newMetrics(reg)
	h := &Handler{repo: repo, log: logger, metrics: m}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(CORS(opts.AllowOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.handler()))

	api := r.Group("/api")
	{
		numbers := api.Group("/numbers")
		numbers.GET("", h.ListNumbers)
		numbers.PUT("/bulk-update", h.BulkUpdate)
		numbers.GET("/:number", h.GetNumber)
		numbers.PUT("/:number", h.PutNumber)
	}
	return r
}
