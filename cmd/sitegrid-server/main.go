package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sitegrid/pkg/sitegrid/config"
	"sitegrid/pkg/sitegrid/database"
	"sitegrid/pkg/sitegrid/groups"
	"sitegrid/pkg/sitegrid/metrics"
	"sitegrid/pkg/sitegrid/models"
	"sitegrid/pkg/sitegrid/sites"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := models.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	r := gin.Default()

	if cfg.Metrics.Enabled {
		m := metrics.New(prometheus.DefaultRegisterer)
		metrics.RegisterEntityGauges(prometheus.DefaultRegisterer, db, logger)
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "sitegrid",
			})
		})

		sitesHandler := sites.NewHandler(sites.NewService(db, logger))
		sitesHandler.RegisterRoutes(api.Group("/sites"))

		groupsHandler := groups.NewHandler(groups.NewService(db, logger))
		groupsHandler.RegisterRoutes(api.Group("/groups"))
	}

	addr := cfg.Server.Addr()
	logger.Info("starting sitegrid server", "addr", addr)
	if err := r.Run(addr); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
