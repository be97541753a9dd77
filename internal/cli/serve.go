package cli

import (
	"log"

	"nigran/internal/config"
	"nigran/internal/controllers"
	"nigran/internal/middleware"
	"nigran/internal/routes"
	"nigran/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the telemetry server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func runServer(cfg *config.Config) error {
	services.InitAuthService(cfg.SecretKey, cfg.TokenExpiry)

	collector := services.NewCollector()
	cache := services.NewCacheManager(collector, cfg.TTL)
	filter := services.NewSignificanceFilter(cfg.Thresholds)
	registry := services.NewBaselineRegistry(filter, cfg.StalenessWindow)
	history := services.NewHistoryCollector(720)

	hub := services.NewHub(cache, registry, cfg)
	hub.SetHistory(history)
	go hub.Run()
	defer hub.Stop()

	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter()))

	routes.RegisterAuthRoutes(r)
	routes.RegisterWebSocketRoute(r, controllers.NewWSController(hub))
	routes.RegisterMetricsRoutes(r, controllers.NewMetricsController(cache, history))

	log.Printf("[SERVE] listening on %s (tick %v active / %v idle)", cfg.Listen, cfg.ActivePeriod, cfg.IdlePeriod)
	return r.Run(cfg.Listen)
}
