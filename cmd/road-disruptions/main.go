package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alindq/go-road-disruptions/internal/api"
	"github.com/alindq/go-road-disruptions/internal/config"
	"github.com/alindq/go-road-disruptions/internal/logging"
	"github.com/alindq/go-road-disruptions/internal/notify"
	"github.com/alindq/go-road-disruptions/internal/observability"
	"github.com/alindq/go-road-disruptions/internal/repository"
	"github.com/alindq/go-road-disruptions/internal/selection"
	"github.com/alindq/go-road-disruptions/internal/store"
	"github.com/alindq/go-road-disruptions/internal/tfl"
	"github.com/alindq/go-road-disruptions/internal/viewsync"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	var snapshots repository.SnapshotStore
	if cfg.DB.Enabled {
		db, err := repository.NewSQLiteDB(cfg.DB.Path)
		if err != nil {
			logging.Fatalf("Failed to initialize snapshot database: %v", err)
		}
		defer db.Close()
		snapshots = db
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Broadcaster feeds the SSE stream: toasts plus map viewport commands.
	notifier := notify.NewBroadcaster()

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	client := tfl.NewClient(cfg.Feed.URL, cfg.Feed.Timeout)
	st := store.New(client, notifier, snapshots, metrics, clock, cfg.Feed.RefreshInterval)

	sel := selection.NewController()
	coord := viewsync.NewCoordinator(viewsync.Config{
		DefaultLat:  cfg.Map.DefaultLat,
		DefaultLon:  cfg.Map.DefaultLon,
		DefaultZoom: cfg.Map.DefaultZoom,
		FocusZoom:   cfg.Map.FocusZoom,
		PanDuration: cfg.Map.PanDuration,
		SettleDelay: cfg.Map.SettleDelay,
		Bounds:      cfg.Map.Bounds,
	}, viewsync.NewBroadcastViewport(notifier), clock)

	// Selection drives the map; a feed replace drops selections for records
	// that no longer exist.
	sel.OnChange(coord.SelectionChanged)
	st.OnReplace(sel.Invalidate)

	st.Start(ctx)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(5, 10)) // 5 req/s global limit

	handler := api.NewHandler(st, sel, coord, notifier)
	handler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	st.Stop()
	coord.Stop()
	notifier.Close() // Close all SSE streams gracefully

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
