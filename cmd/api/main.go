package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/imartinezl/patitas/internal/adapters/http"
	natsadapter "github.com/imartinezl/patitas/internal/adapters/nats"
	"github.com/imartinezl/patitas/internal/adapters/ws"
	"github.com/imartinezl/patitas/internal/core/domain"
	"github.com/imartinezl/patitas/internal/core/mapsync"
	"github.com/imartinezl/patitas/internal/core/ports"
	"github.com/imartinezl/patitas/internal/core/store"
	"github.com/imartinezl/patitas/internal/core/usecases"
	"github.com/imartinezl/patitas/internal/pkg/config"
	"github.com/imartinezl/patitas/internal/pkg/logging"
	"github.com/imartinezl/patitas/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("patitas-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Entity store
	st := store.New()

	// NATS
	var publisher *natsadapter.Publisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		publisher = pub
		defer publisher.Close()
	}

	// Use cases
	appLogger := slog.Default()
	var eventSink ports.EventPublisher
	if publisher != nil {
		eventSink = publisher
	}
	sightingSvc := usecases.NewSightingService(st, eventSink, appLogger)
	areaSvc := usecases.NewAreaService(st, eventSink, appLogger)
	statsSvc := usecases.NewStatsService(st)

	// Map sessions
	hub := ws.NewHub()
	sessionCfg := usecases.SessionConfig{
		Cluster: mapsync.ClusterConfig{
			Radius:      cfg.Map.ClusterRadius,
			MaxZoom:     cfg.Map.ClusterMaxZoom,
			FlyDuration: time.Duration(cfg.Map.FlyMillis) * time.Millisecond,
		},
		SelectZoom: cfg.Map.SelectZoom,
		FlyTime:    time.Duration(cfg.Map.FlyMillis) * time.Millisecond,
	}
	queryTimeout := time.Duration(cfg.Map.QueryTimeoutSecs) * time.Second
	sessions := ws.NewSessionHandler(st, areaSvc, hub, sessionCfg, queryTimeout, appLogger)

	// Broadcast relay: cross-process announcements reach every connected
	// map client on this instance.
	var subscriber *natsadapter.Subscriber
	if publisher != nil {
		if sub, err := natsadapter.NewSubscriber(cfg.NATS.URL); err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			subscriber = sub
			defer subscriber.Close()
			if err := subscriber.SubscribeBroadcast(func(data []byte) {
				var msg struct {
					Level   string `json:"level"`
					Message string `json:"message"`
				}
				if err := json.Unmarshal(data, &msg); err != nil || msg.Message == "" {
					return
				}
				if msg.Level == "" {
					msg.Level = "info"
				}
				hub.Broadcast(msg.Level, msg.Message)
			}); err != nil {
				slog.Warn("broadcast relay failed", "error", err)
			}
		}
	}

	// Raw NATS connection for the readiness probe
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats probe conn unavailable", "error", err)
	}

	deps := &http.Dependencies{
		Sightings: sightingSvc,
		Areas:     areaSvc,
		Stats:     statsSvc,
		Sessions:  sessions,
		Hub:       hub,
		NATS:      natsConn,
	}

	// Demo data
	if cfg.Seed.Enabled {
		seedSightings(ctx, sightingSvc, cfg.Seed)
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Patitas API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.patitas.app",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

var seedNames = []string{"Michi", "Luna", "Rocky", "Pelusa", "Toby", "Nube", "Canela", "Simba"}

// seedSightings fills the store with a scatter of demo animals around the
// configured center so a fresh install shows a living map.
func seedSightings(ctx context.Context, svc *usecases.SightingService, seed config.SeedConfig) {
	types := []domain.AnimalType{domain.TypeCat, domain.TypeDog, domain.TypeOther}
	statuses := []domain.AnimalStatus{
		domain.StatusReported, domain.StatusNeedsHelp,
		domain.StatusBeingHelped, domain.StatusAdopted,
	}

	for i := 0; i < seed.Sightings; i++ {
		a, err := svc.Report(ctx, usecases.ReportInput{
			Type: types[rand.Intn(len(types))],
			Name: seedNames[rand.Intn(len(seedNames))],
			Location: domain.GeoPoint{
				Lat: seed.CenterLat + (rand.Float64()-0.5)*0.05,
				Lng: seed.CenterLng + (rand.Float64()-0.5)*0.05,
			},
			ReportedBy: "seed",
		})
		if err != nil {
			slog.Warn("seed sighting failed", "error", err)
			continue
		}
		if status := statuses[rand.Intn(len(statuses))]; status != domain.StatusReported {
			if _, err := svc.UpdateStatus(ctx, a.ID, status); err != nil {
				slog.Warn("seed status failed", "error", err)
			}
		}
	}
	slog.Info("seeded demo sightings", "count", seed.Sightings)
}
