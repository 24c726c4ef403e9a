package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/api"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/fleet"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/generator"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/health"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/opcua"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/replay"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
)

const (
	serviceName  = "truck-telemetry-simulator"
	startupGrace = 5 * time.Second
)

// app holds the wired server components
type app struct {
	health  *health.Handler
	opcua   *opcua.Server
	runner  *replay.Runner
	store   storage.ReadStore
	handler http.Handler
}

// newApp rebuilds the fleet and schedule of the dataset so on-demand days
// match it, and wires the API, health, replay and OPC UA components.
// Nothing is started.
func newApp(ctx context.Context, cfg *config.Config, startup time.Duration) (*app, error) {
	sim := config.DefaultSimulation()
	sim.Fleet.Size = cfg.FleetSize
	sim.Fleet.Days = cfg.Days
	fl, err := fleet.NewFleet(sim.Fleet, sim.Engines, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("create fleet: %w", err)
	}
	schedule, err := fleet.AssignFaults(fl.Trucks, cfg.Seed, sim)
	if err != nil {
		return nil, fmt.Errorf("assign faults: %w", err)
	}
	gen, err := generator.NewTruckDay(sim)
	if err != nil {
		return nil, err
	}

	a := &app{health: health.NewHandler(startup)}

	// The store is optional: without it every day is generated on demand
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Dataset store unavailable - generating days on demand")
	} else {
		a.store = store
		a.health.AddCheck("store", store.Ping)
	}

	source := generator.NewDaySource(gen, fl, schedule, a.store, cfg.Days)
	runtimeCfg := config.NewRuntimeConfig(cfg)

	a.opcua = opcua.NewServer(cfg.OPCUAPort, filepath.Join(cfg.OutputDir, "pki"))
	a.opcua.RegisterNamespace(core.NamespaceTruck, "Truck", "Replayed truck telemetry", core.TruckNodes())
	a.runner = replay.NewRunner(source, runtimeCfg, a.opcua)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	apiHandler := api.NewHandler(serviceName, source, runtimeCfg, a.runner)
	a.handler = api.NewRouter(apiHandler, a.health, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return a, nil
}

// Close releases the store
func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	log.Info().
		Int("fleet_size", cfg.FleetSize).
		Int("days", cfg.Days).
		Str("store", cfg.Store).
		Int("http_port", cfg.HTTPPort).
		Int("opcua_port", cfg.OPCUAPort).
		Dur("replay_interval", cfg.ReplayInterval).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, startupGrace)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build server")
	}
	defer a.Close()

	if err := a.opcua.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start OPC UA server")
	}
	a.health.SetOPCUAReady(a.opcua.Running())

	go a.runner.Run(ctx)

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:     handlers.LoggingHandler(os.Stdout, a.handler),
		ReadTimeout: 5 * time.Second,
		// websocket handlers set per-message write deadlines
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("Starting HTTP server (API + web UI)")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := a.opcua.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("OPC UA server shutdown error")
	}

	log.Info().Msg("Server stopped")
}
