package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/fleet"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/generator"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/stream"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/validation"
)

const progressInterval = 10 * time.Second

type options struct {
	trucks               int
	singleTruck          int
	singleDay            int
	validationCheckpoint bool
	validate             bool
	sampleTrucks         int
	verbose              bool
	metricsAddr          string
}

// parseFlags applies command-line overrides on top of the env configuration
func parseFlags(cfg *config.Config, args []string) (options, error) {
	opts := options{singleDay: generator.AllDays}

	fs := flag.NewFlagSet("generator", flag.ContinueOnError)
	fs.IntVar(&opts.trucks, "trucks", cfg.FleetSize, "number of trucks to generate")
	fs.IntVar(&cfg.Days, "days", cfg.Days, "number of days to simulate")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "master RNG seed")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "output directory")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of parallel truck workers")
	fs.IntVar(&opts.singleTruck, "single-truck", 0, "generate only this truck id")
	fs.IntVar(&opts.singleDay, "single-day", generator.AllDays, "generate only this day index")
	fs.BoolVar(&cfg.SkipExisting, "skip-existing", cfg.SkipExisting, "skip truck-days already stored")
	fs.StringVar(&cfg.FailurePolicy, "failure-policy", cfg.FailurePolicy, "isolate or fail-fast")
	fs.BoolVar(&opts.validationCheckpoint, "validation-checkpoint", false, "generate the 10-truck controlled checkpoint for day 0")
	fs.BoolVar(&opts.validate, "validate", false, "run the validation suite over the store afterwards")
	fs.IntVar(&opts.sampleTrucks, "validate-trucks", 0, "validate only the first N stored trucks (0 = all)")
	fs.BoolVar(&opts.verbose, "verbose", false, "debug logging")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while generating")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	if opts.trucks < 1 {
		return opts, fmt.Errorf("-trucks must be positive, got %d", opts.trucks)
	}
	return opts, cfg.Validate()
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		setupLogging("info")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	opts, err := parseFlags(cfg, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	setupLogging(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid arguments")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		log.Fatal().Err(err).Msg("Generation failed")
	}
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	sim := config.DefaultSimulation()
	sim.Fleet.Size = cfg.FleetSize
	sim.Fleet.Days = cfg.Days

	log.Info().
		Int("fleet_size", cfg.FleetSize).
		Int("days", cfg.Days).
		Int64("seed", cfg.Seed).
		Str("store", cfg.Store).
		Str("output_dir", cfg.OutputDir).
		Msg("Configuration loaded")

	fl, err := fleet.NewFleet(sim.Fleet, sim.Engines, cfg.Seed)
	if err != nil {
		return fmt.Errorf("create fleet: %w", err)
	}
	if err := fl.WriteMetadata(cfg.OutputDir); err != nil {
		return fmt.Errorf("write fleet metadata: %w", err)
	}

	gen, err := generator.NewTruckDay(sim)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer store.Close()

	publisher, err := stream.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect publishers: %w", err)
	}
	if publisher != nil {
		defer publisher.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := generator.NewMetrics(reg)
	if opts.metricsAddr != "" {
		srv := serveMetrics(opts.metricsAddr, reg)
		defer srv.Close()
	}

	batchOpts := generator.BatchOptions{
		Seed:          cfg.Seed,
		Days:          cfg.Days,
		SingleTruck:   opts.singleTruck,
		SingleDay:     opts.singleDay,
		SkipExisting:  cfg.SkipExisting,
		Workers:       cfg.Workers,
		FailurePolicy: cfg.FailurePolicy,
		StoreName:     cfg.Store,
	}

	var schedule fleet.Schedule
	if opts.validationCheckpoint {
		fl.Limit(fleet.ValidationTrucks)
		schedule = fleet.ValidationSchedule(fl.Trucks, sim.Faults)
		batchOpts.SingleTruck = 0
		batchOpts.SingleDay = 0
		log.Info().Int("trucks", len(fl.Trucks)).Msg("Running validation checkpoint with controlled faults")
	} else {
		fl.Limit(opts.trucks)
		schedule, err = fleet.AssignFaults(fl.Trucks, cfg.Seed, sim)
		if err != nil {
			return fmt.Errorf("assign faults: %w", err)
		}
		log.Info().
			Int("trucks", len(fl.Trucks)).
			Int("healthy", schedule.Healthy()).
			Msg("Fault schedule assigned")
	}

	progressCtx, stopProgress := context.WithCancel(ctx)
	go logProgress(progressCtx, metrics)

	manifest, runErr := generator.NewBatch(gen, store, publisher, metrics, batchOpts).Run(ctx, fl.Trucks, schedule)
	stopProgress()

	if err := storage.WriteManifestFile(filepath.Join(cfg.OutputDir, fleet.MetadataDir), manifest); err != nil {
		log.Error().Err(err).Msg("Failed to write manifest file")
	}
	if runErr != nil {
		return runErr
	}

	if opts.validate || opts.validationCheckpoint {
		report, err := validation.Run(ctx, store, opts.sampleTrucks)
		if err != nil {
			return fmt.Errorf("validation: %w", err)
		}
		fmt.Print(report.Summary())
		if !report.Passed() {
			return fmt.Errorf("validation failed: %d of %d checks", report.NFailed(), report.NPassed()+report.NFailed())
		}
	}

	log.Info().Str("run_id", manifest.RunID).Msg("Done")
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return srv
}

func logProgress(ctx context.Context, m *generator.Metrics) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p := m.Snapshot(now)
			log.Info().
				Int("generated", p.Generated).
				Int("skipped", p.Skipped).
				Int("total", p.TotalDays).
				Float64("percent", p.Percent).
				Float64("days_per_s", p.DaysPerSecond).
				Dur("eta", p.ETA).
				Msg("Progress")
		}
	}
}
