package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"parkgate/internal/config"
	"parkgate/internal/db"
	"parkgate/internal/device"
	httpapi "parkgate/internal/http"
	"parkgate/internal/plate"
	"parkgate/internal/repository"
	"parkgate/internal/sensor"
	"parkgate/internal/service"
	"parkgate/internal/vision"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open ledger database")
	}
	defer db.Close(gormDB)
	ledger := repository.NewLedgerRepository(gormDB)

	entryLink := openLink(cfg.Entry.Port, logger.With().Str("device", "entry").Logger())
	defer entryLink.Close()
	exitLink := openLink(cfg.Exit.Port, logger.With().Str("device", "exit").Logger())
	defer exitLink.Close()
	paymentLink := openLink(cfg.Payment.Port, logger.With().Str("device", "payment").Logger())
	paymentLink.SetRetryDelay(cfg.Payment.RetryDelay)
	defer paymentLink.Close()

	snapshots, err := vision.NewSnapshotStore(cfg.Snapshots.Dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare snapshot directory")
	}

	entryScanner := buildScanner(cfg.Entry, entryLink, logger.With().Str("lane", "entry").Logger())
	exitScanner := buildScanner(cfg.Exit, exitLink, logger.With().Str("lane", "exit").Logger())

	entry := service.NewEntryController(
		entryScanner, ledger, entryLink, snapshots,
		cfg.Entry.GateDwell, cfg.Entry.ScanInterval,
		logger.With().Str("component", "entry").Logger(),
	)
	exit := service.NewExitController(
		exitScanner, ledger, exitLink,
		cfg.Exit.GateDwell, cfg.Exit.ScanInterval,
		logger.With().Str("component", "exit").Logger(),
	)
	payment := service.NewPaymentService(
		ledger, paymentLink,
		cfg.Billing.RatePerHour,
		cfg.Payment.CardPollTimeout,
		cfg.Payment.ReadyTimeout,
		cfg.Payment.ConfirmAttempts,
		cfg.Payment.ConfirmTimeout,
		logger.With().Str("component", "payment").Logger(),
	)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(ledger, cfg, logger.With().Str("component", "http").Logger()),
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("dashboard API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("dashboard API failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){entry.Run, exit.Run, payment.Run} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}

	<-ctx.Done()
	logger.Info().Msg("shutdown requested, waiting for in-flight operations")

	// Controllers finish their current gate cycle or handshake before
	// returning; nothing is aborted mid-exchange.
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("dashboard API shutdown failed")
	}
	logger.Info().Msg("parkgate stopped")
}

// openLink discovers and opens a lane's serial device. When the device is
// absent the lane runs in degraded no-gate mode rather than refusing to
// start.
func openLink(portCfg config.Port, log zerolog.Logger) *device.Link {
	name, err := device.DiscoverPort(portCfg.Name, portCfg.Hints)
	if err != nil {
		log.Warn().Err(err).Msg("serial port not found, continuing without device")
		return device.Unavailable(log)
	}
	transport, err := device.OpenSerial(name, portCfg.BaudRate)
	if err != nil {
		log.Warn().Err(err).Str("port", name).Msg("failed to open serial port, continuing without device")
		return device.Unavailable(log)
	}
	log.Info().Str("port", name).Msg("device connected")
	return device.NewLink(transport, log)
}

// buildScanner wires one lane's detection pipeline. The classifier and
// OCR collaborators ship as bench simulations; production deployments
// swap in the real model integrations behind the same interfaces.
func buildScanner(lane config.Lane, link *device.Link, log zerolog.Logger) *service.Scanner {
	var distance sensor.DistanceSource
	if lane.Sensor == "serial" {
		distance = sensor.NewSerial(link, time.Second)
	} else {
		distance = sensor.NewSimulated()
	}

	stabilizer := plate.NewStabilizer(lane.WindowSize, lane.Cooldown)
	return service.NewScanner(
		vision.NewScriptedCamera(lane.DemoPlates...),
		vision.FullFrameClassifier{},
		vision.EchoReader{},
		distance,
		stabilizer,
		lane.TriggerDistance,
		log,
	)
}
