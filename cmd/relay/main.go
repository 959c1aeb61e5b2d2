package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/morsenet/adapters/mdns"
	redisbus "github.com/satriahrh/morsenet/adapters/redis"
	"github.com/satriahrh/morsenet/domain/morse"
	"github.com/satriahrh/morsenet/domain/repositories"
	"github.com/satriahrh/morsenet/internal/api"
	"github.com/satriahrh/morsenet/internal/auth"
	"github.com/satriahrh/morsenet/internal/config"
	"github.com/satriahrh/morsenet/internal/registry"
	"github.com/satriahrh/morsenet/internal/relay"
	"github.com/satriahrh/morsenet/internal/websocket"
	"github.com/satriahrh/morsenet/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	operator := flag.String("operator-token", "", "print an admin token for the named operator and exit")
	flag.Parse()

	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := config.NewLogger(cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	issuer := auth.NewIssuer(cfg.OperatorSecret, 0)

	if *operator != "" {
		token, expiresAt, err := issuer.GenerateOperatorToken(*operator)
		if err != nil {
			logger.Fatal("Failed to generate operator token", zap.Error(err))
		}
		fmt.Println(token)
		logger.Info("Operator token issued",
			zap.String("operator", *operator),
			zap.Time("expiresAt", expiresAt))
		return
	}

	if err := run(cfg, issuer, logger); err != nil {
		logger.Fatal("Relay stopped with error", zap.Error(err))
	}
	logger.Info("Relay exited")
}

func run(cfg *config.ServerConfig, issuer *auth.Issuer, logger *zap.Logger) error {
	// Wait for interrupt signal or an admin request to shut down
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	instanceID := uuid.NewString()
	reg := registry.New()
	codec := morse.NewCodec(cfg.DecodeMode)

	var bus repositories.MessageBus
	if cfg.RedisAddr != "" {
		client, err := redisbus.NewClient(ctx, cfg.RedisAddr, logger)
		if err != nil {
			return err
		}
		b := redisbus.NewBus(client, cfg.RedisChannel, logger)
		defer b.Close()
		bus = b
	}

	relayService := usecase.NewRelayService(codec, reg, bus, instanceID, logger)

	server := relay.NewServer(relay.Options{
		Addr:          cfg.RelayAddr(),
		Framing:       cfg.Framing,
		MaxFrameSize:  cfg.MaxFrameSize,
		SendQueueSize: cfg.SendQueueSize,
		WriteWait:     cfg.WriteWait.Std(),
	}, reg, relayService, logger)

	gateway := websocket.NewGateway(reg, relayService, cfg.MaxFrameSize, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, api.Dependencies{
		Registry:   reg,
		Codec:      codec,
		Gateway:    gateway,
		Issuer:     issuer,
		InstanceID: instanceID,
		Shutdown:   cancel,
		Logger:     logger,
	})

	stats := relay.NewStatsReporter(reg, cfg.StatsInterval.Std(), logger)
	stats.Start()
	defer stats.Stop()

	logger.Info("Relay starting",
		zap.String("instanceID", instanceID),
		zap.String("relayAddr", cfg.RelayAddr()),
		zap.String("httpAddr", cfg.HTTPAddr),
		zap.String("framing", string(cfg.Framing)),
		zap.String("decodeMode", string(cfg.DecodeMode)),
		zap.Bool("bus", bus != nil))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})

	g.Go(func() error {
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return relayService.ConsumeBus(gctx)
	})

	if cfg.MDNSEnabled {
		g.Go(func() error {
			announcement, err := mdns.NewAnnouncer(logger).Announce(gctx, cfg.MDNSInstance, cfg.Port)
			if err != nil {
				// discovery is optional; peers can still dial the address
				logger.Warn("mDNS announcement unavailable", zap.Error(err))
				return nil
			}
			<-gctx.Done()
			announcement.Shutdown()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Relay is shutting down...")

		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()

		err := multierr.Combine(
			server.Shutdown(shutdownCtx),
			e.Shutdown(shutdownCtx),
		)
		closed := reg.CloseAll()
		logger.Info("Closed remaining peers", zap.Int("count", closed))
		return err
	})

	return g.Wait()
}
