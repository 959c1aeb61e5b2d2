package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/morsenet/adapters/mdns"
	"github.com/satriahrh/morsenet/domain/gesture"
	"github.com/satriahrh/morsenet/domain/morse"
	"github.com/satriahrh/morsenet/internal/config"
	"github.com/satriahrh/morsenet/internal/console"
	"github.com/satriahrh/morsenet/internal/framing"
	"github.com/satriahrh/morsenet/internal/session"
)

const usage = `Type Morse and press enter to send it.
  .  -     dot and dash
  space    letter gap
  /        word gap
  :clear   discard the buffer
  :press D key for D (e.g. 150ms)
  :quit    leave`

func main() {
	verbose := flag.Bool("v", false, "echo the buffer after every change")
	flag.Parse()

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *verbose, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.ClientConfig, verbose bool, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	addr := cfg.ServerAddr()
	if cfg.Discover {
		host, port, err := mdns.NewLocator(cfg.DialTimeout.Std(), logger).Locate(ctx)
		if err != nil {
			return fmt.Errorf("relay discovery failed: %w", err)
		}
		addr = net.JoinHostPort(host, strconv.Itoa(port))
	}

	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout.Std())
	if err != nil {
		return fmt.Errorf("could not connect to relay at %s: %w", addr, err)
	}
	defer conn.Close()

	display := console.NewDisplay(os.Stdout, verbose)
	sess := session.New(framing.NewWriter(cfg.Framing, conn), display, session.Options{
		Classifier: gesture.NewClassifier(cfg.DotThreshold.Std()),
		Codec:      morse.NewCodec(cfg.DecodeMode),
		LetterGap:  cfg.LetterGap.Std(),
	}, logger)

	display.Status("connected to " + addr)
	fmt.Println(usage)

	events := make(chan gesture.Event)

	// stdin may block past shutdown, so the feed is not part of the group
	go func() {
		defer cancel()
		defer close(events)
		report := func(err error) { display.Status(err.Error()) }
		if err := console.Feed(ctx, os.Stdin, events, report); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Input stopped", zap.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	stopClose := context.AfterFunc(gctx, func() { conn.Close() })
	defer stopClose()

	g.Go(func() error {
		if err := sess.Run(gctx, events); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		return sess.Listen(gctx, framing.NewReader(cfg.Framing, conn, 0))
	})

	return g.Wait()
}
