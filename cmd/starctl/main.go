package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openlh/star/internal/config"
	"github.com/openlh/star/internal/logging"
	"github.com/openlh/star/internal/observability"
	"github.com/openlh/star/internal/protocol/session"
	"github.com/openlh/star/internal/star"
	"github.com/openlh/star/internal/transport"
)

func main() {
	cfgPath := flag.String("config", "cmd/starctl/config.toml", "instrument config path")
	summaryOnly := flag.Bool("deck-summary", false, "print the configured deck layout and exit")
	noResync := flag.Bool("no-resync", false, "skip the tip presence query on startup")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := observability.InitLogger("starctl")

	if err := run(*cfgPath, *summaryOnly, !*noResync); err != nil {
		logger.Error().Err(err).Msg("starctl failed")
		os.Exit(1)
	}
}

func run(cfgPath string, summaryOnly, resync bool) error {
	cfg, err := config.LoadInstrumentConfig(cfgPath)
	if err != nil {
		return err
	}
	layout, err := config.BuildDeck(cfg)
	if err != nil {
		return err
	}
	if summaryOnly {
		fmt.Print(layout.Summary())
		return nil
	}

	stream, err := openTransport(cfg.Transport)
	if err != nil {
		return err
	}
	logger := observability.InitLogger(cfg.Name)
	sess := session.New(stream, session.Config{Timeout: cfg.Timeout()}, logger)
	defer sess.Close()

	svc := star.NewService(layout, sess, cfg.Channels, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if resync {
		if err := svc.Resync(ctx); err != nil {
			return fmt.Errorf("startup resync: %w", err)
		}
		logger.Info().Msg("channel state synchronized")
	}

	if cfg.MonitorAddr == "" {
		logger.Info().Msg("no monitor address configured, waiting for shutdown")
		<-ctx.Done()
		return nil
	}
	monitor := star.NewMonitor(svc, cfg.CorsOrigins)
	logger.Info().Str("addr", cfg.MonitorAddr).Msg("monitor listening")
	return monitor.Serve(ctx, cfg.MonitorAddr)
}

func openTransport(cfg config.TransportConfig) (*transport.Stream, error) {
	if cfg.TCPAddr != "" {
		return transport.DialTCP(cfg.TCPAddr)
	}
	return transport.OpenSerial(transport.SerialConfig{Port: cfg.SerialPort, Baud: cfg.Baud})
}
