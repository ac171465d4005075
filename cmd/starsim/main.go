package main

import (
	"bufio"
	"errors"
	"flag"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"

	"github.com/openlh/star/internal/logging"
	"github.com/openlh/star/internal/observability"
	"github.com/openlh/star/internal/protocol/frame"
	"github.com/openlh/star/internal/sim"
)

func main() {
	addr := flag.String("addr", ":2000", "listen address for instrument connections")
	channelCount := flag.Int("channels", 8, "simulated pipetting channels")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := observability.InitLogger("starsim")

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Error().Err(err).Msg("listen failed")
		os.Exit(1)
	}
	logger.Info().Str("addr", ln.Addr().String()).Int("channels", *channelCount).Msg("simulator listening")

	// Shared instrument state across connections, like the real
	// hardware behind a terminal server.
	inst := sim.New(*channelCount, logger)

	for {
		conn, err := ln.Accept()
		if err != nil {
			logger.Error().Err(err).Msg("accept failed")
			return
		}
		go serve(conn, inst, logger)
	}
}

func serve(conn net.Conn, inst *sim.Instrument, logger zerolog.Logger) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	logger.Info().Str("remote", remote).Msg("client connected")

	reader := bufio.NewReader(conn)
	limits := frame.DefaultLimits()
	for {
		cmd, err := frame.ReadFrame(reader, limits)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn().Str("remote", remote).Err(err).Msg("read failed")
			}
			logger.Info().Str("remote", remote).Msg("client disconnected")
			return
		}
		if err := frame.WriteFrame(conn, inst.Respond(cmd)); err != nil {
			logger.Warn().Str("remote", remote).Err(err).Msg("write failed")
			return
		}
	}
}
