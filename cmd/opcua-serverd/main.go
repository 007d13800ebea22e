// Package main starts a minimal OPC UA TCP endpoint: one processor.Processor
// per accepted connection, run until the listener or the process context is
// cancelled.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/caarlos0/env/v7"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/lAndbz/opcua-processor/internal/config"
	"github.com/lAndbz/opcua-processor/processor"
	"github.com/lAndbz/opcua-processor/server"
)

const svcName = "opcua-serverd"

type listenConfig struct {
	BindAddr string `env:"OPCUA_BIND_ADDR" envDefault:":4840"`
	LogLevel string `env:"OPCUA_LOG_LEVEL" envDefault:"info"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", svcName, err)
		os.Exit(1)
	}
}

func run() error {
	lcfg := listenConfig{}
	if err := env.Parse(&lcfg); err != nil {
		return fmt.Errorf("load listener configuration: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load processor configuration: %w", err)
	}

	logger := newLogger(lcfg.LogLevel)

	ln, err := net.Listen("tcp", lcfg.BindAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", lcfg.BindAddr, err)
	}
	defer ln.Close()
	level.Info(logger).Log("msg", "listening", "addr", ln.Addr().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	iserver := server.NewInMemory()
	var connCount uint64

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}

			name := "conn-" + strconv.FormatUint(atomic.AddUint64(&connCount, 1), 10)
			connLogger := log.With(logger, "conn", name)
			p := processor.New(iserver, conn, name, cfg, connLogger)

			g.Go(func() error {
				defer conn.Close()
				if err := p.Run(ctx); err != nil {
					level.Warn(connLogger).Log("msg", "connection ended with error", "err", err)
				}
				return nil
			})
		}
	})

	return g.Wait()
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "svc", svcName)

	var filter level.Option
	switch lvl {
	case "debug":
		filter = level.AllowDebug()
	case "warn":
		filter = level.AllowWarn()
	case "error":
		filter = level.AllowError()
	default:
		filter = level.AllowInfo()
	}
	return level.NewFilter(logger, filter)
}
