package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"go.uber.org/dig"

	dig_container "github.com/innocell/innocell/apps/api/di/dig"
	echoapi "github.com/innocell/innocell/apps/api/echo"
	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/user"
)

type appParams struct {
	dig.In
	Conf     *core.Config
	Logger   core.Logger
	DBLogger core.Logger          `name:"dbLogger"`
	CloseDB  dig_container.Closer `name:"db"`
	Server   *echoapi.Server
}

func main() {
	inmem := flag.Bool("inmem", false, "use in-memory storage instead of postgres")
	flag.Parse()

	c := dig_container.New(*inmem)
	must(c.Invoke(run))
}

func run(p appParams) {
	conf, logger := p.Conf, p.Logger

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

	core.ParseEmailTemplates(logger)
	user.LoadCommonPasswords(logger)

	defer func() {
		if err := p.CloseDB(); err != nil {
			p.DBLogger.Fatal("Failed to close", err)
		}
	}()
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := p.Server
	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
