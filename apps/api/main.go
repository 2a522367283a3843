package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mpiangona/apps/api/di"
	echoapi "github.com/trezcool/mpiangona/apps/api/echo"
	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/services/realtime"
	"github.com/trezcool/mpiangona/storage/database"
	inmemdb "github.com/trezcool/mpiangona/storage/database/inmem"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := di.NewLogger(conf, "API : ")
	dbLogger := di.NewLogger(conf, "DB : ")

	// set up DB
	var repos di.Repositories
	if conf.TestMode || conf.Database.Engine == "inmem" {
		logger.Info("Using the in-memory database; data will be lost on exit")
		repos = di.InMemory(inmemdb.Open())
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		repos = di.SQL(db)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(logger, !conf.Debug)

	c := di.New(conf, logger, repos, di.NewEmailService(conf, logger))
	c.Start()
	defer c.Stop()

	// share the change events with the other instances
	if conf.Redis.Addr != "" {
		rdb, err := realtime.NewClient(context.Background(), conf.Redis, !conf.Debug)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer rdb.Close()

		relay := realtime.NewRelay(rdb, conf.Redis.Stream, uuid.NewString(), c.Bus, logger)
		relay.Start(context.Background())
		defer relay.Stop()
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(c.Deps)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)
		os.Exit(1)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, "up"); err != nil {
		return nil, err
	}
	return db, nil
}
