package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"

	"github.com/calygofire/calygo/charmlog"
	"github.com/calygofire/calygo/sqlite"
)

func main() {
	confDir, _ := os.UserConfigDir()
	cfg, err := LoadConf(path.Join(confDir, "calygo", "calygosync.conf"))
	if err != nil {
		panic(err)
	}

	// logger
	var w io.Writer = os.Stdout
	if cfg.LogPath != "" {
		f, err := charmlog.OpenFile(cfg.LogPath)
		if err != nil {
			panic(err)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	logger := charmlog.NewLogger(charmlog.Options{
		Writer: w,
		Level:  cfg.LogLevel,
		Prefix: "calygosync",
	})

	// db
	db, err := sqlite.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed database open", "error", err)
		os.Exit(1)
	}
	defer db.Close() //nolint:errcheck
	if err := db.Migrate(sqlite.Migrations); err != nil {
		logger.Error("failed migration", "error", err)
		os.Exit(1)
	}

	tx, dbGetter := txStdLib.NewTransactor(db.DB(), txStdLib.NestedTransactionsSavepoints)

	// routes
	m := newMetrics()
	c := &controller{
		tx:        tx,
		addresses: sqlite.NewAddressRepo(dbGetter, logger),
		sales:     sqlite.NewSaleRepo(dbGetter, logger),
		visits:    sqlite.NewVisitRepo(dbGetter, logger),
		tournees:  sqlite.NewTourneeRepo(dbGetter, logger),
		m:         m,
		l:         logger,
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(c, m, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting sync server", "port", cfg.Port, "db", cfg.DatabaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
}
