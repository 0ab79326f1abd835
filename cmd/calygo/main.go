package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/calygofire/calygo"
	"github.com/calygofire/calygo/charmlog"
	"github.com/calygofire/calygo/offline"
	"github.com/calygofire/calygo/sqlite"
)

func main() {
	// conf
	conf, err := calygo.LoadConfig(calygo.DefaultConfFile())
	if err != nil {
		panic(err)
	}
	f, err := charmlog.OpenFile(conf.LogPath)
	if err != nil {
		panic(err)
	}
	defer f.Close() //nolint:errcheck
	logger := charmlog.NewLogger(charmlog.Options{
		Writer: f,
		Level:  conf.LogLevel,
		Prefix: "calygo",
	})
	logger.Info("loaded config", "config", conf)

	// db
	db, err := sqlite.Open(conf.DatabaseURL)
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

	// offline queue
	httpClient := &http.Client{Timeout: conf.RequestTimeout}
	transport, err := offline.NewHTTPTransport(httpClient, conf.ServerURL)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	prober := offline.NewProber(httpClient, strings.TrimRight(conf.ServerURL, "/")+"/api/health", conf.ProbeInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := offline.NewQueue(ctx, sqlite.NewPendingRequestRepo(dbGetter, logger), transport, prober,
		offline.WithLogger(logger),
		offline.WithReplayTimeout(conf.ReplayTimeout),
		offline.WithTransactor(tx),
	)

	// svcs
	fieldSvc := NewFieldSvc(transport, queue, conf.PompierID, logger)

	// start program
	fmt.Println(colorize(colorYellow, logo))
	fmt.Printf("\nEnter \"/h\" for help\n\n")

	m := newModel(logger, fieldSvc, queue, 3*time.Second)
	p := tea.NewProgram(m)

	unsubscribe := queue.Subscribe(func(e offline.Event) {
		// Send blocks until the program reads it; listeners must not.
		go p.Send(QueueEventMsg{event: e})
	})
	defer unsubscribe()

	go queue.Run(ctx, prober)

	if _, err := p.Run(); err != nil {
		logger.Error(err.Error())
	}
}
