package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderbuddy/internal/config"
	"orderbuddy/internal/db"
	"orderbuddy/internal/engine"
	"orderbuddy/internal/geo"
	"orderbuddy/internal/httpserver"
	"orderbuddy/pkg/logger"
	"orderbuddy/repository"
)

func main() {
	rollback := flag.Bool("rollback", false, "roll back the last applied migration and exit")
	flag.Parse()

	log := logger.New("orderbuddy")

	cfg, err := config.LoadWithDefaults()
	if err != nil {
		log.Error("load config", logger.Error(err))
		os.Exit(1)
	}
	log.Info("configuration loaded", logger.String("config", cfg.String()))

	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Error("open db", logger.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Error("close db", logger.Error(err))
		}
	}()

	if *rollback {
		if err := db.RollbackLast(d); err != nil {
			log.Error("rollback", logger.Error(err))
			os.Exit(1)
		}
		log.Info("last migration rolled back")
		return
	}

	users := repository.NewUserRepository(d)
	orders := repository.NewOrderRepository(d)
	requests := repository.NewRequestRepository(d)
	conns := repository.NewConnectionRepository(d)

	catalog := engine.NewOrderCatalog(orders, geo.NewIndex(), log)
	ledger := engine.NewRequestLedger(requests, users, catalog, log)
	view := engine.NewConnectionView(conns, users, log)

	if err := catalog.Reindex(context.Background()); err != nil {
		log.Error("rebuild spatial index", logger.Error(err))
		os.Exit(1)
	}

	srv := httpserver.New(cfg, log, users, catalog, ledger, view)
	shutdown, err := srv.Start()
	if err != nil {
		log.Error("start http server", logger.Error(err))
		os.Exit(1)
	}
	log.Info("http server listening", logger.String("address", cfg.HTTP.Address))

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Error("shutdown", logger.Error(err))
	}
}
