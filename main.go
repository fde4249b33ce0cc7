package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/banachtech/quant-toolkit/api"
	"github.com/banachtech/quant-toolkit/config"
	"github.com/banachtech/quant-toolkit/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "config file, or directory holding config.yaml")
	mode := flag.String("mode", "serve", "serve: run the HTTP API; demo: run the engine on simulated market data")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
	defer func() { _ = log.Sync() }()

	switch *mode {
	case "serve":
		server := api.NewServer(cfg, log)
		log.Info("starting server", zap.String("address", cfg.Server.Address))
		if err := server.Start(cfg.Server.Address); err != nil {
			log.Fatal("cannot start server", zap.Error(err))
		}
	case "demo":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runDemo(ctx, cfg, log); err != nil {
			log.Error("demo failed", zap.Error(err))
			os.Exit(-1)
		}
	default:
		fmt.Printf("unknown mode %q\n", *mode)
		flag.Usage()
		os.Exit(2)
	}
}
