package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seedfarm/config"
	"seedfarm/native/farm"
	"seedfarm/native/farm/farmstore"
	"seedfarm/observability"
	"seedfarm/observability/logging"
	"seedfarm/rpc"
	"seedfarm/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("FARMD_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("farmd", env)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	minDeposit, err := cfg.MinDeposit()
	if err != nil {
		logger.Error("Invalid minimum deposit", slog.Any("error", err))
		os.Exit(1)
	}
	farm.DefaultMinDeposit = minDeposit

	engine := farm.NewEngine()
	engine.SetState(farmstore.NewStore(db))
	engine.SetLogger(logger)
	engine.SetEmitter(observability.NewMetricsEmitter(nil))

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("starting metrics server", "addr", cfg.MetricsAddress)
		if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
			logger.Error("Metrics server stopped", slog.Any("error", err))
		}
	}()

	server := rpc.NewServer(engine, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
