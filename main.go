package main

import (
	"flag"
	"log"
	"meetgate/internal/config"
	"meetgate/internal/server"
	"meetgate/internal/utils"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	var basePath string
	flag.StringVar(&basePath, "prefix", "", "Config file base path")
	flag.Parse()

	// Load MainConfig
	cfg, err := config.LoadMainConfig(basePath)
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	// Load gate rules
	ruleSet, err := config.LoadRules(cfg.RulePath)
	if err != nil {
		log.Fatalf("Load rules failed: %v", err)
	}

	utils.InitLogx(cfg.LogPath)

	log.Printf("Ready to start gate on port %s", cfg.Port)

	// Start server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(cfg, ruleSet)
	}()

	select {
	case <-stop:
		log.Println("Stopping gate...")
	case err := <-serverErr:
		if err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}

	log.Println("Gate stopped")
}
