package main

import (
	"flag"
	"fmt"
	"os"

	"AlertEngine/internal/di"
	"AlertEngine/pkg/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	checkOnly := flag.Bool("check-config", false, "validate the config and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "alert engine: %v\n", err)
		return 2
	}
	if *checkOnly {
		fmt.Printf("config %s ok: env=%s cadence=%s notify=%s history=%s\n",
			*configPath, cfg.Environment, cfg.Scheduler.Cadence, cfg.Notification.Transport, cfg.Price.Source)
		return 0
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "alert engine: init: %v\n", err)
		return 1
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		return 1
	}
	return 0
}
