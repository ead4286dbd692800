package main

import (
	"context"
	"fmt"
	"os"

	"github.com/focusd/focusd/internal/config"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	configPath := os.Getenv("FOCUS_CONFIG_PATH")
	if configPath == "" {
		configPath = "/etc/focusd/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}

	app, err := newCLIApp(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
