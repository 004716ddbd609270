package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lysyi3m/social-comb/app/bootstrap"
	"github.com/lysyi3m/social-comb/app/cfg"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// help was shown
		return
	}

	bootstrap.SetupLogger(os.Stdout, c.Debug)

	if err := bootstrap.Run(c); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}
