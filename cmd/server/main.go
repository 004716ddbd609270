package main

import (
	"log"
	"os"

	"github.com/lysyi3m/social-comb/app/bootstrap"
	"github.com/lysyi3m/social-comb/app/cfg"
)

// Container entry point. Same flags and environment as app/main.go.
func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if c == nil {
		return
	}

	bootstrap.SetupLogger(os.Stdout, c.Debug)

	if err := bootstrap.Run(c); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}
